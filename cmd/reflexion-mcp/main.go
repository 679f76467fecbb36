package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	reflexion "github.com/bmorphism/reflexion-mcp"
)

const version = "0.1.0"

func main() {
	app := &cli.Command{
		Name:    "reflexion-mcp",
		Usage:   "MCP server for actor-critic thinking and reflexion trial loops",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("REFLEXION_LOG_LEVEL"),
				Usage:   "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Sources: cli.EnvVars("REFLEXION_LOG_FORMAT"),
				Usage:   "Log format (json or text)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Sources: cli.EnvVars("REFLEXION_QUIET"),
				Usage:   "Disable the boxed thought rendering on stderr",
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.String("log-level"), cmd.String("log-format"))
	if err != nil {
		return err
	}

	renderer := reflexion.NewConsoleRenderer(os.Stderr)
	if cmd.Bool("quiet") {
		renderer = reflexion.NopRenderer()
	}

	tracker := reflexion.NewRoundTracker(
		reflexion.WithThoughtRenderer(renderer),
		reflexion.WithRoundTrackerLogger(logger),
	)
	loop := reflexion.NewTrialLoop(
		reflexion.WithTrialLoopLogger(logger),
	)

	s := reflexion.NewServer(version, tracker, loop, logger)

	logger.Info("starting MCP server on stdio",
		slog.String("version", version),
		slog.String("tracker", tracker.ID()),
		slog.String("loop", loop.ID()),
	)

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("stdio server terminated: %w", err)
	}

	return nil
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "info":
		lv = slog.LevelInfo
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: lv}

	// stdout carries the MCP protocol; all logs go to stderr.
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
}
