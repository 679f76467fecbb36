package reflexion

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// ServerName identifies this MCP server to clients.
	ServerName = "reflexion-mcp"

	// ToolActorCritic is the tool name of the round tracker.
	ToolActorCritic = "actor-critic-thinking"

	// ToolReflexion is the tool name of the trial loop.
	ToolReflexion = "reflexion-trial"
)

// NewServer builds the MCP server exposing both handlers as tools. The
// declared schemas mirror the handlers' validation rules but are hints
// only; the handlers re-validate every call themselves.
func NewServer(version string, rt *RoundTracker, tl *TrialLoop, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(actorCriticTool(), toolHandler(rt.Process, logger.With("tool", ToolActorCritic)))
	s.AddTool(reflexionTool(), toolHandler(tl.Process, logger.With("tool", ToolReflexion)))

	return s
}

func actorCriticTool() mcp.Tool {
	return mcp.NewTool(ToolActorCritic,
		mcp.WithDescription("Alternates actor and critic perspectives across a fixed-length thought sequence. "+
			"The actor proposes, the critic reviews; rounds pair an odd actor thought with an even critic thought, "+
			"and totalThoughts must be odd to leave room for a final synthesis."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The thought text for this step"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("Perspective of this thought"),
			mcp.Enum("actor", "critic"),
		),
		mcp.WithBoolean("nextRoundNeeded",
			mcp.Required(),
			mcp.Description("Whether another actor/critic round should follow"),
		),
		mcp.WithNumber("thoughtNumber",
			mcp.Required(),
			mcp.Description("1-based position of this thought in the sequence"),
			mcp.Min(1),
		),
		mcp.WithNumber("totalThoughts",
			mcp.Required(),
			mcp.Description("Planned sequence length; odd and at least 3"),
			mcp.Min(3),
		),
	)
}

func reflexionTool() mcp.Tool {
	return mcp.NewTool(ToolReflexion,
		mcp.WithDescription("Drives one step of a bounded actor → evaluator → self-reflection trial loop. "+
			"Reflections from completed trials are kept in a 3-entry most-recent-first memory that is fed back "+
			"into later actor steps."),
		mcp.WithString("stepType",
			mcp.Required(),
			mcp.Description("Which phase of the trial this call drives"),
			mcp.Enum("actor", "evaluator", "self-reflection"),
		),
		mcp.WithNumber("trialNumber",
			mcp.Required(),
			mcp.Description("1-based number of the current trial"),
			mcp.Min(1),
		),
		mcp.WithNumber("maxTrials",
			mcp.Required(),
			mcp.Description("Upper bound on trials; trialNumber must not exceed it"),
			mcp.Min(1),
		),
		mcp.WithString("actorInputText",
			mcp.Description("Task prompt for the actor step"),
		),
		mcp.WithString("actorOutputText",
			mcp.Description("Actor output, required for evaluator and self-reflection steps"),
		),
		mcp.WithString("evaluatorScore",
			mcp.Description("Evaluator verdict for the self-reflection step; a string or a number"),
		),
		mcp.WithString("reflectionText",
			mcp.Description("Self-reflection text that completes the trial"),
		),
		mcp.WithArray("memoryOverride",
			mcp.Description("Replaces the reflection memory wholesale; non-string elements are dropped"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// toolHandler adapts a handler's Process to the MCP tool contract. Business
// failures stay inside the serialized record; only a serialization failure
// becomes an error result.
func toolHandler(process func(map[string]any) map[string]any, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := process(req.Params.Arguments)

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Error("failed to serialize tool result", slog.Any("error", err))
			return mcp.NewToolResultError("failed to serialize tool result"), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}
