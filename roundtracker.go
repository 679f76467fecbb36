package reflexion

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// Role is one of the two alternating perspectives in an actor-critic
// session. Roles are labels supplied by the caller, not separately modeled
// entities.
type Role string

const (
	RoleActor  Role = "actor"
	RoleCritic Role = "critic"
)

// Other returns the complementary role.
func (r Role) Other() Role {
	if r == RoleActor {
		return RoleCritic
	}
	return RoleActor
}

// Thought is one validated entry of an actor-critic session. A round is a
// pair of consecutive thought numbers, odd for the actor slot and even for
// the critic slot by convention.
type Thought struct {
	Content         string `json:"content"`
	Role            Role   `json:"role"`
	NextRoundNeeded bool   `json:"nextRoundNeeded"`
	ThoughtNumber   int    `json:"thoughtNumber"`
	TotalThoughts   int    `json:"totalThoughts"`
}

// RoundTracker alternates actor and critic perspectives across a
// fixed-length sequence of thoughts. It keeps an append-only history and
// derives round bookkeeping from each accepted call.
type RoundTracker struct {
	id           string
	history      []Thought
	currentRound int

	renderer ThoughtRenderer
	logger   *slog.Logger
}

// RoundTrackerOption configures a RoundTracker.
type RoundTrackerOption func(*RoundTracker)

// WithThoughtRenderer sets the sink that renders accepted thoughts for
// human display. Rendering is cosmetic and never affects state or results.
func WithThoughtRenderer(r ThoughtRenderer) RoundTrackerOption {
	return func(rt *RoundTracker) {
		rt.renderer = r
	}
}

// WithRoundTrackerLogger sets the logger for the tracker.
func WithRoundTrackerLogger(logger *slog.Logger) RoundTrackerOption {
	return func(rt *RoundTracker) {
		rt.logger = logger
	}
}

// NewRoundTracker creates a round tracker with empty history.
func NewRoundTracker(options ...RoundTrackerOption) *RoundTracker {
	rt := &RoundTracker{
		id:       uuid.NewString(),
		renderer: NopRenderer(),
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(rt)
	}

	rt.logger = rt.logger.With("tracker", rt.id)

	return rt
}

// ID returns the tracker's instance identifier, used for log correlation.
func (rt *RoundTracker) ID() string { return rt.id }

// History returns a copy of the accepted thoughts in arrival order.
func (rt *RoundTracker) History() []Thought {
	out := make([]Thought, len(rt.history))
	copy(out, rt.history)
	return out
}

// parseThought validates the argument record field by field, first failure
// wins. It never mutates the tracker.
func parseThought(input map[string]any) (Thought, error) {
	var t Thought

	content, ok := stringField(input, "content")
	if !ok || content == "" {
		return t, validationErr("Invalid content: must be a non-empty string",
			goerr.V("content", input["content"]))
	}

	role, ok := stringField(input, "role")
	if !ok || (Role(role) != RoleActor && Role(role) != RoleCritic) {
		return t, validationErr("Invalid role: must be either 'actor' or 'critic'",
			goerr.V("role", input["role"]))
	}

	nextRoundNeeded, ok := boolField(input, "nextRoundNeeded")
	if !ok {
		return t, validationErr("Invalid nextRoundNeeded: must be a boolean",
			goerr.V("nextRoundNeeded", input["nextRoundNeeded"]))
	}

	thoughtNumber, ok := numberField(input, "thoughtNumber")
	if !ok {
		return t, validationErr("Invalid thoughtNumber: must be a number",
			goerr.V("thoughtNumber", input["thoughtNumber"]))
	}

	totalThoughts, ok := numberField(input, "totalThoughts")
	if !ok {
		return t, validationErr("Invalid totalThoughts: must be a number",
			goerr.V("totalThoughts", input["totalThoughts"]))
	}

	if totalThoughts < 3 {
		return t, validationErr("Invalid totalThoughts: must be at least 3 (one full round plus a synthesis thought)",
			goerr.V("totalThoughts", totalThoughts))
	}

	if int(totalThoughts)%2 == 0 {
		return t, validationErr("Invalid totalThoughts: must be odd (actor/critic pairs plus a final synthesis thought)",
			goerr.V("totalThoughts", totalThoughts))
	}

	return Thought{
		Content:         content,
		Role:            Role(role),
		NextRoundNeeded: nextRoundNeeded,
		ThoughtNumber:   int(thoughtNumber),
		TotalThoughts:   int(totalThoughts),
	}, nil
}

// Process validates one thought record and, on success, appends it to the
// history and returns the round bookkeeping summary. A validation failure
// returns an error record with status "failed" and leaves all state
// untouched; the tracker stays usable for subsequent calls.
func (rt *RoundTracker) Process(input map[string]any) map[string]any {
	thought, err := parseThought(input)
	if err != nil {
		rt.logger.Warn("rejected thought", slog.Any("error", err))
		return map[string]any{
			"error":  err.Error(),
			"status": "failed",
		}
	}

	rt.history = append(rt.history, thought)

	// The current round follows the latest input, not the history. Out of
	// order submissions can make it regress; that matches the tool's
	// caller-driven contract.
	rt.currentRound = (thought.ThoughtNumber + 1) / 2

	rt.renderer.RenderThought(thought, rt.currentRound)

	var actorCount, criticCount int
	for _, t := range rt.history {
		if t.Role == RoleActor {
			actorCount++
		} else {
			criticCount++
		}
	}

	rt.logger.Debug("accepted thought",
		slog.Int("thoughtNumber", thought.ThoughtNumber),
		slog.Int("round", rt.currentRound),
		slog.String("role", string(thought.Role)),
		slog.Int("historyLength", len(rt.history)),
	)

	return map[string]any{
		"thoughtNumber":        thought.ThoughtNumber,
		"totalThoughts":        thought.TotalThoughts,
		"currentRound":         rt.currentRound,
		"currentRole":          string(thought.Role),
		"nextRole":             string(thought.Role.Other()),
		"isRoundComplete":      thought.ThoughtNumber%2 == 0,
		"nextRoundNeeded":      thought.NextRoundNeeded,
		"thoughtHistoryLength": len(rt.history),
		"actorThoughts":        actorCount,
		"criticThoughts":       criticCount,
	}
}
