package reflexion

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// StepType identifies which phase of a trial the caller is driving. The
// loop keeps no current-state field; every call infers its phase from the
// supplied step type.
type StepType string

const (
	StepActor          StepType = "actor"
	StepEvaluator      StepType = "evaluator"
	StepSelfReflection StepType = "self-reflection"
)

// MemorySize is the capacity of the reflection memory. Completing a trial
// beyond this pushes the oldest reflection out.
const MemorySize = 3

// TrialRecord is the outcome of one completed trial.
type TrialRecord struct {
	TrialNumber    int    `json:"trialNumber"`
	ActorOutput    string `json:"actorOutput"`
	EvaluatorScore any    `json:"evaluatorScore"`
	ReflectionText string `json:"reflectionText"`
}

// TrialLoop drives a bounded actor, evaluator, self-reflection cycle. It
// carries a most-recent-first memory of past reflection texts across trials
// and an append-only history of completed trials. Memory and history mutate
// only on the fully-specified self-reflection path.
type TrialLoop struct {
	id      string
	memory  []string
	history []TrialRecord

	logger *slog.Logger
}

// TrialLoopOption configures a TrialLoop.
type TrialLoopOption func(*TrialLoop)

// WithTrialLoopLogger sets the logger for the loop.
func WithTrialLoopLogger(logger *slog.Logger) TrialLoopOption {
	return func(tl *TrialLoop) {
		tl.logger = logger
	}
}

// NewTrialLoop creates a trial loop with empty memory and history.
func NewTrialLoop(options ...TrialLoopOption) *TrialLoop {
	tl := &TrialLoop{
		id:     uuid.NewString(),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(tl)
	}

	tl.logger = tl.logger.With("loop", tl.id)

	return tl
}

// ID returns the loop's instance identifier, used for log correlation.
func (tl *TrialLoop) ID() string { return tl.id }

// Memory returns a copy of the reflection memory, most recent first.
func (tl *TrialLoop) Memory() []string {
	return tl.memorySnapshot()
}

// History returns a copy of the completed trials in completion order.
func (tl *TrialLoop) History() []TrialRecord {
	out := make([]TrialRecord, len(tl.history))
	copy(out, tl.history)
	return out
}

func (tl *TrialLoop) memorySnapshot() []string {
	snap := make([]string, len(tl.memory))
	copy(snap, tl.memory)
	return snap
}

func errRecord(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// Process handles one step of the trial loop. The result is either a
// continuation record naming the next step, a completion summary, or an
// error record; it never returns a Go error. Only a self-reflection step
// carrying reflection text mutates memory and trial history.
func (tl *TrialLoop) Process(input map[string]any) map[string]any {
	if input == nil {
		err := validationErr("Invalid input: expected an object")
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	trialNum, ok := numberField(input, "trialNumber")
	if !ok || trialNum < 1 {
		err := validationErr("Invalid trialNumber: must be a number of at least 1",
			goerr.V("trialNumber", input["trialNumber"]))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	maxTrials, ok := numberField(input, "maxTrials")
	if !ok || maxTrials < 1 {
		err := validationErr("Invalid maxTrials: must be a number of at least 1",
			goerr.V("maxTrials", input["maxTrials"]))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	if trialNum > maxTrials {
		err := validationErr("Invalid trialNumber: must not exceed maxTrials",
			goerr.V("trialNumber", trialNum), goerr.V("maxTrials", maxTrials))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	// A memory override replaces the queue wholesale before any step logic
	// runs. Non-string elements are dropped silently.
	if override, ok := stringSliceField(input, "memoryOverride"); ok {
		tl.memory = override
		tl.logger.Debug("memory overridden", slog.Int("entries", len(tl.memory)))
	}

	trial := int(trialNum)
	maxCount := int(maxTrials)
	stepType, _ := stringField(input, "stepType")

	switch StepType(stepType) {
	case StepActor:
		return tl.actorStep(input, trial, maxCount)
	case StepEvaluator:
		return tl.evaluatorStep(input, trial, maxCount)
	case StepSelfReflection:
		return tl.reflectionStep(input, trial, maxCount)
	default:
		err := validationErr(fmt.Sprintf("Unknown stepType: '%v'. Must be one of: actor, evaluator, self-reflection", input["stepType"]),
			goerr.V("stepType", input["stepType"]))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}
}

func (tl *TrialLoop) actorStep(input map[string]any, trial, maxTrials int) map[string]any {
	actorInput, ok := stringField(input, "actorInputText")
	if !ok {
		err := validationErr("Invalid actorInputText: must be a string for the actor step",
			goerr.V("actorInputText", input["actorInputText"]))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	tl.logger.Debug("actor step", slog.Int("trial", trial), slog.Int("maxTrials", maxTrials))

	return map[string]any{
		"nextStep":         string(StepEvaluator),
		"prompt_for_actor": actorInput,
		"current_memory":   tl.memorySnapshot(),
		"trialNumber":      trial,
		"maxTrials":        maxTrials,
	}
}

func (tl *TrialLoop) evaluatorStep(input map[string]any, trial, maxTrials int) map[string]any {
	actorOutput, ok := stringField(input, "actorOutputText")
	if !ok {
		err := validationErr("Invalid actorOutputText: must be a string for the evaluator step",
			goerr.V("actorOutputText", input["actorOutputText"]))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	tl.logger.Debug("evaluator step", slog.Int("trial", trial), slog.Int("maxTrials", maxTrials))

	return map[string]any{
		"nextStep":            string(StepSelfReflection),
		"content_to_evaluate": actorOutput,
		"trialNumber":         trial,
		"maxTrials":           maxTrials,
	}
}

func (tl *TrialLoop) reflectionStep(input map[string]any, trial, maxTrials int) map[string]any {
	actorOutput, ok := stringField(input, "actorOutputText")
	if !ok {
		err := validationErr("Invalid actorOutputText: must be a string for the self-reflection step",
			goerr.V("actorOutputText", input["actorOutputText"]))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	score, scoreOK := input["evaluatorScore"]
	if scoreOK {
		if _, isStr := score.(string); !isStr {
			_, isNum := asNumber(score)
			scoreOK = isNum
		}
	}
	if !scoreOK {
		err := validationErr("Invalid evaluatorScore: must be a string or a number",
			goerr.V("evaluatorScore", input["evaluatorScore"]))
		tl.logger.Warn("rejected step", slog.Any("error", err))
		return errRecord(err)
	}

	reflection, ok := stringField(input, "reflectionText")
	if !ok {
		// The trial cannot complete yet: hand the caller everything needed
		// to generate the reflection and call back.
		task, _ := stringField(input, "actorInputText")
		tl.logger.Debug("reflection requested", slog.Int("trial", trial))
		return map[string]any{
			"nextStep": string(StepSelfReflection),
			"prompt_for_reflection_llm": map[string]any{
				"task_description": task,
				"actor_output":     actorOutput,
				"evaluator_score":  score,
				"current_memory":   tl.memorySnapshot(),
			},
			"trialNumber": trial,
			"maxTrials":   maxTrials,
			"message":     "Generate a self-reflection from the evaluation, then call again with reflectionText to complete the trial.",
		}
	}

	tl.memory = append([]string{reflection}, tl.memory...)
	if len(tl.memory) > MemorySize {
		tl.memory = tl.memory[:MemorySize]
	}

	tl.history = append(tl.history, TrialRecord{
		TrialNumber:    trial,
		ActorOutput:    actorOutput,
		EvaluatorScore: score,
		ReflectionText: reflection,
	})

	tl.logger.Debug("trial completed",
		slog.Int("trial", trial),
		slog.Int("memoryEntries", len(tl.memory)),
		slog.Int("historyLength", len(tl.history)),
	)

	return map[string]any{
		"trialCompleted":             trial,
		"reflection_added_to_memory": reflection,
		"memory":                     tl.memorySnapshot(),
		"next_trial_needed":          trial < maxTrials,
		"trial_history_length":       len(tl.history),
	}
}
