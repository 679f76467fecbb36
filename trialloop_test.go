package reflexion_test

import (
	"fmt"
	"strings"
	"testing"

	reflexion "github.com/bmorphism/reflexion-mcp"
	"github.com/bmorphism/reflexion-mcp/internal"
	"github.com/m-mizutani/gt"
)

func completeTrial(t *testing.T, tl *reflexion.TrialLoop, trial, maxTrials int, reflection string) map[string]any {
	t.Helper()
	result := tl.Process(map[string]any{
		"stepType":        "self-reflection",
		"trialNumber":     trial,
		"maxTrials":       maxTrials,
		"actorOutputText": "draft " + reflection,
		"evaluatorScore":  "needs work",
		"reflectionText":  reflection,
	})
	gt.Equal[any](t, result["trialCompleted"], trial)
	return result
}

func TestTrialLoopActorStep(t *testing.T) {
	tl := reflexion.NewTrialLoop(
		reflexion.WithTrialLoopLogger(internal.TestLogger()),
	)

	result := tl.Process(map[string]any{
		"stepType":       "actor",
		"trialNumber":    1,
		"maxTrials":      3,
		"actorInputText": "write a poem",
	})

	gt.Equal(t, result, map[string]any{
		"nextStep":         "evaluator",
		"prompt_for_actor": "write a poem",
		"current_memory":   []string{},
		"trialNumber":      1,
		"maxTrials":        3,
	})
}

func TestTrialLoopEvaluatorStep(t *testing.T) {
	tl := reflexion.NewTrialLoop()

	result := tl.Process(map[string]any{
		"stepType":        "evaluator",
		"trialNumber":     2,
		"maxTrials":       3,
		"actorOutputText": "roses are red",
	})

	gt.Equal(t, result, map[string]any{
		"nextStep":            "self-reflection",
		"content_to_evaluate": "roses are red",
		"trialNumber":         2,
		"maxTrials":           3,
	})

	// Evaluator steps never mutate state.
	gt.Equal(t, len(tl.Memory()), 0)
	gt.Equal(t, len(tl.History()), 0)
}

func TestTrialLoopMemoryEviction(t *testing.T) {
	tl := reflexion.NewTrialLoop()

	for i, text := range []string{"r1", "r2", "r3", "r4"} {
		completeTrial(t, tl, i+1, 8, text)
	}

	gt.Equal(t, tl.Memory(), []string{"r4", "r3", "r2"})
	gt.Equal(t, len(tl.History()), 4)
}

func TestTrialLoopCompletion(t *testing.T) {
	tl := reflexion.NewTrialLoop()

	t.Run("mid-run trial wants another", func(t *testing.T) {
		result := completeTrial(t, tl, 1, 3, "start simpler")
		gt.Equal(t, result["next_trial_needed"], true)
		gt.Equal(t, result["reflection_added_to_memory"], "start simpler")
		gt.Equal[any](t, result["memory"], []string{"start simpler"})
		gt.Equal(t, result["trial_history_length"], 1)
	})

	t.Run("final trial stops the loop", func(t *testing.T) {
		result := completeTrial(t, tl, 3, 3, "good enough")
		gt.Equal(t, result["next_trial_needed"], false)
		gt.Equal(t, result["trial_history_length"], 2)
	})

	t.Run("history records the completion", func(t *testing.T) {
		history := tl.History()
		gt.Equal(t, history[0].TrialNumber, 1)
		gt.Equal(t, history[0].ReflectionText, "start simpler")
		gt.Equal(t, history[1].EvaluatorScore, "needs work")
	})
}

func TestTrialLoopReflectionReprompt(t *testing.T) {
	tl := reflexion.NewTrialLoop()
	completeTrial(t, tl, 1, 3, "earlier reflection")

	result := tl.Process(map[string]any{
		"stepType":        "self-reflection",
		"trialNumber":     2,
		"maxTrials":       3,
		"actorInputText":  "write a poem",
		"actorOutputText": "roses are red",
		"evaluatorScore":  0.4,
	})

	gt.Equal(t, result["nextStep"], "self-reflection")
	prompt, ok := result["prompt_for_reflection_llm"].(map[string]any)
	gt.True(t, ok)
	gt.Equal(t, prompt, map[string]any{
		"task_description": "write a poem",
		"actor_output":     "roses are red",
		"evaluator_score":  0.4,
		"current_memory":   []string{"earlier reflection"},
	})
	_, hasMessage := result["message"].(string)
	gt.True(t, hasMessage)

	// A re-prompt must not touch memory or history.
	gt.Equal(t, tl.Memory(), []string{"earlier reflection"})
	gt.Equal(t, len(tl.History()), 1)
}

func TestTrialLoopMemoryOverride(t *testing.T) {
	t.Run("replaces memory keeping only strings", func(t *testing.T) {
		tl := reflexion.NewTrialLoop()
		completeTrial(t, tl, 1, 5, "old reflection")

		result := tl.Process(map[string]any{
			"stepType":       "actor",
			"trialNumber":    2,
			"maxTrials":      5,
			"actorInputText": "try again",
			"memoryOverride": []any{"a", 1, "b", nil, "c"},
		})

		// The override lands before step logic runs.
		gt.Equal[any](t, result["current_memory"], []string{"a", "b", "c"})
		gt.Equal(t, tl.Memory(), []string{"a", "b", "c"})
	})

	t.Run("empty override clears memory", func(t *testing.T) {
		tl := reflexion.NewTrialLoop()
		completeTrial(t, tl, 1, 5, "old reflection")

		tl.Process(map[string]any{
			"stepType":       "actor",
			"trialNumber":    2,
			"maxTrials":      5,
			"actorInputText": "try again",
			"memoryOverride": []any{},
		})

		gt.Equal(t, len(tl.Memory()), 0)
	})

	t.Run("non-sequence override is ignored", func(t *testing.T) {
		tl := reflexion.NewTrialLoop()
		completeTrial(t, tl, 1, 5, "old reflection")

		tl.Process(map[string]any{
			"stepType":       "actor",
			"trialNumber":    2,
			"maxTrials":      5,
			"actorInputText": "try again",
			"memoryOverride": "not a sequence",
		})

		gt.Equal(t, tl.Memory(), []string{"old reflection"})
	})
}

func TestTrialLoopValidation(t *testing.T) {
	cases := []struct {
		name    string
		input   map[string]any
		errPart string
	}{
		{
			name:    "nil input",
			input:   nil,
			errPart: "Invalid input",
		},
		{
			name:    "missing trialNumber",
			input:   map[string]any{"stepType": "actor", "maxTrials": 3},
			errPart: "trialNumber",
		},
		{
			name:    "trialNumber below 1",
			input:   map[string]any{"stepType": "actor", "trialNumber": 0, "maxTrials": 3},
			errPart: "trialNumber",
		},
		{
			name:    "missing maxTrials",
			input:   map[string]any{"stepType": "actor", "trialNumber": 1},
			errPart: "maxTrials",
		},
		{
			name:    "actor step without input text",
			input:   map[string]any{"stepType": "actor", "trialNumber": 1, "maxTrials": 3},
			errPart: "actorInputText",
		},
		{
			name:    "evaluator step without actor output",
			input:   map[string]any{"stepType": "evaluator", "trialNumber": 1, "maxTrials": 3},
			errPart: "actorOutputText",
		},
		{
			name: "self-reflection without actor output",
			input: map[string]any{
				"stepType": "self-reflection", "trialNumber": 1, "maxTrials": 3,
				"evaluatorScore": "ok",
			},
			errPart: "actorOutputText",
		},
		{
			name: "self-reflection with boolean score",
			input: map[string]any{
				"stepType": "self-reflection", "trialNumber": 1, "maxTrials": 3,
				"actorOutputText": "out", "evaluatorScore": true,
			},
			errPart: "evaluatorScore",
		},
		{
			name: "self-reflection without score",
			input: map[string]any{
				"stepType": "self-reflection", "trialNumber": 1, "maxTrials": 3,
				"actorOutputText": "out",
			},
			errPart: "evaluatorScore",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tl := reflexion.NewTrialLoop()
			result := tl.Process(tc.input)

			msg, ok := result["error"].(string)
			gt.True(t, ok)
			gt.True(t, strings.Contains(msg, tc.errPart))
			gt.Equal(t, len(tl.Memory()), 0)
			gt.Equal(t, len(tl.History()), 0)
		})
	}
}

func TestTrialLoopTrialBounds(t *testing.T) {
	// trialNumber beyond maxTrials is rejected for every step type.
	for _, stepType := range []string{"actor", "evaluator", "self-reflection"} {
		t.Run(stepType, func(t *testing.T) {
			tl := reflexion.NewTrialLoop()
			result := tl.Process(map[string]any{
				"stepType":        stepType,
				"trialNumber":     4,
				"maxTrials":       3,
				"actorInputText":  "in",
				"actorOutputText": "out",
				"evaluatorScore":  "ok",
				"reflectionText":  "r",
			})

			msg, ok := result["error"].(string)
			gt.True(t, ok)
			gt.True(t, strings.Contains(msg, "maxTrials"))
			gt.Equal(t, len(tl.History()), 0)
		})
	}
}

func TestTrialLoopUnknownStepType(t *testing.T) {
	tl := reflexion.NewTrialLoop()

	for _, stepType := range []any{"judge", "", nil, 42} {
		t.Run(fmt.Sprintf("%v", stepType), func(t *testing.T) {
			input := map[string]any{
				"trialNumber": 1,
				"maxTrials":   3,
			}
			if stepType != nil {
				input["stepType"] = stepType
			}

			result := tl.Process(input)

			msg, ok := result["error"].(string)
			gt.True(t, ok)
			gt.True(t, strings.Contains(msg, "Unknown stepType"))
		})
	}
}

func TestTrialLoopNumericScore(t *testing.T) {
	tl := reflexion.NewTrialLoop()

	result := tl.Process(map[string]any{
		"stepType":        "self-reflection",
		"trialNumber":     1,
		"maxTrials":       2,
		"actorOutputText": "out",
		"evaluatorScore":  7.5,
		"reflectionText":  "tighten the meter",
	})

	gt.Equal(t, result["trialCompleted"], 1)
	gt.Equal(t, tl.History()[0].EvaluatorScore, 7.5)
}
