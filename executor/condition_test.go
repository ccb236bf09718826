package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func conditionData() map[string]any {
	return map[string]any{
		"run":   map[string]any{"id": "run-1", "workflow": "wf", "job": "build"},
		"event": map[string]any{"kind": "push", "branch": "main"},
		"env":   map[string]any{"COUNT": "3", "FLAG": "yes", "EMPTY": ""},
	}
}

func TestEvaluateCondition(t *testing.T) {
	for scenario, tc := range map[string]struct {
		expression string
		expected   bool
	}{
		"event kind equality":   {"$.event.kind === 'push'", true},
		"event kind mismatch":   {"$.event.kind === 'schedule'", false},
		"literal comparison":    {"1 === 2", false},
		"numeric env compare":   {"Number($.env.COUNT) > 2", true},
		"truthy string":         {"$.env.FLAG", true},
		"empty string is falsy": {"$.env.EMPTY", false},
		"combined expression":   {"$.event.kind === 'push' && $.event.branch === 'main'", true},
	} {
		t.Run(scenario, func(t *testing.T) {
			ok, err := evaluateCondition(tc.expression, conditionData())
			require.NoError(t, err)
			require.Equal(t, tc.expected, ok)
		})
	}
}

func TestEvaluateConditionSyntaxError(t *testing.T) {
	_, err := evaluateCondition("$.event.kind ===", conditionData())
	require.ErrorContains(t, err, "error evaluating condition")
}
