package trigger

import (
	"testing"

	"github.com/mohitkumar/conveyor/model"
	"github.com/stretchr/testify/require"
)

func buildFilters() []model.TriggerFilter {
	return []model.TriggerFilter{
		{Kind: "push", Branches: []string{"main", "release"}},
		{Kind: "pull_request"},
	}
}

func TestEvaluate(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, filters []model.TriggerFilter){
		"accepts push to declared branch":      testAcceptDeclaredBranch,
		"accepts fully qualified ref":          testAcceptQualifiedRef,
		"rejects push to other branch":         testRejectOtherBranch,
		"rejects undeclared event kind":        testRejectUndeclaredKind,
		"accepts any ref without branch list":  testAcceptAnyRefWithoutBranches,
		"rejects branch filter with empty ref": testRejectMissingRef,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, buildFilters())
		})
	}
}

func testAcceptDeclaredBranch(t *testing.T, filters []model.TriggerFilter) {
	decision := Evaluate(filters, model.Event{Kind: "push", Ref: "main"})
	require.True(t, decision.Accepted)
	require.Empty(t, decision.Reason)
}

func testAcceptQualifiedRef(t *testing.T, filters []model.TriggerFilter) {
	decision := Evaluate(filters, model.Event{Kind: "push", Ref: "refs/heads/release"})
	require.True(t, decision.Accepted)
}

func testRejectOtherBranch(t *testing.T, filters []model.TriggerFilter) {
	decision := Evaluate(filters, model.Event{Kind: "push", Ref: "dev"})
	require.False(t, decision.Accepted)
	require.Equal(t, REASON_BRANCH_NOT_MATCHED, decision.Reason)
}

func testRejectUndeclaredKind(t *testing.T, filters []model.TriggerFilter) {
	decision := Evaluate(filters, model.Event{Kind: "schedule", Ref: "main"})
	require.False(t, decision.Accepted)
	require.Equal(t, REASON_KIND_NOT_DECLARED, decision.Reason)
}

func testAcceptAnyRefWithoutBranches(t *testing.T, filters []model.TriggerFilter) {
	decision := Evaluate(filters, model.Event{Kind: "pull_request", Ref: "feature/anything"})
	require.True(t, decision.Accepted)

	decision = Evaluate(filters, model.Event{Kind: "pull_request"})
	require.True(t, decision.Accepted)
}

func testRejectMissingRef(t *testing.T, filters []model.TriggerFilter) {
	decision := Evaluate(filters, model.Event{Kind: "push"})
	require.False(t, decision.Accepted)
	require.Equal(t, model.REASON_MALFORMED_EVENT, decision.Reason)
}

func TestValidateFilters(t *testing.T) {
	err := ValidateFilters(buildFilters())
	require.NoError(t, err)

	err = ValidateFilters([]model.TriggerFilter{{Kind: ""}})
	require.Error(t, err)

	err = ValidateFilters([]model.TriggerFilter{{Kind: "push", Branches: []string{""}}})
	require.Error(t, err)
}

func TestValidateFiltersRejectsPatternSyntax(t *testing.T) {
	for _, branch := range []string{"release/*", "main?", "v[12]"} {
		err := ValidateFilters([]model.TriggerFilter{{Kind: "push", Branches: []string{branch}}})
		require.Error(t, err)
		require.Contains(t, err.Error(), "pattern syntax")
	}
}

func TestShortRef(t *testing.T) {
	require.Equal(t, "main", ShortRef("refs/heads/main"))
	require.Equal(t, "v1.0", ShortRef("refs/tags/v1.0"))
	require.Equal(t, "main", ShortRef("main"))
}
