package definition

import (
	"testing"

	"github.com/mohitkumar/conveyor/model"
	"github.com/stretchr/testify/require"
)

const fullWorkflowYaml = `
name: release
on:
  - kind: push
    branches: [main, release]
  - kind: schedule
env:
  REGION: eu-west-1
jobs:
  zeta:
    steps:
      - name: compile
        kind: shell
        with:
          command: make build
        env:
          CC: clang
  alpha:
    needs: [zeta]
    env:
      SUITE: integration
    steps:
      - name: test
        kind: shell
        with:
          command: make test
        continue-on-error: true
        retry:
          count: 2
          interval-seconds: 5
          policy: backoff
  mike:
    needs: [zeta, alpha]
    steps:
      - name: publish
        kind: shell
        if: $.event.branch === 'main'
        with:
          command: make publish
`

func TestParseFullWorkflow(t *testing.T) {
	wf, err := Parse([]byte(fullWorkflowYaml))
	require.NoError(t, err)

	require.Equal(t, "release", wf.Name)
	require.Equal(t, "eu-west-1", wf.Env["REGION"])
	require.Len(t, wf.On, 2)
	require.Equal(t, "push", wf.On[0].Kind)
	require.Equal(t, []string{"main", "release"}, wf.On[0].Branches)
	require.Empty(t, wf.On[1].Branches)

	// document order, not lexical order
	require.Len(t, wf.Jobs, 3)
	require.Equal(t, "zeta", wf.Jobs[0].Name)
	require.Equal(t, "alpha", wf.Jobs[1].Name)
	require.Equal(t, "mike", wf.Jobs[2].Name)

	alpha := wf.Jobs[1]
	require.Equal(t, []string{"zeta"}, alpha.Needs)
	require.Equal(t, "integration", alpha.Env["SUITE"])
	require.Len(t, alpha.Steps, 1)
	require.True(t, alpha.Steps[0].ContinueOnError)
	require.NotNil(t, alpha.Steps[0].Retry)
	require.Equal(t, 2, alpha.Steps[0].Retry.Count)
	require.Equal(t, 5, alpha.Steps[0].Retry.IntervalSeconds)
	require.Equal(t, model.RETRY_POLICY_BACKOFF, alpha.Steps[0].Retry.Policy)

	mike := wf.Jobs[2]
	require.Equal(t, []string{"zeta", "alpha"}, mike.Needs)
	require.Equal(t, "$.event.branch === 'main'", mike.Steps[0].If)

	compile := wf.Jobs[0].Steps[0]
	require.Equal(t, "make build", compile.With["command"])
	require.Equal(t, "clang", compile.Env["CC"])
	require.Nil(t, compile.Retry)
}

func TestParseDefaultRetryPolicy(t *testing.T) {
	doc := `
name: ci
jobs:
  build:
    steps:
      - name: compile
        kind: shell
        with:
          command: make
        retry:
          count: 1
`
	wf, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, model.RETRY_POLICY_FIXED, wf.Jobs[0].Steps[0].Retry.Policy)
}

func TestParseUnknownRetryPolicy(t *testing.T) {
	doc := `
name: ci
jobs:
  build:
    steps:
      - name: compile
        kind: shell
        retry:
          count: 1
          policy: jitter
`
	_, err := Parse([]byte(doc))
	require.ErrorContains(t, err, "unknown retry policy jitter")
}

func TestParseJobsMustBeMapping(t *testing.T) {
	doc := `
name: ci
jobs:
  - build
  - test
`
	_, err := Parse([]byte(doc))
	require.ErrorContains(t, err, "mapping")
}

func TestParseMissingJobs(t *testing.T) {
	doc := `
name: ci
on:
  - kind: push
`
	_, err := Parse([]byte(doc))
	require.ErrorContains(t, err, "no jobs defined")
}

func TestParseInvalidYaml(t *testing.T) {
	_, err := Parse([]byte("name: [unclosed"))
	require.ErrorContains(t, err, "error parsing workflow yaml")
}
