package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func resolverData() map[string]any {
	return map[string]any{
		"run":   map[string]any{"id": "run-1", "job": "build"},
		"event": map[string]any{"kind": "push", "branch": "main"},
		"env":   map[string]any{"VERSION": "2.0"},
	}
}

func noSecrets(name string) (string, bool) {
	return "", false
}

func TestResolveTokens(t *testing.T) {
	secrets := func(name string) (string, bool) {
		if name == "api_token" {
			return "s3cr3t", true
		}
		return "", false
	}
	for scenario, tc := range map[string]struct {
		value    string
		expected string
	}{
		"plain value passes through": {"hello world", "hello world"},
		"jsonpath token":             {"{$.event.branch}", "main"},
		"concatenation":              {"deploy-{$.run.id}-{$.env.VERSION}", "deploy-run-1-2.0"},
		"secret token":               {"{secrets.api_token}", "s3cr3t"},
		"mixed tokens":               {"{$.run.job}:{secrets.api_token}", "build:s3cr3t"},
		"unresolvable path":          {"{$.event.missing}", ""},
	} {
		t.Run(scenario, func(t *testing.T) {
			resolved, err := ResolveTokens(map[string]string{"value": tc.value}, resolverData(), secrets)
			require.NoError(t, err)
			require.Equal(t, tc.expected, resolved["value"])
		})
	}
}

func TestResolveTokensMissingSecret(t *testing.T) {
	_, err := ResolveTokens(map[string]string{"key": "{secrets.missing}"}, resolverData(), noSecrets)
	require.EqualError(t, err, "secret missing not resolvable")
}

func TestResolveTokensEmptyParams(t *testing.T) {
	resolved, err := ResolveTokens(nil, resolverData(), noSecrets)
	require.NoError(t, err)
	require.Empty(t, resolved)
}
