package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile(`{(.*?)}`)

const secretTokenPrefix = "secrets."

// SecretLookup resolves one named secret at execution time. Resolved values
// flow straight into the step environment and are never stored on the run.
type SecretLookup func(name string) (string, bool)

// ResolveTokens substitutes {...} tokens in every value of params. Tokens
// starting with $ are jsonpath lookups against the run data view, tokens of
// the form secrets.NAME go through the secret lookup. A secret that cannot
// be resolved is an error, an unresolvable jsonpath yields an empty string.
func ResolveTokens(params map[string]string, data map[string]any, secrets SecretLookup) (map[string]string, error) {
	if len(params) == 0 {
		return params, nil
	}
	output := make(map[string]string, len(params))
	for k, v := range params {
		resolved, err := ResolveTokenString(v, data, secrets)
		if err != nil {
			return nil, err
		}
		output[k] = resolved
	}
	return output, nil
}

func ResolveTokenString(value string, data map[string]any, secrets SecretLookup) (string, error) {
	tokens := tokenPattern.FindAllString(value, -1)
	for _, token := range tokens {
		tmatch := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		switch {
		case strings.HasPrefix(tmatch, secretTokenPrefix):
			name := strings.TrimPrefix(tmatch, secretTokenPrefix)
			secretValue, ok := secrets(name)
			if !ok {
				return "", fmt.Errorf("secret %s not resolvable", name)
			}
			value = strings.ReplaceAll(value, token, secretValue)
		case strings.HasPrefix(tmatch, "$"):
			lookup, err := jsonpath.JsonPathLookup(data, tmatch)
			if err != nil {
				lookup = ""
			}
			value = strings.ReplaceAll(value, token, fmt.Sprintf("%v", lookup))
		}
	}
	return value, nil
}
