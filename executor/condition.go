package executor

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

// evaluateCondition runs a step's if expression in a javascript vm. The
// run data view is bound to $, so expressions read like
// $.event.ref == "main" or $.env.RELEASE == "true". The truthiness of the
// final value decides whether the step runs.
func evaluateCondition(expression string, data map[string]any) (bool, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf("var $ = %s;\n%s", payload, expression)
	vm := goja.New()
	value, err := vm.RunString(script)
	if err != nil {
		return false, fmt.Errorf("error evaluating condition %w", err)
	}
	return value.ToBoolean(), nil
}
