// Package template provides expression rendering for dynamic node
// configuration and sub-workflow input mapping.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/weftwork/weft/pkg/models"
)

// RenderWithContext renders an expression against one node invocation's view:
// input data, previous node outputs, the execution's global context, and the
// environment.
func RenderWithContext(input string, ectx *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"input":   ectx.Input,
		"nodes":   ectx.PreviousOutputs,
		"env":     getEnvVars(),
		"execution": map[string]any{
			"id":      ectx.ExecutionID,
			"flow_id": ectx.FlowID,
			"node_id": ectx.NodeID,
		},
	}

	if ectx.Global != nil {
		data["global"] = ectx.Global.Snapshot()
	}

	return Render(input, data)
}

// Render evaluates a text/template expression and coerces the textual result
// back into JSON, numeric, or boolean values where they parse.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("expr").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		if err := json.Unmarshal([]byte(result), &jsonResult); err == nil {
			return jsonResult, nil
		}
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// NeedsTemplating reports whether a string contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
