package models

import "strconv"

// ExecutionContext is the immutable view handed to one node invocation. It is
// owned by the engine for the duration of the call; nodes must not retain it.
type ExecutionContext struct {
	ExecutionID string `json:"execution_id"`
	FlowID      string `json:"flow_id"`
	NodeID      string `json:"node_id"`
	NodeType    string `json:"node_type"`
	UserID      string `json:"user_id,omitempty"`

	// Input is the merged output of the upstream nodes feeding this node.
	Input map[string]any `json:"input,omitempty"`

	// Config is the static, author-supplied node configuration.
	Config map[string]any `json:"config,omitempty"`

	// Global references the execution's shared key/value store.
	Global *GlobalContext `json:"-"`

	// PreviousOutputs holds the outputs of all previously completed nodes,
	// keyed by node ID.
	PreviousOutputs map[string]map[string]any `json:"previous_outputs,omitempty"`
}

// ResumeData returns the resume payload injected by the engine, if this
// invocation is a resume rather than a fresh one.
func (c ExecutionContext) ResumeData() (map[string]any, bool) {
	if c.Global == nil {
		return nil, false
	}

	v, ok := c.Global.Get(ResumeDataKey)
	if !ok {
		return nil, false
	}

	data, ok := v.(map[string]any)
	if !ok || len(data) == 0 {
		return nil, false
	}

	return data, true
}

// StringConfig returns the config value under key as a string, or fallback.
func (c ExecutionContext) StringConfig(key, fallback string) string {
	v, ok := c.Config[key]
	if !ok || v == nil {
		return fallback
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fallback
}

// IntConfig returns the config value under key as an int, accepting JSON
// numbers and numeric strings.
func (c ExecutionContext) IntConfig(key string, fallback int) int {
	v, ok := c.Config[key]
	if !ok || v == nil {
		return fallback
	}

	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}

	return fallback
}

// FloatConfig returns the config value under key as a float64.
func (c ExecutionContext) FloatConfig(key string, fallback float64) float64 {
	v, ok := c.Config[key]
	if !ok || v == nil {
		return fallback
	}

	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			return parsed
		}
	}

	return fallback
}

// BoolConfig returns the config value under key as a bool.
func (c ExecutionContext) BoolConfig(key string, fallback bool) bool {
	v, ok := c.Config[key]
	if !ok || v == nil {
		return fallback
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}

	return fallback
}

// MapConfig returns the config value under key as a map, or an empty map.
func (c ExecutionContext) MapConfig(key string) map[string]any {
	if m, ok := c.Config[key].(map[string]any); ok {
		return m
	}

	return map[string]any{}
}
