package dispatch

import (
	"fmt"
	"strconv"

	"github.com/weftwork/weft/pkg/models"
)

// FieldKind is the declared type of an operation field.
type FieldKind string

const (
	KindString   FieldKind = "string"
	KindInteger  FieldKind = "integer"
	KindNumber   FieldKind = "number"
	KindBoolean  FieldKind = "boolean"
	KindEnum     FieldKind = "enum"
	KindTextarea FieldKind = "textarea"
)

// Field declares one typed parameter of an operation.
type Field struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Kind        FieldKind `json:"kind"`
	Required    bool      `json:"required,omitempty"`
	Default     any       `json:"default,omitempty"`
	Options     []string  `json:"options,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
}

// ValidationError reports a parameter that failed field validation. It is
// surfaced immediately and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field '%s': %s", e.Field, e.Reason)
}

// ValidateParams checks supplied parameters against the declared fields,
// coercing where possible and applying declared defaults for absent optional
// fields. The returned map contains only declared fields.
func ValidateParams(fields []Field, params map[string]any) (map[string]any, error) {
	validated := make(map[string]any, len(fields))

	for _, field := range fields {
		value, present := params[field.Name]
		if !present || value == nil || value == "" {
			if field.Required {
				return nil, &ValidationError{Field: field.Name, Reason: "required field is missing"}
			}

			if field.Default != nil {
				validated[field.Name] = field.Default
			}

			continue
		}

		coerced, err := field.coerce(value)
		if err != nil {
			return nil, err
		}

		validated[field.Name] = coerced
	}

	return validated, nil
}

func (f Field) coerce(value any) (any, error) {
	switch f.Kind {
	case KindString, KindTextarea:
		if s, ok := value.(string); ok {
			return s, nil
		}

		return fmt.Sprint(value), nil

	case KindEnum:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("expected one of %v, got %T", f.Options, value)}
		}

		for _, option := range f.Options {
			if s == option {
				return s, nil
			}
		}

		return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("value %q is not one of %v", s, f.Options)}

	case KindInteger:
		n, err := toInt(value)
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Reason: "expected integer, got " + fmt.Sprintf("%T", value)}
		}

		if err := f.checkRange(float64(n)); err != nil {
			return nil, err
		}

		return n, nil

	case KindNumber:
		n, err := toFloat(value)
		if err != nil {
			return nil, &ValidationError{Field: f.Name, Reason: "expected number, got " + fmt.Sprintf("%T", value)}
		}

		if err := f.checkRange(n); err != nil {
			return nil, err
		}

		return n, nil

	case KindBoolean:
		switch b := value.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err == nil {
				return parsed, nil
			}
		}

		return nil, &ValidationError{Field: f.Name, Reason: "expected boolean, got " + fmt.Sprintf("%T", value)}

	default:
		return value, nil
	}
}

func (f Field) checkRange(n float64) error {
	if f.Min != nil && n < *f.Min {
		return &ValidationError{Field: f.Name, Reason: fmt.Sprintf("value %v is below minimum %v", n, *f.Min)}
	}

	if f.Max != nil && n > *f.Max {
		return &ValidationError{Field: f.Name, Reason: fmt.Sprintf("value %v is above maximum %v", n, *f.Max)}
	}

	return nil
}

func toInt(value any) (int, error) {
	switch n := value.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}

		return 0, fmt.Errorf("not an integer: %v", n)
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("not an integer: %T", value)
	}
}

func toFloat(value any) (float64, error) {
	switch n := value.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", value)
	}
}

func (f Field) toProperty() *models.Property {
	prop := &models.Property{
		Title:       f.DisplayName,
		Description: f.Description,
		Default:     f.Default,
		Minimum:     f.Min,
		Maximum:     f.Max,
	}

	switch f.Kind {
	case KindInteger:
		prop.Type = "integer"
	case KindNumber:
		prop.Type = "number"
	case KindBoolean:
		prop.Type = "boolean"
	case KindEnum:
		prop.Type = "string"
		for _, option := range f.Options {
			prop.Enum = append(prop.Enum, option)
		}
	case KindTextarea:
		prop.Type = "string"
		prop.Format = "textarea"
	default:
		prop.Type = "string"
	}

	return prop
}
