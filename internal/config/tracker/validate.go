package tracker

import "fmt"

// ValidateShape confirms the raw payload matches the fixed tracker-config
// shape: the top level is a mapping (nil is treated as empty), "default" and
// "extra" are sequences of text when present, and "proxy" is a mapping when
// present and non-null. It does not mutate its input.
func ValidateShape(raw map[string]any) error {
	for _, field := range []string{"default", "extra"} {
		value, ok := raw[field]
		if !ok || value == nil {
			continue
		}
		if _, err := stringList(value, field); err != nil {
			return err
		}
	}

	if value, ok := raw["proxy"]; ok && value != nil {
		if _, ok := value.(map[string]any); !ok {
			return ValidationError{Kind: KindShape, Field: "proxy", Reason: "must be a mapping"}
		}
	}

	return nil
}

// stringList coerces a payload value into a string slice. Payloads decoded
// from JSON arrive as []any; callers constructing payloads in Go may pass
// []string directly.
func stringList(value any, field string) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, entry := range v {
			text, ok := entry.(string)
			if !ok {
				return nil, ValidationError{
					Kind:   KindShape,
					Field:  fmt.Sprintf("%s[%d]", field, i),
					Reason: "entries must be strings",
				}
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, ValidationError{Kind: KindShape, Field: field, Reason: "must be a sequence of strings"}
	}
}
