package store

import (
	"database/sql"
	"encoding/json"
	"strings"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// encodeJSON serializes value as JSON and returns it as a SQL argument.
// Empty slices are stored as NULL so an untouched column reads back as nil.
func encodeJSON(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// decodeJSON deserializes a nullable JSON SQL value into a string slice.
// NULL and blank values decode to nil.
func decodeJSON(raw sql.NullString) ([]string, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}

	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// nullableString maps "" to NULL so optional text columns never store ''.
func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// nullableInt64 maps a nil pointer to NULL.
func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

// nullableIntPtr maps a nil pointer to NULL.
func nullableIntPtr(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
