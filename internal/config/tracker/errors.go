package tracker

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a tracker payload was rejected. Every kind is a
// caller-input problem; none are transient.
type ErrorKind string

const (
	// KindShape marks a value that is not the expected mapping/sequence type.
	KindShape ErrorKind = "shape"
	// KindMissingField marks an absent conditionally-required field.
	KindMissingField ErrorKind = "missing_field"
	// KindOutOfRange marks a numeric value outside its documented bound.
	KindOutOfRange ErrorKind = "out_of_range"
	// KindTooLong marks a string exceeding its length limit.
	KindTooLong ErrorKind = "too_long"
	// KindUnsupportedValue marks an enum field holding a value outside its set.
	KindUnsupportedValue ErrorKind = "unsupported_value"
	// KindInvalidType marks a value that is present but not coercible to the
	// expected primitive type.
	KindInvalidType ErrorKind = "invalid_type"
)

// ValidationError reports a rejected tracker payload with field-path context.
type ValidationError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tracker: invalid field %q: %s", e.Field, e.Reason)
}

// KindOf extracts the validation kind from err, unwrapping as needed.
// The second return is false when err is not a ValidationError.
func KindOf(err error) (ErrorKind, bool) {
	var verr ValidationError
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return "", false
}
