package codec

import "fmt"

// FormatError reports a flattened string that cannot be split into its fields.
type FormatError struct {
	Field string
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s %q: %v", e.Field, e.Input, e.Err)
	}
	return fmt.Sprintf("malformed %s %q", e.Field, e.Input)
}

func (e *FormatError) Unwrap() error { return e.Err }

// UnknownKeyError reports a key that does not resolve to a known value,
// e.g. an unparseable rating descriptor or an unmatched display number.
type UnknownKeyError struct {
	Kind string
	Key  string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown %s: %s", e.Kind, e.Key)
}
