package validation

import (
	"errors"
	"strings"
)

// ErrInvalid matches every validation failure via errors.Is.
var ErrInvalid = errors.New("validation failed")

// Error is one rejected field.
type Error struct {
	Field string
	Rule  Rule
	Msg   string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Msg
}

func (e *Error) Is(target error) bool { return target == ErrInvalid }

// Errors collects every rejected field of one input, in rule order.
type Errors []*Error

func (es Errors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (es Errors) Is(target error) bool { return target == ErrInvalid }

// Err returns nil when nothing was rejected, so callers never see a typed nil.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// Fields maps each rejected field to its first message.
func (es Errors) Fields() map[string]string {
	out := make(map[string]string, len(es))
	for _, e := range es {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Msg
		}
	}
	return out
}

// Has reports whether rule rejected any field.
func (es Errors) Has(rule Rule) bool {
	for _, e := range es {
		if e.Rule == rule {
			return true
		}
	}
	return false
}

// Collect keeps the failed results, reporting at most one failure per field.
func Collect(results ...Result) Errors {
	var out Errors
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.OK() {
			continue
		}
		if _, dup := seen[r.Err.Field]; dup {
			continue
		}
		seen[r.Err.Field] = struct{}{}
		out = append(out, r.Err)
	}
	return out
}

// IsInvalid reports whether err carries a validation failure.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }

// AsErrors extracts the field errors from err, if any.
func AsErrors(err error) (Errors, bool) {
	var es Errors
	if errors.As(err, &es) {
		return es, true
	}
	var e *Error
	if errors.As(err, &e) {
		return Errors{e}, true
	}
	return nil, false
}
