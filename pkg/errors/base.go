package errors

import (
	"fmt"
	"strings"
)

/*
Error aggregates any mix of errors and loose context messages into a single
error value. Call sites usually pass a short context string followed by the
underlying error.
*/
type Error struct {
	Errs []error
	Msgs []any
}

func NewError(errs ...any) error {
	err := &Error{}

	for _, msg := range errs {
		switch v := msg.(type) {
		case error:
			err.Errs = append(err.Errs, v)
		default:
			err.Msgs = append(err.Msgs, v)
		}
	}

	return err
}

func (err *Error) Error() string {
	builder := &strings.Builder{}

	for _, msg := range err.Msgs {
		builder.WriteString(fmt.Sprintf("%v: ", msg))
	}

	parts := make([]string, 0, len(err.Errs))
	for _, inner := range err.Errs {
		parts = append(parts, inner.Error())
	}
	builder.WriteString(strings.Join(parts, "; "))

	return strings.TrimSuffix(strings.TrimSpace(builder.String()), ":")
}

// Unwrap exposes the aggregated errors to errors.Is and errors.As.
func (err *Error) Unwrap() []error {
	return err.Errs
}
