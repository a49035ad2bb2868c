package decode

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

var (
	ErrSyntax       = errors.New("malformed markup")
	ErrInvalidField = errors.New("invalid field value")
	ErrMissingField = errors.New("missing field")
	ErrUnknownKind  = errors.New("unknown message kind")
)

// DecodeError describes why a block could not be converted into a message.
// Either Syntax is set or Field/Value name the offending attribute.
type DecodeError struct {
	Kind   model.Kind
	Syntax bool
	Field  string
	Value  string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Syntax {
		return fmt.Sprintf("decode %s: %v: %v", e.Kind, ErrSyntax, e.Err)
	}
	return fmt.Sprintf("decode %s: field %s=%q: %v", e.Kind, e.Field, e.Value, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e.Syntax {
		return ErrSyntax
	}
	return e.Err
}
