package errors

import (
	"fmt"
)

var ErrFieldNotFound = fmt.Errorf("field not found")
var ErrDiscriminatorMissing = fmt.Errorf("discriminator missing")
var ErrDiscriminatorUnknown = fmt.Errorf("discriminator unknown")
var ErrInvalidEnumValue = fmt.Errorf("invalid enum value")
var ErrInvalidFieldValue = fmt.Errorf("invalid field value")
var ErrUnknownType = fmt.Errorf("unknown entity type")
var ErrNotReadable = fmt.Errorf("property not readable")
var ErrNotWritable = fmt.Errorf("property not writable")
var ErrNotFound = fmt.Errorf("not found")
var ErrMaxDepth = fmt.Errorf("maximum nesting depth exceeded")
var ErrBadRequest = fmt.Errorf("bad request")
var ErrInvalidRequest = fmt.Errorf("invalid request")
var ErrInternal = fmt.Errorf("internal error")
var ErrRequest = fmt.Errorf("request error")
var ErrBadResponse = fmt.Errorf("bad response")

type myError struct {
	msg    string
	target error
	cause  error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }
func (m myError) Unwrap() error        { return m.cause }

// NewFieldNotFoundError signals that a key is absent from every source of a value bag
func NewFieldNotFoundError(key string) error {
	return &myError{
		msg:    fmt.Sprintf("field %q not found in request", key),
		target: ErrFieldNotFound,
	}
}

func NewDiscriminatorMissingError(entityType, column string) error {
	return &myError{
		msg: fmt.Sprintf(
			"the superclass %s cannot be resolved as the discriminator value %q has not been found in the request",
			entityType, column,
		),
		target: ErrDiscriminatorMissing,
	}
}

func NewDiscriminatorUnknownError(entityType string, value any) error {
	return &myError{
		msg: fmt.Sprintf(
			"the superclass %s cannot be resolved as the discriminator value \"%v\" does not match any subclass",
			entityType, value,
		),
		target: ErrDiscriminatorUnknown,
	}
}

func NewInvalidEnumValueError(field string, value any) error {
	return &myError{
		msg:    fmt.Sprintf("value \"%v\" is not a member of the enumeration for field %s", value, field),
		target: ErrInvalidEnumValue,
	}
}

func NewInvalidFieldValueError(field string, cause error) error {
	return &myError{
		msg:    fmt.Sprintf("invalid value for field %s: %s", field, cause.Error()),
		target: ErrInvalidFieldValue,
	}
}

func NewUnknownTypeError(entityType string) error {
	return &myError{
		msg:    fmt.Sprintf("no metadata registered for entity type %s", entityType),
		target: ErrUnknownType,
	}
}

func NewNotReadableError(entityType, property string) error {
	return &myError{
		msg:    fmt.Sprintf("property %s of %s is not readable", property, entityType),
		target: ErrNotReadable,
	}
}

func NewNotWritableError(entityType, property string) error {
	return &myError{
		msg:    fmt.Sprintf("property %s of %s is not writable", property, entityType),
		target: ErrNotWritable,
	}
}

func NewNotFoundError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrNotFound,
	}
}

func NewMaxDepthError(depth int) error {
	return &myError{
		msg:    fmt.Sprintf("request nesting exceeds the maximum depth of %d", depth),
		target: ErrMaxDepth,
	}
}

// NewBadRequestDataError marks cause as the fault of the request data. The
// returned error still matches cause with errors.Is.
func NewBadRequestDataError(cause error) error {
	return &myError{
		msg:    cause.Error(),
		target: ErrBadRequest,
		cause:  cause,
	}
}

func NewInvalidRequestError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInvalidRequest,
	}
}

func NewUnexpectedError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInternal,
	}
}
