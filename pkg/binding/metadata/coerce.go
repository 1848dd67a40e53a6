package metadata

import (
	"errors"
	"fmt"
	"strings"
	"time"

	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
)

type coerceFunc func(f Field, raw any) (any, error)

var coercers = map[FieldKind]coerceFunc{
	Integer:  func(_ Field, raw any) (any, error) { return weakDecode[int64](raw) },
	Float:    func(_ Field, raw any) (any, error) { return weakDecode[float64](raw) },
	Boolean:  func(_ Field, raw any) (any, error) { return weakDecode[bool](raw) },
	String:   func(_ Field, raw any) (any, error) { return weakDecode[string](raw) },
	Date:     coerceDate,
	DateTime: coerceDateTime,
	Enum:     coerceEnum,
	UUID:     coerceUUID,
}

// Coerce converts a raw request or storage value into the Go value matching the
// declared kind of the field. A nil raw value is returned as is.
func (f Field) Coerce(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	coerce, ok := coercers[f.Kind]
	if !ok {
		return nil, binderrors.NewInvalidFieldValueError(f.Name, fmt.Errorf("unsupported field kind %s", f.Kind))
	}

	value, err := coerce(f, raw)
	if err != nil {
		if isBindingError(err) {
			return nil, err
		}
		return nil, binderrors.NewInvalidFieldValueError(f.Name, err)
	}

	return value, nil
}

func isBindingError(err error) bool {
	return errors.Is(err, binderrors.ErrInvalidEnumValue) || errors.Is(err, binderrors.ErrInvalidFieldValue)
}

func weakDecode[T any](raw any) (T, error) {
	var result T

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &result,
	})
	if err != nil {
		return result, err
	}

	err = decoder.Decode(raw)
	return result, err
}

func coerceDate(f Field, raw any) (any, error) {
	if s, ok := raw.(string); ok {
		var d strfmt.Date
		if err := d.UnmarshalText([]byte(strings.TrimSpace(s))); err == nil {
			return time.Time(d), nil
		}
	}

	return coerceDateTime(f, raw)
}

func coerceDateTime(_ Field, raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case strfmt.DateTime:
		return time.Time(v), nil
	case strfmt.Date:
		return time.Time(v), nil
	case string:
		dt, err := strfmt.ParseDateTime(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		return time.Time(dt), nil
	default:
		return nil, fmt.Errorf("expected a date string but got %T", raw)
	}
}

func coerceEnum(f Field, raw any) (any, error) {
	value := fmt.Sprint(raw)

	for _, member := range f.Values {
		if member == value {
			return member, nil
		}
	}

	return nil, binderrors.NewInvalidEnumValueError(f.Name, raw)
}

func coerceUUID(_ Field, raw any) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		return uuid.FromBytes(v)
	case string:
		return uuid.Parse(strings.TrimSpace(v))
	default:
		return nil, fmt.Errorf("expected a uuid string but got %T", raw)
	}
}
