package shared

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NewValidator returns a validator that understands decimal.Decimal fields, so
// tags such as `gt=0` work on money and size values.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterDecimalType(v)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterDecimalType teaches v to compare decimal.Decimal fields as numbers.
func RegisterDecimalType(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// ValidationErrorFrom converts validator output into a VALIDATION_ERROR listing the failed fields.
func ValidationErrorFrom(code string, err error) *DomainError {
	fields := make([]string, 0)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace()+" "+fe.Tag())
		}
	}
	msg := "invalid input"
	if len(fields) > 0 {
		msg = "invalid input: " + strings.Join(fields, ", ")
	} else if err != nil {
		msg = err.Error()
	}
	return NewValidationError(code, msg).WithDetail("fields", fields)
}
