package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "github.com/segyhp/loan-ledger/pkg/errors"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator. decimal.Decimal fields validate as
// their exact text and are compared with the dgt, dgte and dlte tags, never
// through float64. civil.Date fields validate as their YYYY-MM-DD text, empty
// when the date is unset or invalid.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		v.RegisterCustomTypeFunc(dateValue, civil.Date{})

		for tag, holds := range decimalRules {
			if err := v.RegisterValidation(tag, decimalRule(holds)); err != nil {
				panic(fmt.Sprintf("register %s validation: %v", tag, err))
			}
		}

		// Report json names so errors match the request bodies clients send.
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})

		instance = v
	})
	return instance
}

func decimalValue(field reflect.Value) interface{} {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	return d.String()
}

// decimalRules compare a decimal field with the tag parameter via Cmp.
var decimalRules = map[string]func(cmp int) bool{
	"dgt":  func(cmp int) bool { return cmp > 0 },
	"dgte": func(cmp int) bool { return cmp >= 0 },
	"dlte": func(cmp int) bool { return cmp <= 0 },
}

func decimalRule(holds func(cmp int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		var value decimal.Decimal
		switch f := fl.Field().Interface().(type) {
		case decimal.Decimal:
			value = f
		case string:
			parsed, err := decimal.NewFromString(f)
			if err != nil {
				return false
			}
			value = parsed
		default:
			return false
		}

		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return holds(value.Cmp(bound))
	}
}

func dateValue(field reflect.Value) interface{} {
	d, ok := field.Interface().(civil.Date)
	if !ok || !d.IsValid() {
		return ""
	}
	return d.String()
}

// Struct validates s and converts the first failure into a ValidationError.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return apperrors.NewValidationError(fieldPath(fe), reason(fe))
	}

	return apperrors.NewValidationError("", err.Error())
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte", "dgte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gt", "dgt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte", "dlte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "numeric":
		return "must be numeric"
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}
