// Package validator wraps go-playground/validator with decimal-aware rules.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	customError "github.com/segyhp/sacco-loans/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Validator struct {
	validate *validator.Validate
}

// New returns a validator with decimal_gt and decimal_gte registered and
// field names reported by their json tag.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated through their canonical string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt", decimalCompare(func(d, limit decimal.Decimal) bool {
		return d.GreaterThan(limit)
	}))
	_ = v.RegisterValidation("decimal_gte", decimalCompare(func(d, limit decimal.Decimal) bool {
		return d.GreaterThanOrEqual(limit)
	}))

	return &Validator{validate: v}
}

func decimalCompare(cmp func(d, limit decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		limit, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(d, limit)
	}
}

// Struct validates s and reports failures as a VALIDATION_ERROR business error.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return customError.WrapValidation(err.Error())
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describe(fe))
	}

	return customError.WrapValidation(strings.Join(messages, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "decimal_gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "decimal_gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
