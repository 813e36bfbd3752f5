package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-settlement/pkg/utils"
)

// NewValidator returns a validator that compares decimal amounts exactly and
// understands the cpf and mobile tags. It panics if a tag cannot be registered.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated from their exact string form, never as float64
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	if err := registerValidations(v, customValidations); err != nil {
		panic(err)
	}

	return v
}

var customValidations = map[string]validator.Func{
	"cpf": func(fl validator.FieldLevel) bool {
		_, ok := utils.NormalizeTaxID(fl.Field().String())
		return ok
	},
	"mobile": func(fl validator.FieldLevel) bool {
		_, ok := utils.NormalizeMobile(fl.Field().String())
		return ok
	},
	"dgt0": func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	},
	"dgte0": func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	},
}

func registerValidations(v *validator.Validate, validations map[string]validator.Func) error {
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return nil
}

// validationMessage turns validator output into one line per failed field
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "cpf":
			parts = append(parts, fmt.Sprintf("%s must be a valid CPF", fe.Field()))
		case "mobile":
			parts = append(parts, fmt.Sprintf("%s must be an 11-digit mobile number", fe.Field()))
		case "dgt0":
			parts = append(parts, fmt.Sprintf("%s must be greater than 0", fe.Field()))
		case "dgte0":
			parts = append(parts, fmt.Sprintf("%s must not be negative", fe.Field()))
		case "datetime":
			parts = append(parts, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}
