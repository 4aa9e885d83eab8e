package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// minor_units: a positive integer amount in the currency's smallest unit.
	mustRegister(v, "minor_units", func(fl validator.FieldLevel) bool {
		return isPositiveInteger(fl.Field().String())
	})
	// count: a positive integer such as a quantity or page number.
	mustRegister(v, "count", func(fl validator.FieldLevel) bool {
		return isPositiveInteger(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("gateway: register %q validation: %v", tag, err))
	}
}

// isPositiveInteger accepts canonical decimal integers above zero; leading
// zeros are rejected so the signed value matches what the caller meant.
func isPositiveInteger(s string) bool {
	if s == "" || s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	return err == nil && n > 0
}

// validateRequest runs struct validation and reports the first failing field
// using its JSON path, e.g. "products[1].quantity".
func validateRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	fe := verrs[0]
	return &Error{Kind: KindValidation, Field: fieldPath(fe), Message: describe(fe), Err: err}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "minor_units":
		return "must be a positive integer amount in minor units"
	case "count":
		return "must be a positive integer"
	case "email":
		return "must be a valid email address"
	case "alpha":
		return "must contain letters only"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
