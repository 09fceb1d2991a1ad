// Package rule wraps go-playground/validator and converts its failures into
// catalogue field errors.
package rule

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

var (
	inst *validator.Validate
	once sync.Once
)

// initValidator builds the shared validator; field names in errors follow
// the json tag so messages match what callers sent.
func initValidator() {
	inst = validator.New(validator.WithRequiredStructEnabled())
	inst.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Engine returns the shared *validator.Validate.
func Engine() *validator.Validate {
	once.Do(initValidator)
	return inst
}

// ValidateStruct validates s and returns the first failure as a
// *types.FieldError. Non-validation failures are returned unchanged.
func ValidateStruct(s any) error {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return types.NewFieldError(fe.Field(), reason(fe))
}

// ValidateVar validates a single value against tag, reporting failures
// under the given field name.
func ValidateVar(field string, value any, tag string) error {
	err := Engine().Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return types.NewFieldError(field, reason(verrs[0]))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
