package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns validator output into a ValidationError listing every bad field.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperrors.Validation("%s", err.Error())
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, formatFieldError(fe))
	}
	return apperrors.Validation("%s", strings.Join(out, ", "))
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed validation for '%s'", fe.Field(), fe.Tag())
}
