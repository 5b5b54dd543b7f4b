package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("latitude", validateLatitude)
	validate.RegisterValidation("longitude", validateLongitude)
	validate.RegisterValidation("issue_type", func(fl validator.FieldLevel) bool {
		return IssueType(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("priority_level", func(fl validator.FieldLevel) bool {
		return PriorityLevel(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("issue_status", func(fl validator.FieldLevel) bool {
		return IssueStatus(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return Role(fl.Field().String()).Valid()
	})
}

func validateLatitude(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90 && lat <= 90
}

func validateLongitude(fl validator.FieldLevel) bool {
	lon := fl.Field().Float()
	return lon >= -180 && lon <= 180
}

// ValidateStruct checks s against its validate tags. Failures wrap ErrValidation
// and name the first offending field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: invalid %s %q", ErrValidation, lowerFirst(fe.Field()), fmt.Sprint(fe.Value()))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
