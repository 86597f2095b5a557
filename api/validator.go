package api

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Rhejna/missing-person-app/apperr"
)

// NewValidator returns a validator knowing the lat and lng tags
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("lat", func(fl validator.FieldLevel) bool {
		lat := fl.Field().Float()
		return lat >= -90 && lat <= 90
	})
	_ = v.RegisterValidation("lng", func(fl validator.FieldLevel) bool {
		lng := fl.Field().Float()
		return lng >= -180 && lng <= 180
	})
	return v
}

// ValidationError turns validator output into an apperr validation error
// naming each failing field
func ValidationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("%v", err)
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}
