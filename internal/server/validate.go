package server

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/abhisek/timesgrid/internal/mastery"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("guardrail", func(fl validator.FieldLevel) bool {
		_, err := mastery.ParseGuardrail(fl.Field().String())
		return err == nil
	})
	return v
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func fieldErrors(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("field must satisfy %s constraint", fe.Tag()),
		})
	}
	return out
}

// bindJSON decodes the body into dst and validates it.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return validationError("invalid request body", err.Error())
	}
	return check(dst)
}

// bindQuery decodes query parameters into dst and validates it.
func bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return validationError("invalid query", err.Error())
	}
	return check(dst)
}

func check(dst any) error {
	if err := validate.Struct(dst); err != nil {
		return validationError("validation failed", fieldErrors(err))
	}
	return nil
}
