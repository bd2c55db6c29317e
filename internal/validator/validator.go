// Package validator validates request payloads with custom rules for the
// token grammar.
package validator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/agentmint-dev/agentmint/internal/errors"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("subject", validateSubject)
	validate.RegisterValidation("action", validateAction)
}

// ValidateStruct validates a struct against its validate tags.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// BindAndValidate binds the JSON body and validates it. On failure it returns
// a validation error whose detail names the offending fields; the client
// still receives only the categorical message.
func BindAndValidate(c *gin.Context, req interface{}) *apperrors.AppError {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperrors.Validation("malformed request body: " + err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return apperrors.Validation(formatErrors(err))
	}
	return nil
}

func formatErrors(err error) string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "subject":
			msgs = append(msgs, fmt.Sprintf("%s must be 1-256 characters without control characters", field))
		case "action":
			msgs = append(msgs, fmt.Sprintf("%s must be 1-64 characters from [A-Za-z0-9_:-]", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// validateSubject enforces 1-256 characters with no control characters.
func validateSubject(fl validator.FieldLevel) bool {
	sub := fl.Field().String()
	n := len([]rune(sub))
	if n < 1 || n > 256 {
		return false
	}
	for _, r := range sub {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// validateAction enforces 1-64 characters from [A-Za-z0-9_:-].
func validateAction(fl validator.FieldLevel) bool {
	action := fl.Field().String()
	if len(action) < 1 || len(action) > 64 {
		return false
	}
	for i := 0; i < len(action); i++ {
		c := action[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_' || c == ':' || c == '-':
		default:
			return false
		}
	}
	return true
}
