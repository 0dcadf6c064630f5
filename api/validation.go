package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type chatRequest struct {
	Message  string `json:"message" validate:"required,max=5000"`
	Language string `json:"language" validate:"required"`
}

type analyzeTextRequest struct {
	Content  string `json:"content" validate:"required,max=10000"`
	Language string `json:"language" validate:"required"`
}

// validationMessage flattens validator errors into a client-facing
// message naming the offending fields.
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Invalid request"
	}

	var problems []string
	for _, fieldError := range validationErrors {
		field := strings.ToLower(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", field))
		case "max":
			problems = append(problems, fmt.Sprintf("%s exceeds maximum length of %s", field, fieldError.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(problems, "; ")
}
