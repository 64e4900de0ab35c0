package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground/validator with the quiz rules registered.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

func New() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	business := newBusinessValidator(validate)
	return &Validator{validate: validate, business: business}
}

// Validate runs struct tags and then the request specific business rules.
// It returns nil or a ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	var errs ValidationErrors
	if err := v.validate.Struct(s); err != nil {
		errs = append(errs, ToValidationErrors(err)...)
	}
	errs = append(errs, v.business.Check(s)...)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Var validates a single value against a tag.
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts validator output into ValidationErrors.
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "ai_question_types":
		return "must be a non-empty list of multiple_choice, true_false or short_answer"
	case "ai_difficulty":
		return "must be beginner, intermediate or advanced"
	case "topic_list":
		return "must contain at most 10 comma separated topics"
	case "question_kind":
		return "must be multiple_choice or essay"
	case "choice_order":
		return "must be content, random or none"
	case "essay_mark":
		return "must be 0 or 1"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
