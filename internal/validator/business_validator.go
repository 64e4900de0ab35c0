package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

const maxTopics = 10

// BusinessValidator handles the rules struct tags cannot express
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()
	return bv
}

// Check dispatches to the rules for known request types.
func (bv *BusinessValidator) Check(s interface{}) ValidationErrors {
	switch req := s.(type) {
	case *MCQuestionRequest:
		return bv.validateChoices("choices", req.Choices)
	case *AIQuizConfigRequest:
		return bv.validateAIConfig(req)
	case *ImportRow:
		return bv.validateImportRow(req)
	default:
		return nil
	}
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// AI question types: non-empty subset of the generator's kinds
	bv.validate.RegisterValidation("ai_question_types", func(fl validator.FieldLevel) bool {
		types, ok := fl.Field().Interface().([]models.QuestionType)
		if !ok || len(types) == 0 {
			return false
		}
		for _, t := range types {
			if !slices.Contains(models.AIQuestionTypes, t) {
				return false
			}
		}
		return true
	})

	bv.validate.RegisterValidation("ai_difficulty", func(fl validator.FieldLevel) bool {
		switch models.AIDifficulty(fl.Field().String()) {
		case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
			return true
		}
		return false
	})

	// Topic hints (at most 10 comma separated)
	bv.validate.RegisterValidation("topic_list", func(fl validator.FieldLevel) bool {
		return len(models.SplitTopics(fl.Field().String())) <= maxTopics
	})

	// Authored question kinds
	bv.validate.RegisterValidation("question_kind", func(fl validator.FieldLevel) bool {
		kind := models.QuestionType(strings.TrimSpace(fl.Field().String()))
		return kind == models.MultipleChoice || kind == models.Essay
	})

	bv.validate.RegisterValidation("choice_order", func(fl validator.FieldLevel) bool {
		switch models.ChoiceOrder(fl.Field().String()) {
		case models.ChoiceOrderContent, models.ChoiceOrderRandom, models.ChoiceOrderNone:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("essay_mark", func(fl validator.FieldLevel) bool {
		mark := fl.Field().Int()
		return mark == 0 || mark == 1
	})
}

func (bv *BusinessValidator) validateAIConfig(req *AIQuizConfigRequest) ValidationErrors {
	var errors ValidationErrors

	if req.QuestionsPerSession > req.NumQuestions && req.NumQuestions > 0 {
		errors = append(errors, ValidationError{
			Field:   "questions_per_session",
			Message: "cannot be greater than num_questions",
			Value:   req.QuestionsPerSession,
			Rule:    "business_logic",
		})
	}

	seen := make(map[models.QuestionType]bool, len(req.QuestionTypes))
	for i, t := range req.QuestionTypes {
		if seen[t] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("question_types[%d]", i),
				Message: "is listed more than once",
				Value:   t,
				Rule:    "business_logic",
			})
		}
		seen[t] = true
	}

	return errors
}

// validateChoices enforces at least two choices with exactly one correct.
func (bv *BusinessValidator) validateChoices(field string, choices []ChoiceRequest) ValidationErrors {
	var errors ValidationErrors

	if len(choices) < 2 {
		errors = append(errors, ValidationError{
			Field:   field,
			Message: "must have at least 2 choices",
			Value:   len(choices),
			Rule:    "business_logic",
		})
	}

	correct := 0
	for i, c := range choices {
		if c.Correct {
			correct++
		}
		if strings.TrimSpace(c.Content) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "choice cannot be empty",
				Rule:    "business_logic",
			})
		}
	}
	if correct != 1 {
		errors = append(errors, ValidationError{
			Field:   field,
			Message: "must have exactly one correct choice",
			Value:   correct,
			Rule:    "business_logic",
		})
	}

	return errors
}

func (bv *BusinessValidator) validateImportRow(row *ImportRow) ValidationErrors {
	if row.Type != models.MultipleChoice {
		return nil
	}
	return bv.validateChoices("choices", row.Choices)
}
