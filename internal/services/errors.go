package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Quiz flow
	ErrAlreadyCompleted  = errors.New("quiz already completed and only one attempt is allowed")
	ErrNoQuestions       = errors.New("quiz has no questions")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrNoMoreQuestions   = errors.New("no more questions available")

	ErrSessionCompleted   = fmt.Errorf("%w: ai quiz session is already completed", ErrInvalidSubmission)
	ErrSittingNotComplete = fmt.Errorf("%w: sitting is not complete", ErrInvalidSubmission)

	// Not found
	ErrQuizNotFound            = errors.New("quiz not found")
	ErrQuestionNotFound        = errors.New("question not found")
	ErrSittingNotFound         = errors.New("sitting not found")
	ErrAIConfigNotFound        = errors.New("ai quiz config not found")
	ErrAISessionNotFound       = errors.New("ai quiz session not found")
	ErrCourseNotFound          = errors.New("course not found")
	ErrAcademicSessionNotFound = errors.New("academic session not found")
	ErrSemesterNotFound        = errors.New("semester not found")

	// AI
	ErrConfiguration = errors.New("ai quiz generation is not configured")

	// Import
	ErrInvalidWorkbook = errors.New("invalid question workbook")
)

// ===== TYPED ERRORS =====

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when the actor may not perform an action
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// BusinessRuleError is returned when a request is well formed but breaks a rule
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

// ConfigurationError means a required setting such as the AI key is missing
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Setting, e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// GenerationError records which stage of AI generation failed. The generator
// logs it and falls back; it never reaches a caller.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("ai generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
