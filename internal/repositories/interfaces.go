package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	CourseID      *uint  `json:"course_id"`
	IncludeDrafts bool   `json:"include_drafts"`
	Category      string `json:"category"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	SortBy        string `json:"sort_by"`    // "created_at", "title"
	SortOrder     string `json:"sort_order"` // "asc", "desc"
}

// SittingFilters scopes the marking list. CourseIDs nil means every course.
type SittingFilters struct {
	QuizTitle string `json:"quiz"`
	UserName  string `json:"user"`
	UserID    string `json:"user_id"`
	CourseIDs []uint `json:"course_ids"`
	ExamOnly  bool   `json:"exam_only"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

type AISessionFilters struct {
	Completed *bool `json:"completed"`
	Limit     int   `json:"limit"`
	Offset    int   `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// CurrentTerm is the pair of current academic rows; either may be nil.
type CurrentTerm struct {
	Session  *models.AcademicSession `json:"session"`
	Semester *models.Semester        `json:"semester"`
}

// ===== ERROR HELPERS =====

func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps limit and offset to sane values.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
