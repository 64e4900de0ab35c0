package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// getDB returns the transaction when one is supplied, otherwise the base handle
func (h *SharedHelpers) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return h.db
}

// forUpdate adds a row lock. Dialects without FOR UPDATE ignore the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// ApplyPagination clamps and applies limit/offset
func (h *SharedHelpers) ApplyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	limit, offset = repositories.NormalizePage(limit, offset)
	return query.Limit(limit).Offset(offset)
}

// ApplySorting orders by a whitelisted column, newest first by default
func (h *SharedHelpers) ApplySorting(query *gorm.DB, sortBy, sortOrder string, allowed map[string]string) *gorm.DB {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed["created_at"]
	}
	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	return query.Order(fmt.Sprintf("%s %s", column, direction))
}

// CountQuizQuestions returns question counts keyed by quiz id
func (h *SharedHelpers) CountQuizQuestions(ctx context.Context, db *gorm.DB, quizIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(quizIDs))
	if len(quizIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		QuizID uint
		Count  int
	}
	err := db.WithContext(ctx).
		Table("quiz_questions").
		Select("quiz_id, COUNT(*) AS count").
		Where("quiz_id IN ?", quizIDs).
		Group("quiz_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count quiz questions: %w", err)
	}

	for _, row := range rows {
		counts[row.QuizID] = row.Count
	}
	return counts, nil
}

// containsFold builds a case-insensitive LIKE that works on postgres and sqlite
func containsFold(query *gorm.DB, column, value string) *gorm.DB {
	return query.Where(fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", column), "%"+value+"%")
}
