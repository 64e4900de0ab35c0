package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type academicService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewAcademicService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) AcademicService {
	return &academicService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// SetCurrentSession clears every current session and marks one, atomically
func (s *academicService) SetCurrentSession(ctx context.Context, principal models.Principal, id uint) (*models.AcademicSession, error) {
	if !principal.IsSuperuser() {
		return nil, NewPermissionError(principal.UserID, id, "academic_session", "set_current", "admin only")
	}

	var session *models.AcademicSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Academic().ClearCurrentSessions(ctx, tx); err != nil {
			return err
		}
		if err := s.repo.Academic().MarkSessionCurrent(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAcademicSessionNotFound
			}
			return err
		}

		var err error
		session, err = s.repo.Academic().GetSession(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to get academic session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Current academic session changed", "session_id", id, "user_id", principal.UserID)
	return session, nil
}

func (s *academicService) SetCurrentSemester(ctx context.Context, principal models.Principal, id uint) (*models.Semester, error) {
	if !principal.IsSuperuser() {
		return nil, NewPermissionError(principal.UserID, id, "semester", "set_current", "admin only")
	}

	var semester *models.Semester
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Academic().ClearCurrentSemesters(ctx, tx); err != nil {
			return err
		}
		if err := s.repo.Academic().MarkSemesterCurrent(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSemesterNotFound
			}
			return err
		}

		var err error
		semester, err = s.repo.Academic().GetSemester(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to get semester: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Current semester changed", "semester_id", id, "user_id", principal.UserID)
	return semester, nil
}

func (s *academicService) Current(ctx context.Context) (*repositories.CurrentTerm, error) {
	term, err := s.repo.Academic().Current(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to get current term: %w", err)
	}
	return term, nil
}
