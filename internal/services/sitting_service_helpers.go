package services

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ===== VIEW BUILDERS =====

// newQuestionView renders a question without revealing the correct choice
func newQuestionView(question *models.Question) *QuestionView {
	if question == nil {
		return nil
	}
	view := &QuestionView{
		ID:      question.ID,
		Type:    question.Type,
		Content: question.Content,
		Figure:  question.Figure,
	}
	if question.Type == models.MultipleChoice {
		for _, choice := range question.OrderedChoices(nil) {
			view.Choices = append(view.Choices, ChoiceView{ID: choice.ID, Content: choice.Content})
		}
	}
	return view
}

func newSittingProgress(sitting *models.Sitting) SittingProgress {
	total := len(sitting.QuestionOrder)
	answered := sitting.Answered()
	return SittingProgress{
		Answered: answered,
		Total:    total,
		Percent:  models.PercentOf(answered, total),
	}
}

func newAnswerFeedback(question *models.Question, raw string, outcome models.GradeOutcome) *AnswerFeedback {
	feedback := &AnswerFeedback{
		QuestionID:  question.ID,
		Answer:      raw,
		Graded:      outcome.Graded,
		Correct:     outcome.Correct,
		Explanation: question.Explanation,
	}
	if choice := question.CorrectChoice(); choice != nil {
		feedback.CorrectChoiceID = choice.ID
		feedback.CorrectAnswer = choice.Content
	}
	return feedback
}

// buildReview lists answered questions in sitting order
func buildReview(sitting *models.Sitting, questions []*models.Question) []ReviewItem {
	byID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	marks := sitting.Marks()

	items := make([]ReviewItem, 0, len(sitting.QuestionOrder))
	for _, id := range sitting.QuestionOrder {
		answer, answered := sitting.AnswerFor(id)
		question, ok := byID[id]
		if !answered || !ok {
			continue
		}

		item := ReviewItem{
			QuestionID:  id,
			Type:        question.Type,
			Content:     question.Content,
			Answer:      answer,
			Explanation: question.Explanation,
		}
		if sitting.IsEssay(id) {
			if mark, marked := marks[fmt.Sprint(id)]; marked {
				item.EssayMark = &mark
				item.Correct = mark > 0
			}
		} else {
			item.Choices = question.OrderedChoices(nil)
			item.Correct = !sitting.IsIncorrect(id)
			if choice := question.CorrectChoice(); choice != nil {
				item.CorrectChoiceID = choice.ID
			}
		}
		items = append(items, item)
	}
	return items
}

func newSittingResult(sitting *models.Sitting, quiz *models.Quiz, retained bool) *SittingResult {
	result := &SittingResult{
		SittingID:   sitting.ID,
		QuizID:      sitting.QuizID,
		Score:       sitting.Score,
		MaxScore:    sitting.MaxScore(),
		Percent:     sitting.PercentCorrect(),
		Retained:    retained,
		CompletedAt: sitting.EndedAt,
	}
	if quiz != nil {
		result.QuizTitle = quiz.Title
		result.PassMark = quiz.PassMark
		result.Passed = result.Percent >= quiz.PassMark
	}
	return result
}

func resultFromRecord(record *models.QuizResult) *SittingResult {
	completedAt := record.CompletedAt
	result := &SittingResult{
		SittingID:   record.SittingID,
		QuizID:      record.QuizID,
		Score:       record.Score,
		MaxScore:    record.MaxScore,
		Percent:     record.Percent,
		Passed:      record.Passed,
		Retained:    record.Retained,
		CompletedAt: &completedAt,
	}
	if record.Quiz != nil {
		result.QuizTitle = record.Quiz.Title
		result.PassMark = record.Quiz.PassMark
	}
	return result
}

// ===== PERMISSIONS =====

// canManageCourse reports whether the principal may author or mark for a course:
// admins always, lecturers only for courses allocated to them.
func canManageCourse(ctx context.Context, repo repositories.Repository, tx *gorm.DB, principal models.Principal, courseID uint) (bool, error) {
	if principal.IsSuperuser() {
		return true, nil
	}
	if !principal.IsLecturer() {
		return false, nil
	}
	allocated, err := repo.Course().IsAllocated(ctx, tx, principal.UserID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to check course allocation: %w", err)
	}
	return allocated, nil
}

// markingScope returns the course ids a principal may mark; nil means all
func markingScope(ctx context.Context, repo repositories.Repository, tx *gorm.DB, principal models.Principal) ([]uint, error) {
	if principal.IsSuperuser() {
		return nil, nil
	}
	if !principal.IsLecturer() {
		return []uint{}, nil
	}
	ids, err := repo.Course().AllocatedCourseIDs(ctx, tx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allocated courses: %w", err)
	}
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

func questionIDs(questions []*models.Question) (all []uint, essays []uint) {
	all = make([]uint, 0, len(questions))
	for _, q := range questions {
		all = append(all, q.ID)
		if q.IsEssay() {
			essays = append(essays, q.ID)
		}
	}
	return all, essays
}

func findQuestion(questions []*models.Question, id uint) *models.Question {
	idx := slices.IndexFunc(questions, func(q *models.Question) bool { return q.ID == id })
	if idx < 0 {
		return nil
	}
	return questions[idx]
}
