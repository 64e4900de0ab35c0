package models

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

var (
	ErrSittingClosed  = errors.New("sitting is already complete")
	ErrNotQueueHead   = errors.New("question is not at the head of the queue")
	ErrQueueNotEmpty  = errors.New("sitting still has unanswered questions")
	ErrNotEssay       = errors.New("question is not an essay question")
	ErrNotAnswered    = errors.New("question was not answered in this sitting")
	ErrEssayNotToggle = errors.New("essay questions are marked with a score, not toggled")
)

// Sitting is one user's attempt at a static quiz. QuestionList is the remaining
// queue; it only ever shrinks from the head.
type Sitting struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"not null;index;size:255"`
	UserName string `json:"username" gorm:"size:150;index"`
	QuizID   uint   `json:"quiz_id" gorm:"not null;index"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`

	QuestionOrder      datatypes.JSONSlice[uint]             `json:"question_order"`
	QuestionList       datatypes.JSONSlice[uint]             `json:"question_list"`
	EssayQuestions     datatypes.JSONSlice[uint]             `json:"essay_questions"`
	IncorrectQuestions datatypes.JSONSlice[uint]             `json:"incorrect_questions"`
	UserAnswers        datatypes.JSONType[map[string]string] `json:"user_answers"`
	EssayScores        datatypes.JSONType[map[string]int]    `json:"essay_scores"`

	Score    int  `json:"current_score" gorm:"default:0"`
	Complete bool `json:"complete" gorm:"default:false;index"`

	// OpenKey is set while the sitting is incomplete and cleared on completion;
	// the unique index allows at most one open sitting per user, quiz and course.
	OpenKey *string `json:"-" gorm:"uniqueIndex;size:255"`

	StartedAt time.Time  `json:"start"`
	EndedAt   *time.Time `json:"end"`
	UpdatedAt time.Time  `json:"updated_at"`

	Quiz *Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
}

func (Sitting) TableName() string {
	return "sittings"
}

// SittingOpenKey builds the uniqueness key for an incomplete sitting.
func SittingOpenKey(userID string, quizID, courseID uint) string {
	return fmt.Sprintf("%s:%d:%d", userID, quizID, courseID)
}

// NewSitting builds an open sitting with the given question order. Essay ids
// are remembered so scoring does not need the question rows.
func NewSitting(principal Principal, quiz *Quiz, courseID uint, order []uint, essayIDs []uint, now time.Time) *Sitting {
	key := SittingOpenKey(principal.UserID, quiz.ID, courseID)
	return &Sitting{
		UserID:             principal.UserID,
		UserName:           principal.UserName,
		QuizID:             quiz.ID,
		CourseID:           courseID,
		QuestionOrder:      datatypes.NewJSONSlice(slices.Clone(order)),
		QuestionList:       datatypes.NewJSONSlice(slices.Clone(order)),
		EssayQuestions:     datatypes.NewJSONSlice(slices.Clone(essayIDs)),
		IncorrectQuestions: datatypes.NewJSONSlice([]uint{}),
		UserAnswers:        datatypes.NewJSONType(map[string]string{}),
		EssayScores:        datatypes.NewJSONType(map[string]int{}),
		OpenKey:            &key,
		StartedAt:          now,
	}
}

// CurrentQuestionID returns the head of the queue.
func (s *Sitting) CurrentQuestionID() (uint, bool) {
	if len(s.QuestionList) == 0 {
		return 0, false
	}
	return s.QuestionList[0], true
}

func (s *Sitting) Remaining() int {
	return len(s.QuestionList)
}

// Answered returns the number of questions dequeued so far.
func (s *Sitting) Answered() int {
	return len(s.QuestionOrder) - len(s.QuestionList)
}

func (s *Sitting) Answers() map[string]string {
	answers := s.UserAnswers.Data()
	if answers == nil {
		return map[string]string{}
	}
	return answers
}

func (s *Sitting) Marks() map[string]int {
	marks := s.EssayScores.Data()
	if marks == nil {
		return map[string]int{}
	}
	return marks
}

func (s *Sitting) AnswerFor(questionID uint) (string, bool) {
	answer, ok := s.Answers()[key(questionID)]
	return answer, ok
}

func (s *Sitting) IsEssay(questionID uint) bool {
	return slices.Contains(s.EssayQuestions, questionID)
}

func (s *Sitting) IsIncorrect(questionID uint) bool {
	return slices.Contains(s.IncorrectQuestions, questionID)
}

// RecordAnswer stores the answer for the queue head, applies the grade and
// dequeues exactly one question.
func (s *Sitting) RecordAnswer(questionID uint, raw string, outcome GradeOutcome) error {
	if s.Complete {
		return ErrSittingClosed
	}
	head, ok := s.CurrentQuestionID()
	if !ok || head != questionID {
		return ErrNotQueueHead
	}

	answers := s.Answers()
	answers[key(questionID)] = raw
	s.UserAnswers = datatypes.NewJSONType(answers)

	if outcome.Graded {
		if outcome.Correct {
			s.Score++
		} else {
			s.addIncorrect(questionID)
		}
	}

	s.QuestionList = datatypes.NewJSONSlice(slices.Clone(s.QuestionList[1:]))
	return nil
}

// MarkComplete closes the sitting and releases the open-sitting key.
func (s *Sitting) MarkComplete(now time.Time) error {
	if s.Complete {
		return ErrSittingClosed
	}
	if len(s.QuestionList) > 0 {
		return ErrQueueNotEmpty
	}
	s.Complete = true
	s.EndedAt = &now
	s.OpenKey = nil
	return nil
}

// ToggleIncorrect flips a multiple choice answer between correct and
// incorrect. It returns the new correctness.
func (s *Sitting) ToggleIncorrect(questionID uint) (bool, error) {
	if s.IsEssay(questionID) {
		return false, ErrEssayNotToggle
	}
	if _, ok := s.AnswerFor(questionID); !ok {
		return false, ErrNotAnswered
	}
	if s.IsIncorrect(questionID) {
		s.IncorrectQuestions = datatypes.NewJSONSlice(slices.DeleteFunc(slices.Clone(s.IncorrectQuestions), func(id uint) bool {
			return id == questionID
		}))
		s.Recalculate()
		return true, nil
	}
	s.addIncorrect(questionID)
	s.Recalculate()
	return false, nil
}

// SetEssayMark records a manual essay mark and returns the previous one
// (zero when unmarked).
func (s *Sitting) SetEssayMark(questionID uint, mark int) (int, error) {
	if !s.IsEssay(questionID) {
		return 0, ErrNotEssay
	}
	if _, ok := s.AnswerFor(questionID); !ok {
		return 0, ErrNotAnswered
	}
	marks := s.Marks()
	previous := marks[key(questionID)]
	marks[key(questionID)] = mark
	s.EssayScores = datatypes.NewJSONType(marks)
	s.Recalculate()
	return previous, nil
}

// MaxScore counts answered multiple choice questions plus essays that carry a
// mark. Unmarked essays are left out until a marker scores them.
func (s *Sitting) MaxScore() int {
	marks := s.Marks()
	total := 0
	for id := range s.Answers() {
		qid, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			continue
		}
		if s.IsEssay(uint(qid)) {
			if _, marked := marks[id]; marked {
				total++
			}
			continue
		}
		total++
	}
	return total
}

// Recalculate derives Score from the answers, the incorrect set and the essay
// marks rather than trusting the running total.
func (s *Sitting) Recalculate() int {
	marks := s.Marks()
	score := 0
	for id := range s.Answers() {
		qid, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			continue
		}
		if s.IsEssay(uint(qid)) {
			score += marks[id]
			continue
		}
		if !s.IsIncorrect(uint(qid)) {
			score++
		}
	}
	s.Score = score
	return score
}

// PercentCorrect is score over max score, clamped to [0, 100].
func (s *Sitting) PercentCorrect() int {
	return PercentOf(s.Score, s.MaxScore())
}

func (s *Sitting) addIncorrect(questionID uint) {
	if s.IsIncorrect(questionID) {
		return
	}
	s.IncorrectQuestions = datatypes.NewJSONSlice(append(slices.Clone(s.IncorrectQuestions), questionID))
}

// PercentOf returns round(100*score/possible) clamped to [0, 100]; zero possible gives zero.
func PercentOf(score, possible int) int {
	if possible <= 0 {
		return 0
	}
	percent := (score*100 + possible/2) / possible
	return min(max(percent, 0), 100)
}

func key(questionID uint) string {
	return strconv.FormatUint(uint64(questionID), 10)
}
