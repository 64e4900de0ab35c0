package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	CourseID    uint   `json:"course_id" gorm:"not null;index"`
	Title       string `json:"title" gorm:"not null;size:60;index" validate:"required,min=1,max=60"`
	Slug        string `json:"slug" gorm:"size:255;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category" gorm:"size:100;index"`

	// Behaviour flags
	RandomOrder   bool `json:"random_order" gorm:"default:false"`   // shuffle the queue once, at sitting start
	AnswersAtEnd  bool `json:"answers_at_end" gorm:"default:false"` // defer per-question feedback to the result
	ExamPaper     bool `json:"exam_paper" gorm:"default:false"`     // retain completed sittings for marking
	SingleAttempt bool `json:"single_attempt" gorm:"default:false"`
	PassMark      int  `json:"pass_mark" validate:"min=0,max=100"`
	Draft         bool `json:"draft" gorm:"default:false;index"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Course    *Course    `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Questions []Question `json:"questions,omitempty" gorm:"many2many:quiz_questions"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizResult is written once per completed sitting, whether or not the sitting row is retained.
// It backs single-attempt checks and the learner's result history.
type QuizResult struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SittingID   uint      `json:"sitting_id" gorm:"index"`
	UserID      string    `json:"user_id" gorm:"not null;index:idx_quiz_results_user_quiz;size:255"`
	QuizID      uint      `json:"quiz_id" gorm:"not null;index:idx_quiz_results_user_quiz"`
	CourseID    uint      `json:"course_id" gorm:"not null;index"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	Percent     int       `json:"percent"`
	Passed      bool      `json:"passed"`
	ExamPaper   bool      `json:"exam_paper"`
	Retained    bool      `json:"retained"`
	CompletedAt time.Time `json:"completed_at"`

	Quiz *Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}
