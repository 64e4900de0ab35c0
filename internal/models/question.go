package models

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	Essay          QuestionType = "essay"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

type ChoiceOrder string

const (
	ChoiceOrderContent ChoiceOrder = "content"
	ChoiceOrderRandom  ChoiceOrder = "random"
	ChoiceOrderNone    ChoiceOrder = "none"
)

var (
	ErrInvalidAnswer       = errors.New("answer is not valid for this question")
	ErrUnknownQuestionKind = errors.New("unknown question type")
)

// Question is a tagged union over MultipleChoice and Essay; Variant selects the behaviour.
type Question struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Type        QuestionType `json:"type" gorm:"not null;index;size:30"`
	Content     string       `json:"content" gorm:"type:text;not null"`
	Explanation string       `json:"explanation" gorm:"type:text"`
	Figure      *string      `json:"figure,omitempty" gorm:"size:500"`

	// MultipleChoice only
	ChoiceOrder ChoiceOrder `json:"choice_order,omitempty" gorm:"size:30;default:none"`
	Choices     []Choice    `json:"choices,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`

	CreatedBy string    `json:"created_by" gorm:"index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Quizzes []Quiz `json:"-" gorm:"many2many:quiz_questions"`
}

type Choice struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Content    string `json:"content" gorm:"size:1000;not null"`
	Correct    bool   `json:"correct" gorm:"default:false"`
	Position   int    `json:"position" gorm:"default:0"`
}

func (Question) TableName() string {
	return "questions"
}

func (Choice) TableName() string {
	return "choices"
}

// GradeOutcome is the result of automatic grading. Graded is false when the
// answer needs a human marker.
type GradeOutcome struct {
	Graded  bool
	Correct bool
}

// QuestionVariant is the grading surface shared by authored and generated questions.
type QuestionVariant interface {
	Kind() QuestionType
	IsAutoGradable() bool
	Grade(raw string) (GradeOutcome, error)
}

// Variant returns the grading behaviour for the question's type.
func (q *Question) Variant() (QuestionVariant, error) {
	switch q.Type {
	case MultipleChoice:
		return MultipleChoiceVariant{Choices: q.Choices}, nil
	case Essay:
		return EssayVariant{}, nil
	default:
		return nil, ErrUnknownQuestionKind
	}
}

func (q *Question) IsEssay() bool {
	return q.Type == Essay
}

// CorrectChoice returns the choice flagged correct, or nil.
func (q *Question) CorrectChoice() *Choice {
	for i := range q.Choices {
		if q.Choices[i].Correct {
			return &q.Choices[i]
		}
	}
	return nil
}

// OrderedChoices returns the choices in display order.
func (q *Question) OrderedChoices(rng *rand.Rand) []Choice {
	choices := make([]Choice, len(q.Choices))
	copy(choices, q.Choices)

	switch q.ChoiceOrder {
	case ChoiceOrderContent:
		sort.SliceStable(choices, func(i, j int) bool {
			return strings.ToLower(choices[i].Content) < strings.ToLower(choices[j].Content)
		})
	case ChoiceOrderRandom:
		if rng == nil {
			rand.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
		} else {
			rng.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
		}
	default:
		sort.SliceStable(choices, func(i, j int) bool {
			if choices[i].Position == choices[j].Position {
				return choices[i].ID < choices[j].ID
			}
			return choices[i].Position < choices[j].Position
		})
	}
	return choices
}

// MultipleChoiceVariant grades a raw choice id against the correct choice.
type MultipleChoiceVariant struct {
	Choices []Choice
}

func (MultipleChoiceVariant) Kind() QuestionType { return MultipleChoice }

func (MultipleChoiceVariant) IsAutoGradable() bool { return true }

func (v MultipleChoiceVariant) Grade(raw string) (GradeOutcome, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return GradeOutcome{}, ErrInvalidAnswer
	}
	for _, c := range v.Choices {
		if c.ID == uint(id) {
			return GradeOutcome{Graded: true, Correct: c.Correct}, nil
		}
	}
	return GradeOutcome{}, ErrInvalidAnswer
}

// EssayVariant is never auto-graded; a marker assigns the score later.
type EssayVariant struct{}

func (EssayVariant) Kind() QuestionType { return Essay }

func (EssayVariant) IsAutoGradable() bool { return false }

func (EssayVariant) Grade(raw string) (GradeOutcome, error) {
	return GradeOutcome{Graded: false}, nil
}
