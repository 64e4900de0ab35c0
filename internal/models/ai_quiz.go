package models

import (
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type AIDifficulty string

const (
	DifficultyBeginner     AIDifficulty = "beginner"
	DifficultyIntermediate AIDifficulty = "intermediate"
	DifficultyAdvanced     AIDifficulty = "advanced"
)

// AIQuestionTypes are the kinds the generator may request.
var AIQuestionTypes = []QuestionType{MultipleChoice, TrueFalse, ShortAnswer}

var (
	ErrSessionFinished   = errors.New("ai quiz session is already completed")
	ErrSliceExhausted    = errors.New("no question left in the current slice")
	ErrSliceNotExhausted = errors.New("current slice still has unanswered questions")
	ErrNoNextSlice       = errors.New("no more questions to continue with")
)

// GroqQuizConfig is a user's saved request for AI generation on one course.
type GroqQuizConfig struct {
	ID                  uint                              `json:"id" gorm:"primaryKey"`
	UserID              string                            `json:"user_id" gorm:"not null;index;size:255"`
	CourseID            uint                              `json:"course_id" gorm:"not null;index"`
	Difficulty          AIDifficulty                      `json:"difficulty" gorm:"size:20;default:intermediate"`
	NumQuestions        int                               `json:"num_questions" gorm:"default:10"`
	QuestionTypes       datatypes.JSONSlice[QuestionType] `json:"question_types"`
	QuestionsPerSession int                               `json:"questions_per_session" gorm:"default:5"`
	Topics              string                            `json:"topics" gorm:"type:text"`
	CreatedAt           time.Time                         `json:"created_at"`
	UpdatedAt           time.Time                         `json:"updated_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

func (GroqQuizConfig) TableName() string {
	return "groq_quiz_configs"
}

// TopicList splits the comma separated topic hints, dropping blanks.
func (c *GroqQuizConfig) TopicList() []string {
	return SplitTopics(c.Topics)
}

func SplitTopics(topics string) []string {
	var out []string
	for _, t := range strings.Split(topics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// AnswerKey is the generated correct answer. The model returns an option
// index for multiple choice and a string otherwise, so both decode here.
type AnswerKey string

func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = AnswerKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*k = AnswerKey(n.String())
	return nil
}

func (k AnswerKey) String() string {
	return string(k)
}

// GeneratedQuestion is one AI produced question, persisted inside a session.
type GeneratedQuestion struct {
	Type          QuestionType `json:"type"`
	Content       string       `json:"content"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer AnswerKey    `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
}

// Validate reports whether the question is usable for grading. Content, key
// and explanation are all required. A true/false key is normalised to "True"
// or "False".
func (q *GeneratedQuestion) Validate() error {
	if strings.TrimSpace(q.Content) == "" ||
		strings.TrimSpace(string(q.CorrectAnswer)) == "" ||
		strings.TrimSpace(q.Explanation) == "" {
		return ErrInvalidAnswer
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			return ErrInvalidAnswer
		}
		idx, err := strconv.Atoi(strings.TrimSpace(string(q.CorrectAnswer)))
		if err != nil || idx < 0 || idx >= len(q.Options) {
			return ErrInvalidAnswer
		}
	case TrueFalse:
		switch strings.ToLower(strings.TrimSpace(string(q.CorrectAnswer))) {
		case "true":
			q.CorrectAnswer = "True"
		case "false":
			q.CorrectAnswer = "False"
		default:
			return ErrInvalidAnswer
		}
	case ShortAnswer:
	default:
		return ErrUnknownQuestionKind
	}
	return nil
}

func (q GeneratedQuestion) Variant() (QuestionVariant, error) {
	switch q.Type {
	case MultipleChoice:
		idx, err := strconv.Atoi(strings.TrimSpace(string(q.CorrectAnswer)))
		if err != nil {
			return nil, ErrInvalidAnswer
		}
		return OptionVariant{Options: q.Options, CorrectIndex: idx}, nil
	case TrueFalse:
		return TrueFalseVariant{Key: string(q.CorrectAnswer)}, nil
	case ShortAnswer:
		return ShortAnswerVariant{Key: string(q.CorrectAnswer)}, nil
	default:
		return nil, ErrUnknownQuestionKind
	}
}

// CorrectAnswerText renders the key for review screens.
func (q GeneratedQuestion) CorrectAnswerText() string {
	if q.Type == MultipleChoice {
		if idx, err := strconv.Atoi(string(q.CorrectAnswer)); err == nil && idx >= 0 && idx < len(q.Options) {
			return q.Options[idx]
		}
	}
	return string(q.CorrectAnswer)
}

// OptionVariant grades by option index, or by the option text itself.
type OptionVariant struct {
	Options      []string
	CorrectIndex int
}

func (OptionVariant) Kind() QuestionType { return MultipleChoice }

func (OptionVariant) IsAutoGradable() bool { return true }

func (v OptionVariant) Grade(raw string) (GradeOutcome, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GradeOutcome{}, ErrInvalidAnswer
	}
	if idx, err := strconv.Atoi(raw); err == nil {
		if idx < 0 || idx >= len(v.Options) {
			return GradeOutcome{}, ErrInvalidAnswer
		}
		return GradeOutcome{Graded: true, Correct: idx == v.CorrectIndex}, nil
	}
	idx := slices.IndexFunc(v.Options, func(o string) bool {
		return strings.EqualFold(strings.TrimSpace(o), raw)
	})
	if idx < 0 {
		return GradeOutcome{Graded: true, Correct: false}, nil
	}
	return GradeOutcome{Graded: true, Correct: idx == v.CorrectIndex}, nil
}

type TrueFalseVariant struct {
	Key string
}

func (TrueFalseVariant) Kind() QuestionType { return TrueFalse }

func (TrueFalseVariant) IsAutoGradable() bool { return true }

func (v TrueFalseVariant) Grade(raw string) (GradeOutcome, error) {
	raw = strings.TrimSpace(raw)
	if !strings.EqualFold(raw, "true") && !strings.EqualFold(raw, "false") {
		return GradeOutcome{}, ErrInvalidAnswer
	}
	return GradeOutcome{Graded: true, Correct: strings.EqualFold(raw, strings.TrimSpace(v.Key))}, nil
}

type ShortAnswerVariant struct {
	Key string
}

func (ShortAnswerVariant) Kind() QuestionType { return ShortAnswer }

func (ShortAnswerVariant) IsAutoGradable() bool { return true }

func (v ShortAnswerVariant) Grade(raw string) (GradeOutcome, error) {
	return GradeOutcome{Graded: true, Correct: strings.TrimSpace(raw) == strings.TrimSpace(v.Key)}, nil
}

// AIAnswer is one submitted answer in a session, kept for the review screen.
type AIAnswer struct {
	Index         int          `json:"index"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Answer        string       `json:"answer"`
	CorrectAnswer string       `json:"correct_answer"`
	Correct       bool         `json:"correct"`
	Explanation   string       `json:"explanation"`
}

// GroqQuizSession pages a generated question list out in fixed size slices.
// SessionQuestions is Questions[SliceStart:SliceStart+per] and the cursor
// indexes into it.
type GroqQuizSession struct {
	ID                   uint                                   `json:"id" gorm:"primaryKey"`
	UserID               string                                 `json:"user_id" gorm:"not null;index;size:255"`
	CourseID             uint                                   `json:"course_id" gorm:"not null;index"`
	ConfigID             uint                                   `json:"config_id" gorm:"not null;index"`
	Questions            datatypes.JSONSlice[GeneratedQuestion] `json:"questions"`
	SessionQuestions     datatypes.JSONSlice[GeneratedQuestion] `json:"session_questions"`
	SliceStart           int                                    `json:"slice_start" gorm:"default:0"`
	CurrentQuestionIndex int                                    `json:"current_question_index" gorm:"default:0"`
	SessionNumber        int                                    `json:"session_number" gorm:"default:1"`
	Score                int                                    `json:"score" gorm:"default:0"`
	Answers              datatypes.JSONSlice[AIAnswer]          `json:"answers"`
	UsedFallback         bool                                   `json:"used_fallback" gorm:"default:false"`
	Completed            bool                                   `json:"completed" gorm:"default:false;index"`
	CompletedAt          *time.Time                             `json:"completed_at"`
	CreatedAt            time.Time                              `json:"created_at"`
	UpdatedAt            time.Time                              `json:"updated_at"`

	Config *GroqQuizConfig `json:"config,omitempty" gorm:"foreignKey:ConfigID"`
	Course *Course         `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

func (GroqQuizSession) TableName() string {
	return "groq_quiz_sessions"
}

// NewGroqQuizSession activates the first slice of the generated list.
func NewGroqQuizSession(config *GroqQuizConfig, questions []GeneratedQuestion, usedFallback bool) *GroqQuizSession {
	s := &GroqQuizSession{
		UserID:        config.UserID,
		CourseID:      config.CourseID,
		ConfigID:      config.ID,
		Questions:     datatypes.NewJSONSlice(slices.Clone(questions)),
		Answers:       datatypes.NewJSONSlice([]AIAnswer{}),
		SessionNumber: 1,
		UsedFallback:  usedFallback,
	}
	s.activateSlice(0, config.QuestionsPerSession)
	return s
}

func (s *GroqQuizSession) activateSlice(start, per int) {
	if per <= 0 {
		per = len(s.Questions)
	}
	end := min(start+per, len(s.Questions))
	start = min(start, end)
	s.SliceStart = start
	s.SessionQuestions = datatypes.NewJSONSlice(slices.Clone([]GeneratedQuestion(s.Questions[start:end])))
	s.CurrentQuestionIndex = 0
}

// CurrentQuestion returns the question at the cursor, or false once the slice is used up.
func (s *GroqQuizSession) CurrentQuestion() (GeneratedQuestion, bool) {
	if s.Completed || s.CurrentQuestionIndex >= len(s.SessionQuestions) {
		return GeneratedQuestion{}, false
	}
	return s.SessionQuestions[s.CurrentQuestionIndex], true
}

func (s *GroqQuizSession) SliceExhausted() bool {
	return s.CurrentQuestionIndex >= len(s.SessionQuestions)
}

// Consumed is the number of questions taken from the full list so far.
func (s *GroqQuizSession) Consumed() int {
	return s.SliceStart + len(s.SessionQuestions)
}

// CanContinue is true when the active slice is used up and the full list
// still holds unconsumed questions.
func (s *GroqQuizSession) CanContinue() bool {
	return !s.Completed &&
		s.CurrentQuestionIndex == len(s.SessionQuestions) &&
		s.Consumed() < len(s.Questions)
}

// SubmitAnswer grades the question at the cursor and advances the cursor.
func (s *GroqQuizSession) SubmitAnswer(raw string) (AIAnswer, error) {
	if s.Completed {
		return AIAnswer{}, ErrSessionFinished
	}
	question, ok := s.CurrentQuestion()
	if !ok {
		return AIAnswer{}, ErrSliceExhausted
	}
	variant, err := question.Variant()
	if err != nil {
		return AIAnswer{}, err
	}
	outcome, err := variant.Grade(raw)
	if err != nil {
		return AIAnswer{}, err
	}

	answer := AIAnswer{
		Index:         s.SliceStart + s.CurrentQuestionIndex,
		Type:          question.Type,
		Question:      question.Content,
		Answer:        strings.TrimSpace(raw),
		CorrectAnswer: question.CorrectAnswerText(),
		Correct:       outcome.Correct,
		Explanation:   question.Explanation,
	}
	s.Answers = datatypes.NewJSONSlice(append(slices.Clone(s.Answers), answer))
	if outcome.Correct {
		s.Score++
	}
	s.CurrentQuestionIndex++
	return answer, nil
}

// AdvanceSession activates the next slice of per questions.
func (s *GroqQuizSession) AdvanceSession(per int) error {
	if s.Completed {
		return ErrSessionFinished
	}
	if !s.CanContinue() {
		return ErrNoNextSlice
	}
	s.activateSlice(s.Consumed(), per)
	s.SessionNumber++
	return nil
}

// Finish closes the session once the active slice has been answered.
func (s *GroqQuizSession) Finish(now time.Time) error {
	if s.Completed {
		return ErrSessionFinished
	}
	if !s.SliceExhausted() {
		return ErrSliceNotExhausted
	}
	s.Completed = true
	s.CompletedAt = &now
	return nil
}

func (s *GroqQuizSession) Percent() int {
	return PercentOf(s.Score, len(s.Answers))
}

// SessionProgress is the cursor position within the active slice as a percentage.
func (s *GroqQuizSession) SessionProgress() int {
	return PercentOf(s.CurrentQuestionIndex, len(s.SessionQuestions))
}

// TotalProgress is the share of the full list answered so far.
func (s *GroqQuizSession) TotalProgress() int {
	return PercentOf(s.SliceStart+s.CurrentQuestionIndex, len(s.Questions))
}
