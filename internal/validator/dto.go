package validator

import (
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// QuizCreateRequest represents the request structure for creating quizzes
type QuizCreateRequest struct {
	CourseID      uint   `json:"course_id" validate:"required"`
	Title         string `json:"title" validate:"required,min=1,max=60"`
	Description   string `json:"description" validate:"max=2000"`
	Category      string `json:"category" validate:"max=100"`
	RandomOrder   bool   `json:"random_order"`
	AnswersAtEnd  bool   `json:"answers_at_end"`
	ExamPaper     bool   `json:"exam_paper"`
	SingleAttempt bool   `json:"single_attempt"`
	PassMark      *int   `json:"pass_mark" validate:"omitempty,min=0,max=100"`
	Draft         bool   `json:"draft"`
}

// QuizUpdateRequest only touches the fields that are set
type QuizUpdateRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=60"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	Category      *string `json:"category" validate:"omitempty,max=100"`
	RandomOrder   *bool   `json:"random_order"`
	AnswersAtEnd  *bool   `json:"answers_at_end"`
	ExamPaper     *bool   `json:"exam_paper"`
	SingleAttempt *bool   `json:"single_attempt"`
	PassMark      *int    `json:"pass_mark" validate:"omitempty,min=0,max=100"`
	Draft         *bool   `json:"draft"`
}

type ChoiceRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
	Correct bool   `json:"correct"`
}

// MCQuestionRequest adds a multiple choice question to a quiz
type MCQuestionRequest struct {
	Content     string             `json:"content" validate:"required,max=1000"`
	Explanation string             `json:"explanation" validate:"max=5000"`
	Figure      *string            `json:"figure" validate:"omitempty,max=500"`
	ChoiceOrder models.ChoiceOrder `json:"choice_order" validate:"omitempty,choice_order"`
	Choices     []ChoiceRequest    `json:"choices" validate:"dive"`
}

type EssayQuestionRequest struct {
	Content     string  `json:"content" validate:"required,max=5000"`
	Explanation string  `json:"explanation" validate:"max=5000"`
	Figure      *string `json:"figure" validate:"omitempty,max=500"`
}

// AIQuizConfigRequest represents the request structure for AI quiz configs
type AIQuizConfigRequest struct {
	CourseID            uint                  `json:"course_id" validate:"required"`
	Difficulty          models.AIDifficulty   `json:"difficulty" validate:"required,ai_difficulty"`
	NumQuestions        int                   `json:"num_questions" validate:"required,min=1,max=20"`
	QuestionTypes       []models.QuestionType `json:"question_types" validate:"ai_question_types"`
	QuestionsPerSession int                   `json:"questions_per_session" validate:"required,min=1"`
	Topics              string                `json:"topics" validate:"omitempty,max=1000,topic_list"`
}

type SubmitAnswerRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

type AIAnswerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

type ToggleIncorrectRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
}

type EssayScoreRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Score      int  `json:"score" validate:"essay_mark"`
}

// ImportRow is one spreadsheet row after column mapping.
type ImportRow struct {
	Row         int                 `json:"row"`
	Type        models.QuestionType `json:"type" validate:"required,question_kind"`
	Content     string              `json:"content" validate:"required,max=5000"`
	Explanation string              `json:"explanation" validate:"max=5000"`
	Choices     []ChoiceRequest     `json:"choices" validate:"dive"`
}
