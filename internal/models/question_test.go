package models

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcQuestion(order ChoiceOrder) *Question {
	return &Question{
		ID:          1,
		Type:        MultipleChoice,
		Content:     "Which structure is LIFO?",
		ChoiceOrder: order,
		Choices: []Choice{
			{ID: 11, Content: "queue", Position: 1},
			{ID: 12, Content: "Stack", Correct: true, Position: 0},
			{ID: 13, Content: "array", Position: 2},
		},
	}
}

func TestQuestion_Variant(t *testing.T) {
	tests := []struct {
		name        string
		question    *Question
		answer      string
		want        GradeOutcome
		wantErr     error
		autoGraded  bool
		wantVariant QuestionType
	}{
		{name: "correct choice", question: mcQuestion(ChoiceOrderNone), answer: "12", want: GradeOutcome{Graded: true, Correct: true}, autoGraded: true, wantVariant: MultipleChoice},
		{name: "wrong choice", question: mcQuestion(ChoiceOrderNone), answer: " 11 ", want: GradeOutcome{Graded: true}, autoGraded: true, wantVariant: MultipleChoice},
		{name: "unknown choice", question: mcQuestion(ChoiceOrderNone), answer: "99", wantErr: ErrInvalidAnswer, autoGraded: true, wantVariant: MultipleChoice},
		{name: "not a number", question: mcQuestion(ChoiceOrderNone), answer: "stack", wantErr: ErrInvalidAnswer, autoGraded: true, wantVariant: MultipleChoice},
		{name: "essay", question: &Question{Type: Essay}, answer: "free text", want: GradeOutcome{}, wantVariant: Essay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variant, err := tt.question.Variant()
			require.NoError(t, err)
			assert.Equal(t, tt.wantVariant, variant.Kind())
			assert.Equal(t, tt.autoGraded, variant.IsAutoGradable())

			got, err := variant.Grade(tt.answer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&Question{Type: "matching"}).Variant()
	assert.ErrorIs(t, err, ErrUnknownQuestionKind)
}

func TestQuestion_OrderedChoices(t *testing.T) {
	ids := func(choices []Choice) []uint {
		out := make([]uint, len(choices))
		for i, c := range choices {
			out[i] = c.ID
		}
		return out
	}

	assert.Equal(t, []uint{12, 11, 13}, ids(mcQuestion(ChoiceOrderNone).OrderedChoices(nil)))
	assert.Equal(t, []uint{13, 11, 12}, ids(mcQuestion(ChoiceOrderContent).OrderedChoices(nil)))

	q := mcQuestion(ChoiceOrderRandom)
	shuffled := q.OrderedChoices(rand.New(rand.NewPCG(1, 2)))
	assert.ElementsMatch(t, []uint{11, 12, 13}, ids(shuffled))
	assert.Equal(t, []uint{11, 12, 13}, ids(q.Choices), "source order is untouched")

	require.NotNil(t, q.CorrectChoice())
	assert.Equal(t, uint(12), q.CorrectChoice().ID)
}

func TestAnswerKey_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AnswerKey
	}{
		{name: "string", input: `{"correct_answer":"True"}`, want: "True"},
		{name: "number", input: `{"correct_answer":2}`, want: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q GeneratedQuestion
			require.NoError(t, json.Unmarshal([]byte(tt.input), &q))
			assert.Equal(t, tt.want, q.CorrectAnswer)
		})
	}
}

func TestGeneratedQuestion_Validate(t *testing.T) {
	tests := []struct {
		name     string
		question GeneratedQuestion
		wantErr  error
		wantKey  AnswerKey
	}{
		{name: "multiple choice", question: GeneratedQuestion{Type: MultipleChoice, Content: "q", Options: []string{"a", "b"}, CorrectAnswer: "1", Explanation: "e"}, wantKey: "1"},
		{name: "index out of range", question: GeneratedQuestion{Type: MultipleChoice, Content: "q", Options: []string{"a", "b"}, CorrectAnswer: "2", Explanation: "e"}, wantErr: ErrInvalidAnswer},
		{name: "too few options", question: GeneratedQuestion{Type: MultipleChoice, Content: "q", Options: []string{"a"}, CorrectAnswer: "0", Explanation: "e"}, wantErr: ErrInvalidAnswer},
		{name: "true false normalised", question: GeneratedQuestion{Type: TrueFalse, Content: "q", CorrectAnswer: "true", Explanation: "e"}, wantKey: "True"},
		{name: "true false garbage", question: GeneratedQuestion{Type: TrueFalse, Content: "q", CorrectAnswer: "maybe", Explanation: "e"}, wantErr: ErrInvalidAnswer},
		{name: "short answer", question: GeneratedQuestion{Type: ShortAnswer, Content: "q", CorrectAnswer: "API", Explanation: "e"}, wantKey: "API"},
		{name: "empty content", question: GeneratedQuestion{Type: ShortAnswer, CorrectAnswer: "API", Explanation: "e"}, wantErr: ErrInvalidAnswer},
		{name: "unknown type", question: GeneratedQuestion{Type: Essay, Content: "q", CorrectAnswer: "x", Explanation: "e"}, wantErr: ErrUnknownQuestionKind},
		{name: "missing explanation", question: GeneratedQuestion{Type: TrueFalse, Content: "q", CorrectAnswer: "True"}, wantErr: ErrInvalidAnswer},
		{name: "blank explanation", question: GeneratedQuestion{Type: ShortAnswer, Content: "q", CorrectAnswer: "API", Explanation: "  "}, wantErr: ErrInvalidAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.question.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, tt.question.CorrectAnswer)
		})
	}
}

func TestGeneratedQuestion_Grade(t *testing.T) {
	mc := GeneratedQuestion{Type: MultipleChoice, Options: []string{"Queue", "Stack"}, CorrectAnswer: "1"}
	tf := GeneratedQuestion{Type: TrueFalse, CorrectAnswer: "False"}
	sa := GeneratedQuestion{Type: ShortAnswer, CorrectAnswer: "Application Programming Interface"}

	tests := []struct {
		name     string
		question GeneratedQuestion
		answer   string
		want     bool
		wantErr  error
	}{
		{name: "mc by index", question: mc, answer: "1", want: true},
		{name: "mc by text", question: mc, answer: "stack", want: true},
		{name: "mc wrong text", question: mc, answer: "heap", want: false},
		{name: "mc index out of range", question: mc, answer: "4", wantErr: ErrInvalidAnswer},
		{name: "true false case-insensitive", question: tf, answer: "FALSE", want: true},
		{name: "true false wrong", question: tf, answer: "true", want: false},
		{name: "true false invalid", question: tf, answer: "yes", wantErr: ErrInvalidAnswer},
		{name: "short answer exact", question: sa, answer: " Application Programming Interface ", want: true},
		{name: "short answer is case-sensitive", question: sa, answer: "application programming interface", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variant, err := tt.question.Variant()
			require.NoError(t, err)

			got, err := variant.Grade(tt.answer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Graded)
			assert.Equal(t, tt.want, got.Correct)
		})
	}

	assert.Equal(t, "Stack", mc.CorrectAnswerText())
	assert.Equal(t, "False", tf.CorrectAnswerText())
}
