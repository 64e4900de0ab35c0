package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trueFalseQuestions(n int) []GeneratedQuestion {
	out := make([]GeneratedQuestion, n)
	for i := range out {
		out[i] = GeneratedQuestion{Type: TrueFalse, Content: "statement", CorrectAnswer: "True"}
	}
	return out
}

func TestNewGroqQuizSession(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		per       int
		wantSlice int
	}{
		{name: "first slice", total: 7, per: 3, wantSlice: 3},
		{name: "slice larger than list", total: 2, per: 5, wantSlice: 2},
		{name: "zero per session takes all", total: 4, per: 0, wantSlice: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &GroqQuizConfig{ID: 5, UserID: "u-1", CourseID: 2, QuestionsPerSession: tt.per}
			s := NewGroqQuizSession(config, trueFalseQuestions(tt.total), false)

			assert.Equal(t, "u-1", s.UserID)
			assert.Equal(t, uint(5), s.ConfigID)
			assert.Equal(t, 1, s.SessionNumber)
			assert.Len(t, s.SessionQuestions, tt.wantSlice)
			assert.Equal(t, 0, s.CurrentQuestionIndex)
			assert.Empty(t, s.Answers)
		})
	}
}

func TestGroqQuizSession_Lifecycle(t *testing.T) {
	config := &GroqQuizConfig{ID: 1, UserID: "u-1", CourseID: 2, QuestionsPerSession: 2}
	s := NewGroqQuizSession(config, trueFalseQuestions(3), false)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, s.AdvanceSession(2), ErrNoNextSlice)
	assert.ErrorIs(t, s.Finish(now), ErrSliceNotExhausted)

	answer, err := s.SubmitAnswer("true")
	require.NoError(t, err)
	assert.True(t, answer.Correct)
	assert.Equal(t, 0, answer.Index)
	assert.Equal(t, 50, s.SessionProgress())

	answer, err = s.SubmitAnswer("false")
	require.NoError(t, err)
	assert.False(t, answer.Correct)

	_, err = s.SubmitAnswer("true")
	assert.ErrorIs(t, err, ErrSliceExhausted)

	require.True(t, s.CanContinue())
	require.NoError(t, s.AdvanceSession(2))
	assert.Equal(t, 2, s.SessionNumber)
	assert.Equal(t, 2, s.SliceStart)
	assert.Len(t, s.SessionQuestions, 1)

	answer, err = s.SubmitAnswer("True")
	require.NoError(t, err)
	assert.Equal(t, 2, answer.Index)
	assert.False(t, s.CanContinue())
	assert.ErrorIs(t, s.AdvanceSession(2), ErrNoNextSlice)

	require.NoError(t, s.Finish(now))
	assert.True(t, s.Completed)
	assert.Equal(t, 2, s.Score)
	assert.Equal(t, 67, s.Percent())
	assert.Equal(t, 100, s.TotalProgress())

	_, err = s.SubmitAnswer("true")
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.ErrorIs(t, s.Finish(now), ErrSessionFinished)
	assert.ErrorIs(t, s.AdvanceSession(2), ErrSessionFinished)
}

func TestSplitTopics(t *testing.T) {
	assert.Equal(t, []string{"loops", "recursion"}, SplitTopics(" loops, ,recursion ,"))
	assert.Nil(t, SplitTopics(""))
}
