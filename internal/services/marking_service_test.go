package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// sitExam completes an exam paper for the student: first answer right, second
// wrong, then one essay.
func sitExam(t *testing.T, env *testEnv) (*models.Course, []*models.Question, uint) {
	t.Helper()
	ctx := context.Background()
	course := env.seedCourse(t, "CS101", "Data Structures")
	env.allocate(t, lecturer.UserID, course)
	quiz, questions := env.seedQuiz(t, course, "Final Exam", quizOptions{examPaper: true, essays: 1})

	view, err := env.sitting.Start(ctx, student, quiz.ID, 0)
	require.NoError(t, err)
	answers := []string{correctChoice(questions[0]), wrongChoice(questions[1]), "Pushing and popping."}
	for i, q := range questions {
		_, err := env.sitting.SubmitAnswer(ctx, student, view.SittingID, &SubmitAnswerRequest{QuestionID: q.ID, Answer: answers[i]})
		require.NoError(t, err)
	}
	return course, questions, view.SittingID
}

func assertLedger(t *testing.T, env *testEnv, correct, total int) {
	t.Helper()
	scores, err := env.progress.CategoryScores(context.Background(), student.UserID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, correct, scores[0].Correct, "correct")
	assert.Equal(t, total, scores[0].Total, "total")
}

func TestMarkingService_ListSittingsScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _, sittingID := sitExam(t, env)

	tests := []struct {
		name      string
		principal models.Principal
		filters   MarkingFilters
		wantIDs   []uint
		wantErr   bool
	}{
		{name: "learners cannot mark", principal: student, wantErr: true},
		{name: "unallocated lecturer sees nothing", principal: outsider, wantIDs: []uint{}},
		{name: "allocated lecturer", principal: lecturer, wantIDs: []uint{sittingID}},
		{name: "admin sees every course", principal: admin, wantIDs: []uint{sittingID}},
		{name: "quiz title filter", principal: lecturer, filters: MarkingFilters{QuizTitle: "final"}, wantIDs: []uint{sittingID}},
		{name: "quiz title miss", principal: lecturer, filters: MarkingFilters{QuizTitle: "midterm"}, wantIDs: []uint{}},
		{name: "user name filter", principal: admin, filters: MarkingFilters{UserName: "AD"}, wantIDs: []uint{sittingID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := env.marking.ListSittings(ctx, tt.principal, tt.filters)
			if tt.wantErr {
				var perr *PermissionError
				assert.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)

			ids := []uint{}
			for _, s := range list.Sittings {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, int64(len(tt.wantIDs)), list.Total)
		})
	}
}

func TestMarkingService_GetSitting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, questions, sittingID := sitExam(t, env)

	detail, err := env.marking.GetSitting(ctx, lecturer, sittingID)
	require.NoError(t, err)
	assert.Equal(t, student.UserName, detail.UserName)
	assert.Equal(t, "Final Exam", detail.QuizTitle)
	assert.Equal(t, 1, detail.Score)
	assert.Equal(t, 2, detail.MaxScore)
	assert.Equal(t, []uint{questions[1].ID}, detail.IncorrectIDs)
	require.Len(t, detail.Questions, 3)
	assert.Equal(t, "Pushing and popping.", detail.Questions[2].Answer)
	assert.Nil(t, detail.Questions[2].EssayMark)

	_, err = env.marking.GetSitting(ctx, outsider, sittingID)
	var perr *PermissionError
	assert.ErrorAs(t, err, &perr)

	_, err = env.marking.GetSitting(ctx, lecturer, 999)
	assert.ErrorIs(t, err, ErrSittingNotFound)
}

func TestMarkingService_Overrides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, questions, sittingID := sitExam(t, env)
	mc, wrong, essay := questions[0], questions[1], questions[2]
	assertLedger(t, env, 1, 3)

	t.Run("toggle wrong to right", func(t *testing.T) {
		detail, err := env.marking.ToggleIncorrect(ctx, lecturer, sittingID, wrong.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, detail.Score)
		assert.Empty(t, detail.IncorrectIDs)
		assertLedger(t, env, 2, 3)
	})

	t.Run("toggle right to wrong", func(t *testing.T) {
		detail, err := env.marking.ToggleIncorrect(ctx, admin, sittingID, mc.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, detail.Score)
		assert.Equal(t, []uint{mc.ID}, detail.IncorrectIDs)
		assertLedger(t, env, 1, 3)
	})

	t.Run("essay marked correct", func(t *testing.T) {
		detail, err := env.marking.SetEssayScore(ctx, lecturer, sittingID, essay.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, detail.Score)
		assert.Equal(t, 3, detail.MaxScore, "marked essays count towards the maximum")
		assert.Equal(t, map[string]int{fmt.Sprint(essay.ID): 1}, detail.EssayScores)
		require.NotNil(t, detail.Questions[2].EssayMark)
		assert.True(t, detail.Questions[2].Correct)
		assertLedger(t, env, 2, 3)
	})

	t.Run("essay re-marked", func(t *testing.T) {
		detail, err := env.marking.SetEssayScore(ctx, lecturer, sittingID, essay.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, detail.Score)
		assert.Equal(t, 3, detail.MaxScore)
		assert.Equal(t, 33, detail.Percent)
		assert.False(t, detail.Passed)
		assertLedger(t, env, 1, 3)

		record, err := env.repo.Result().GetBySitting(ctx, env.db, sittingID)
		require.NoError(t, err)
		assert.Equal(t, 1, record.Score)
		assert.Equal(t, 3, record.MaxScore)
		assert.Equal(t, 33, record.Percent)
		assert.False(t, record.Passed)
	})

	t.Run("essay unchanged mark leaves the ledger alone", func(t *testing.T) {
		_, err := env.marking.SetEssayScore(ctx, lecturer, sittingID, essay.ID, 0)
		require.NoError(t, err)
		assertLedger(t, env, 1, 3)
	})

	t.Run("rejected overrides", func(t *testing.T) {
		_, err := env.marking.SetEssayScore(ctx, lecturer, sittingID, essay.ID, 2)
		var verrs ValidationErrors
		assert.ErrorAs(t, err, &verrs)

		_, err = env.marking.SetEssayScore(ctx, lecturer, sittingID, mc.ID, 1)
		assert.ErrorIs(t, err, ErrInvalidSubmission)

		_, err = env.marking.ToggleIncorrect(ctx, lecturer, sittingID, essay.ID)
		assert.ErrorIs(t, err, ErrInvalidSubmission)

		_, err = env.marking.ToggleIncorrect(ctx, outsider, sittingID, mc.ID)
		var perr *PermissionError
		assert.ErrorAs(t, err, &perr)

		_, err = env.marking.ToggleIncorrect(ctx, lecturer, 999, mc.ID)
		assert.ErrorIs(t, err, ErrSittingNotFound)

		assertLedger(t, env, 1, 3)
	})
}

func TestMarkingService_RequiresCompleteSitting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, questions, _ := sitExam(t, env)
	quiz, _ := env.seedQuiz(t, course, "Resit", quizOptions{examPaper: true})

	view, err := env.sitting.Start(ctx, student2, quiz.ID, 0)
	require.NoError(t, err)

	_, err = env.marking.ToggleIncorrect(ctx, lecturer, view.SittingID, questions[0].ID)
	assert.ErrorIs(t, err, ErrSittingNotComplete)
}
