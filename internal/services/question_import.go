package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

const (
	columnType        = "type"
	columnContent     = "content"
	columnExplanation = "explanation"
	columnCorrect     = "correct"
	columnChoice      = "choice_"
)

// importLayout is the column index of each header in the first sheet
type importLayout struct {
	kind        int
	content     int
	explanation int
	correct     int
	choices     []int
}

// ImportQuestions reads the first sheet of an .xlsx workbook and adds every
// row to the quiz in one transaction. Any row error rejects the whole file.
func (s *quizService) ImportQuestions(ctx context.Context, principal models.Principal, quizID uint, r io.Reader) (*ImportResult, error) {
	quiz, err := s.getQuiz(ctx, s.db, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAuthor(ctx, principal, quiz.CourseID, quizID, "import"); err != nil {
		return nil, err
	}

	rows, err := readWorkbookRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no question rows", ErrInvalidWorkbook)
	}

	layout, err := parseImportHeader(rows[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	questions := make([]*models.Question, 0, len(rows)-1)
	rowNumbers := make([]int, 0, len(rows)-1)

	for i, cells := range rows[1:] {
		rowNumber := i + 2
		if blankRow(cells) {
			continue
		}

		question, err := s.questionFromRow(layout, cells, rowNumber, principal.UserID)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Message: err.Error()})
			continue
		}
		questions = append(questions, question)
		rowNumbers = append(rowNumbers, rowNumber)
	}

	if len(result.Errors) > 0 {
		s.logger.Warn("Question import rejected",
			"quiz_id", quizID,
			"rows", len(questions)+len(result.Errors),
			"errors", len(result.Errors))
		return result, nil
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no question rows", ErrInvalidWorkbook)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, question := range questions {
			if err := s.repo.Question().Create(ctx, tx, question); err != nil {
				return fmt.Errorf("failed to create question: %w", err)
			}
		}
		if err := s.repo.Quiz().AddQuestions(ctx, tx, quizID, questions...); err != nil {
			return fmt.Errorf("failed to add questions to quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, question := range questions {
		result.Rows = append(result.Rows, ImportRowResult{
			Row:        rowNumbers[i],
			QuestionID: question.ID,
			Type:       question.Type,
		})
	}
	result.Imported = len(questions)

	s.logger.Info("Questions imported", "quiz_id", quizID, "imported", result.Imported)
	return result, nil
}

func (s *quizService) questionFromRow(layout *importLayout, cells []string, rowNumber int, createdBy string) (*models.Question, error) {
	row := &validator.ImportRow{
		Row:         rowNumber,
		Type:        models.QuestionType(strings.ToLower(cell(cells, layout.kind))),
		Content:     cell(cells, layout.content),
		Explanation: cell(cells, layout.explanation),
	}

	if row.Type == models.MultipleChoice {
		for _, idx := range layout.choices {
			if content := cell(cells, idx); content != "" {
				row.Choices = append(row.Choices, validator.ChoiceRequest{Content: content})
			}
		}

		correct, err := strconv.Atoi(cell(cells, layout.correct))
		if err != nil || correct < 1 || correct > len(row.Choices) {
			return nil, fmt.Errorf("correct must be a choice number between 1 and %d", len(row.Choices))
		}
		row.Choices[correct-1].Correct = true
	}

	if err := s.validator.Validate(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%s %s", verrs[0].Field, verrs[0].Message)
		}
		return nil, err
	}

	if row.Type == models.Essay {
		return &models.Question{
			Type:        models.Essay,
			Content:     row.Content,
			Explanation: row.Explanation,
			CreatedBy:   createdBy,
		}, nil
	}
	return newMCQuestion(row.Content, row.Explanation, nil, models.ChoiceOrderNone, row.Choices, createdBy), nil
}

func readWorkbookRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidWorkbook)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	return rows, nil
}

func parseImportHeader(header []string) (*importLayout, error) {
	layout := &importLayout{kind: -1, content: -1, explanation: -1, correct: -1}
	choiceCols := map[int]int{}
	maxChoice := 0

	for i, name := range header {
		switch name = strings.ToLower(strings.TrimSpace(name)); {
		case name == columnType:
			layout.kind = i
		case name == columnContent:
			layout.content = i
		case name == columnExplanation:
			layout.explanation = i
		case name == columnCorrect:
			layout.correct = i
		case strings.HasPrefix(name, columnChoice):
			n, err := strconv.Atoi(strings.TrimPrefix(name, columnChoice))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: bad choice column %q", ErrInvalidWorkbook, name)
			}
			choiceCols[n] = i
			maxChoice = max(maxChoice, n)
		}
	}

	if layout.kind < 0 || layout.content < 0 {
		return nil, fmt.Errorf("%w: header must include type and content", ErrInvalidWorkbook)
	}
	for n := 1; n <= maxChoice; n++ {
		idx, ok := choiceCols[n]
		if !ok {
			return nil, fmt.Errorf("%w: missing column choice_%d", ErrInvalidWorkbook, n)
		}
		layout.choices = append(layout.choices, idx)
	}
	return layout, nil
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
