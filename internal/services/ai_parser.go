package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// minGeneratedQuestions is the smallest usable batch; fewer valid entries
// means the fallback set is served instead.
const minGeneratedQuestions = 3

var errNoJSON = errors.New("no json array or object in response")

// ParseGeneratedQuestions extracts the question array from a model reply and
// drops entries that cannot be graded.
func ParseGeneratedQuestions(text string) ([]models.GeneratedQuestion, error) {
	payload, err := extractJSON(stripFences(text))
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if strings.HasPrefix(payload, "{") {
		raw = []json.RawMessage{json.RawMessage(payload)}
	} else if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode question array: %w", err)
	}

	questions := make([]models.GeneratedQuestion, 0, len(raw))
	for _, entry := range raw {
		var q models.GeneratedQuestion
		if err := json.Unmarshal(entry, &q); err != nil {
			continue
		}
		q.Type = models.QuestionType(strings.ToLower(strings.TrimSpace(string(q.Type))))
		if err := q.Validate(); err != nil {
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// extractJSON returns the outermost [...] span, or a lone {...} object. Each
// opening bracket is tried in turn so bracketed prose before the payload, such
// as "Here are [5] questions:", is skipped. When no span decodes, the first
// one is returned and the caller reports the decode error.
func extractJSON(text string) (string, error) {
	first := ""
	for open := strings.IndexAny(text, "[{"); open >= 0; {
		closer := "]"
		if text[open] == '{' {
			closer = "}"
		}
		if end := strings.LastIndex(text, closer); end > open {
			span := text[open : end+1]
			if json.Valid([]byte(span)) {
				return span, nil
			}
			if first == "" {
				first = span
			}
		}
		next := strings.IndexAny(text[open+1:], "[{")
		if next < 0 {
			break
		}
		open += next + 1
	}
	if first == "" {
		return "", errNoJSON
	}
	return first, nil
}
