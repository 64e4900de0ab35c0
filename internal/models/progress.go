package models

import (
	"strconv"
	"strings"
	"time"
)

// Progress is the per-user score ledger shared by static sittings and AI
// sessions. Score is serialised as repeated "category,correct,total," triples.
type Progress struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;uniqueIndex;size:255"`
	Score     string    `json:"score" gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Progress) TableName() string {
	return "progress"
}

type CategoryScore struct {
	Category string `json:"category"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Percent  int    `json:"percent"`
}

// NormalizeCategory makes a category safe for the ledger encoding.
func NormalizeCategory(category string) string {
	return strings.TrimSpace(strings.ReplaceAll(category, ",", " "))
}

// Scores parses the ledger in stored order. Malformed triples are skipped.
func (p *Progress) Scores() []CategoryScore {
	fields := strings.Split(p.Score, ",")
	scores := make([]CategoryScore, 0, len(fields)/3)
	for i := 0; i+2 < len(fields); i += 3 {
		category := strings.TrimSpace(fields[i])
		if category == "" {
			continue
		}
		correct, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			continue
		}
		total, err := strconv.Atoi(strings.TrimSpace(fields[i+2]))
		if err != nil {
			continue
		}
		scores = append(scores, CategoryScore{
			Category: category,
			Correct:  correct,
			Total:    total,
			Percent:  PercentOf(correct, total),
		})
	}
	return scores
}

// CategoryScore returns the tally for one category; an unseen category is 0,0.
func (p *Progress) CategoryScore(category string) CategoryScore {
	category = NormalizeCategory(category)
	for _, s := range p.Scores() {
		if s.Category == category {
			return s
		}
	}
	return CategoryScore{Category: category}
}

// UpdateScore adds earned and possible to a category, creating it at zero when
// absent. Negative deltas are allowed for marking overrides; counts never drop
// below zero.
func (p *Progress) UpdateScore(category string, earned, possible int) {
	category = NormalizeCategory(category)
	if category == "" {
		return
	}

	scores := p.Scores()
	found := false
	for i := range scores {
		if scores[i].Category != category {
			continue
		}
		scores[i].Correct = max(scores[i].Correct+earned, 0)
		scores[i].Total = max(scores[i].Total+possible, 0)
		found = true
		break
	}
	if !found {
		scores = append(scores, CategoryScore{
			Category: category,
			Correct:  max(earned, 0),
			Total:    max(possible, 0),
		})
	}

	var b strings.Builder
	for _, s := range scores {
		b.WriteString(s.Category)
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(s.Correct))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(s.Total))
		b.WriteByte(',')
	}
	p.Score = b.String()
}
