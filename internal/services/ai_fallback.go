package services

import (
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// fallbackQuestions are served whenever generation fails. They are never cached.
var fallbackQuestions = []models.GeneratedQuestion{
	{
		Type:    models.MultipleChoice,
		Content: "What is the main purpose of version control systems like Git?",
		Options: []string{
			"To write documentation",
			"To track changes in source code during development",
			"To compile programs",
			"To design user interfaces",
		},
		CorrectAnswer: "1",
		Explanation:   "Version control systems track changes in source code, allowing multiple developers to collaborate.",
	},
	{
		Type:          models.TrueFalse,
		Content:       "Object-oriented programming focuses on procedures rather than objects.",
		CorrectAnswer: "False",
		Explanation:   "Object-oriented programming focuses on objects that contain both data and methods, not just procedures.",
	},
	{
		Type:          models.MultipleChoice,
		Content:       "Which data structure uses LIFO (Last-In-First-Out) principle?",
		Options:       []string{"Queue", "Stack", "Array", "Linked List"},
		CorrectAnswer: "1",
		Explanation:   "Stack uses LIFO principle where the last element added is the first one to be removed.",
	},
	{
		Type:          models.ShortAnswer,
		Content:       "What does API stand for in programming?",
		CorrectAnswer: "Application Programming Interface",
		Explanation:   "API stands for Application Programming Interface, which defines how different software components should interact.",
	},
	{
		Type:          models.TrueFalse,
		Content:       "Python uses static typing for variables.",
		CorrectAnswer: "False",
		Explanation:   "Python uses dynamic typing, meaning variable types are determined at runtime rather than compile time.",
	},
}

// FallbackQuestions returns a copy of the fixed set truncated to n
func FallbackQuestions(n int) []models.GeneratedQuestion {
	if n <= 0 || n > len(fallbackQuestions) {
		n = len(fallbackQuestions)
	}
	out := make([]models.GeneratedQuestion, n)
	for i := range n {
		q := fallbackQuestions[i]
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
