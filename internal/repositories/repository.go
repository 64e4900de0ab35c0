package repositories

import "context"

// Repository aggregates every repository the quiz service uses
type Repository interface {
	// Quiz authoring
	Quiz() QuizRepository
	Question() QuestionRepository

	// Static quiz attempts
	Sitting() SittingRepository
	Result() ResultRepository
	Progress() ProgressRepository

	// AI quizzes
	AIQuiz() AIQuizRepository

	// Read-mostly collaborators
	Course() CourseRepository
	Academic() AcademicRepository
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
