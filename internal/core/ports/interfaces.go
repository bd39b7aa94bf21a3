package ports

import (
	"context"
	"io"

	"github.com/manthysbr/labforge/internal/core/domain"
)

// Repository abstracts the persistent storage (DuckDB).
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id domain.UserID) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) error

	// Lab jobs. Reads are always scoped to the owning user; a job that
	// exists but belongs to someone else is ErrJobNotFound.
	SaveJob(ctx context.Context, job *domain.LabJob) error
	GetJob(ctx context.Context, id domain.JobID, userID domain.UserID) (*domain.LabJob, error)
	ListJobs(ctx context.Context, userID domain.UserID, limit int) ([]domain.LabJob, error)
}

// TextGenerator abstracts the LLM backend. The API key is passed per call
// because each user brings their own credential.
type TextGenerator interface {
	GenerateText(ctx context.Context, apiKey, prompt string) (string, error)
}

// DocumentRenderer renders a completed lab job into one export format.
type DocumentRenderer interface {
	Render(w io.Writer, user domain.User, job *domain.LabJob) error
	ContentType() string
	FileExt() string
}
