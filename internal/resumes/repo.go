package resumes

import (
	"context"
	"time"

	"resumegen-api/resume/model"
)

// Repo persists resume documents. Every write of ResumeData bumps Version.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	Get(ctx context.Context, userID, id string) (Resume, error)
	// List returns the user's resumes, most recently updated first.
	List(ctx context.Context, userID string) ([]Resume, error)
	// Delete removes the resume. Missing ids are not an error.
	Delete(ctx context.Context, userID, id string) error
	UpdateMeta(ctx context.Context, userID, id string, meta MetaUpdate) (Resume, error)
	// UpdateData stores data when the stored version equals expectedVersion,
	// otherwise it returns ErrConflict.
	UpdateData(ctx context.Context, userID, id string, data model.ResumeData, expectedVersion int) (Resume, error)
	// BeginGeneration moves a resume to generating unless a generation started
	// after staleBefore is still running, in which case it returns ErrConflict.
	BeginGeneration(ctx context.Context, userID, id string, staleBefore time.Time) (Resume, error)
	CompleteGeneration(ctx context.Context, userID, id string, data model.ResumeData) (Resume, error)
	// FailGeneration restores the status a resume had before generation.
	FailGeneration(ctx context.Context, userID, id string) error
}

// MetaUpdate carries optional title and template changes.
type MetaUpdate struct {
	Title      *string
	TemplateID *string
}
