package resumes

import (
	"time"

	"resumegen-api/internal/guard"
	"resumegen-api/internal/prompts"
	"resumegen-api/resume/model"
)

// Status is the lifecycle state of a resume document.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
)

const DefaultTitle = "Untitled Resume"

// GenerationTimeout is how long a generating resume blocks another generation.
// After it passes the document is treated as abandoned and may be regenerated.
const GenerationTimeout = 10 * time.Minute

// Resume is a user's resume document. Status complete implies ResumeData is set.
type Resume struct {
	ID           string              `json:"id"`
	UserID       string              `json:"userId"`
	Title        string              `json:"title"`
	TemplateID   string              `json:"templateId"`
	Mode         prompts.Mode        `json:"mode"`
	JobPosting   string              `json:"jobPosting,omitempty"`
	InputSources []guard.InputSource `json:"inputSources"`
	ResumeData   *model.ResumeData   `json:"resumeData"`
	Status       Status              `json:"status"`
	Version      int                 `json:"version"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Input source types accepted on create.
const (
	SourceUpload   = "upload"
	SourceLinkedIn = "linkedin"
	SourceText     = "text"
)

func knownSourceType(t string) bool {
	switch t {
	case SourceUpload, SourceLinkedIn, SourceText:
		return true
	default:
		return false
	}
}
