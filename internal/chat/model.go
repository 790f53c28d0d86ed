package chat

import (
	"encoding/json"
	"time"

	"resumegen-api/internal/llm"
)

// Message is one stored chat turn. Messages are append-only.
type Message struct {
	ID             string          `json:"id"`
	ResumeID       string          `json:"resumeId"`
	UserID         string          `json:"-"`
	Role           llm.Role        `json:"role"`
	Content        string          `json:"content"`
	ResumeSnapshot json.RawMessage `json:"resumeSnapshot"`
	CreatedAt      time.Time       `json:"createdAt"`
}
