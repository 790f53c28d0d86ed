package chat

import "context"

// Repo stores chat history per resume.
type Repo interface {
	Append(ctx context.Context, msg Message) error
	// List returns messages oldest first; equal timestamps keep insertion order.
	List(ctx context.Context, userID, resumeID string) ([]Message, error)
	DeleteByResume(ctx context.Context, userID, resumeID string) error
}
