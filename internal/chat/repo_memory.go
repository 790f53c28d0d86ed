package chat

import (
	"context"
	"sync"
)

// MemoryRepo keeps messages in insertion order per resume.
type MemoryRepo struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{messages: make(map[string][]Message)}
}

func (r *MemoryRepo) Append(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ResumeID] = append(r.messages[msg.ResumeID], msg)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, userID, resumeID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Message, 0, len(r.messages[resumeID]))
	for _, m := range r.messages[resumeID] {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepo) DeleteByResume(ctx context.Context, userID, resumeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[resumeID][:0]
	for _, m := range r.messages[resumeID] {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		delete(r.messages, resumeID)
		return nil
	}
	r.messages[resumeID] = kept
	return nil
}
