package resumes

import (
	"context"
	"sort"
	"sync"
	"time"

	"resumegen-api/resume/model"
)

// MemoryRepo is an in-process Repo for dev and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	resumes map[string]Resume
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{resumes: make(map[string]Resume), now: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryRepo) Create(ctx context.Context, res Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumes[res.ID] = clone(res)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resumes[id]
	if !ok || res.UserID != userID {
		return Resume{}, ErrNotFound
	}
	return clone(res), nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Resume, 0)
	for _, res := range r.resumes {
		if res.UserID == userID {
			out = append(out, clone(res))
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.resumes[id]; ok && res.UserID == userID {
		delete(r.resumes, id)
	}
	return nil
}

func (r *MemoryRepo) UpdateMeta(ctx context.Context, userID, id string, meta MetaUpdate) (Resume, error) {
	return r.mutate(ctx, userID, id, func(res *Resume) error {
		if meta.Title != nil {
			res.Title = *meta.Title
		}
		if meta.TemplateID != nil {
			res.TemplateID = *meta.TemplateID
		}
		return nil
	})
}

func (r *MemoryRepo) UpdateData(ctx context.Context, userID, id string, data model.ResumeData, expectedVersion int) (Resume, error) {
	return r.mutate(ctx, userID, id, func(res *Resume) error {
		if res.Version != expectedVersion {
			return ErrConflict
		}
		res.ResumeData = &data
		res.Version++
		return nil
	})
}

func (r *MemoryRepo) BeginGeneration(ctx context.Context, userID, id string, staleBefore time.Time) (Resume, error) {
	return r.mutate(ctx, userID, id, func(res *Resume) error {
		if res.Status == StatusGenerating && res.UpdatedAt.After(staleBefore) {
			return ErrConflict
		}
		res.Status = StatusGenerating
		return nil
	})
}

func (r *MemoryRepo) CompleteGeneration(ctx context.Context, userID, id string, data model.ResumeData) (Resume, error) {
	return r.mutate(ctx, userID, id, func(res *Resume) error {
		if res.Status != StatusGenerating {
			return ErrConflict
		}
		res.ResumeData = &data
		res.Status = StatusComplete
		res.Version++
		return nil
	})
}

func (r *MemoryRepo) FailGeneration(ctx context.Context, userID, id string) error {
	_, err := r.mutate(ctx, userID, id, func(res *Resume) error {
		if res.Status != StatusGenerating {
			return nil
		}
		res.Status = statusAtRest(res.ResumeData != nil)
		return nil
	})
	return err
}

func (r *MemoryRepo) mutate(ctx context.Context, userID, id string, fn func(*Resume) error) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok || res.UserID != userID {
		return Resume{}, ErrNotFound
	}
	if err := fn(&res); err != nil {
		return Resume{}, err
	}
	res.UpdatedAt = r.now()
	r.resumes[id] = res
	return clone(res), nil
}

// statusAtRest is the status of a resume that is not generating.
func statusAtRest(hasData bool) Status {
	if hasData {
		return StatusComplete
	}
	return StatusDraft
}

func clone(res Resume) Resume {
	if res.InputSources != nil {
		res.InputSources = append(res.InputSources[:0:0], res.InputSources...)
	}
	if res.ResumeData != nil {
		data := *res.ResumeData
		res.ResumeData = &data
	}
	return res
}
