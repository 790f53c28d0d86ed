package documents

import "context"

// Repo persists upload metadata. File bodies live in the object store.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
}
