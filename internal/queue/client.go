package queue

import "context"

// Client hands queued generations to the worker fleet.
type Client interface {
	Enqueue(ctx context.Context, msg Message) error
}
