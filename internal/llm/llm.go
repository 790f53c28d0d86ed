package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const DefaultMaxTokens = 4096

// Message is one conversation turn sent to the provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Response is the full text of a non-streamed completion.
type Response struct {
	Text         string
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Client abstracts LLM providers.
//
// Stream invokes onDelta for every text delta in the order the model produced
// them and returns nil only after the provider signalled the end of the message.
// An error returned by onDelta aborts the stream and is returned unchanged.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Stream(ctx context.Context, req Request, onDelta func(string) error) error
}

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

func (PlaceholderClient) Complete(context.Context, Request) (Response, error) {
	return Response{}, ErrNotImplemented
}

func (PlaceholderClient) Stream(context.Context, Request, func(string) error) error {
	return ErrNotImplemented
}

// MaxTokensOrDefault returns n, or DefaultMaxTokens when n is not positive.
func MaxTokensOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
