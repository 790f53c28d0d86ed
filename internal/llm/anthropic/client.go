package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"resumegen-api/internal/llm"
	"resumegen-api/internal/shared/telemetry"
)

const (
	// APIEndpoint is the Anthropic Messages API endpoint.
	APIEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"
	// APIVersion is the Anthropic-Version header value.
	APIVersion = "2023-06-01"

	providerName = "anthropic"
)

// Client implements llm.Client against the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Messages API client. Streaming responses are bounded by
// ctx rather than an HTTP client timeout.
func NewClient(apiKey, model string, maxTokens int) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  llm.MaxTokensOrDefault(maxTokens),
		endpoint:   APIEndpoint,
		httpClient: &http.Client{},
	}, nil
}

// Complete sends a single non-streamed request and concatenates the text blocks.
func (c *Client) Complete(ctx context.Context, req llm.Request) (resp llm.Response, err error) {
	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	var httpResp *http.Response
	httpResp, err = c.do(ctx, req, false)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	var body []byte
	body, err = io.ReadAll(httpResp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return resp, err
	}

	var parsed MessagesResponse
	if err = json.Unmarshal(body, &parsed); err != nil {
		err = errors.Wrap(err, "failed to parse anthropic response")
		return resp, err
	}
	if len(parsed.Content) == 0 {
		err = errors.New("no content in anthropic response")
		return resp, err
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	resp = llm.Response{
		Text:         text.String(),
		Model:        parsed.Model,
		StopReason:   parsed.StopReason,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}
	telemetry.Info("llm.usage", map[string]any{
		"provider":      providerName,
		"model":         parsed.Model,
		"input_tokens":  parsed.Usage.InputTokens,
		"output_tokens": parsed.Usage.OutputTokens,
		"stop_reason":   parsed.StopReason,
	})
	return resp, nil
}

// Stream sends a streaming request and relays text_delta content.
func (c *Client) Stream(ctx context.Context, req llm.Request, onDelta func(string) error) error {
	httpResp, err := c.do(ctx, req, true)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	stopped := false
	err = llm.ReadSSE(httpResp.Body, func(_ string, data string) error {
		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return errors.Wrapf(err, "failed to parse stream event: %s", data)
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				return onDelta(ev.Delta.Text)
			}
		case "message_stop":
			stopped = true
			return llm.ErrStopStream
		case "error":
			if ev.Error != nil {
				return errors.Errorf("anthropic stream error: %s (%s)", ev.Error.Message, ev.Error.Type)
			}
			return errors.New("anthropic stream error")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !stopped {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.New("anthropic stream ended before message_stop")
	}
	return nil
}

func (c *Client) do(ctx context.Context, req llm.Request, stream bool) (*http.Response, error) {
	body := MessagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.System,
		Messages:  req.Messages,
		Stream:    stream,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", APIVersion)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.WithStack(&llm.StatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		})
	}
	return resp, nil
}

var _ llm.Client = (*Client)(nil)
