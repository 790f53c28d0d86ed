package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"resumegen-api/internal/llm"
	"resumegen-api/internal/shared/telemetry"
)

var apiURL = "https://api.openai.com/v1/chat/completions"

const providerName = "openai"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, maxTokens int) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  llm.MaxTokensOrDefault(maxTokens),
		timeout:    timeout,
		httpClient: &http.Client{},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         *float32      `json:"temperature,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Stream              bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *apiError) err() error {
	return fmt.Errorf("openai error: %s (%s)", e.Message, e.Type)
}

// Complete sends one chat completion. When the model rejects temperature 0 the
// request is repeated once without it.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	withTemp := !omitTemperature(c.model)
	resp, err := c.completeOnce(ctx, req, withTemp)
	if err != nil && withTemp && isTemperatureUnsupported(err) {
		telemetry.Warn("llm.temperature_unsupported", map[string]any{"provider": providerName, "model": c.model})
		resp, err = c.completeOnce(ctx, req, false)
	}
	return resp, err
}

func (c *Client) completeOnce(ctx context.Context, req llm.Request, withTemp bool) (llm.Response, error) {
	httpResp, err := c.do(ctx, req, withTemp, false)
	if err != nil {
		return llm.Response{}, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return llm.Response{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Response{}, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return llm.Response{}, parsed.Error.err()
	}
	if len(parsed.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return llm.Response{}, fmt.Errorf("openai response empty content")
	}
	out := llm.Response{
		Text:       content,
		Model:      parsed.Model,
		StopReason: parsed.Choices[0].FinishReason,
	}
	if parsed.Usage != nil {
		out.InputTokens = parsed.Usage.PromptTokens
		out.OutputTokens = parsed.Usage.CompletionTokens
	}
	logUsage(c.model, promptHash(req), out)
	return out, nil
}

// Stream relays delta content until the [DONE] sentinel.
func (c *Client) Stream(ctx context.Context, req llm.Request, onDelta func(string) error) error {
	httpResp, err := c.do(ctx, req, !omitTemperature(c.model), true)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	done := false
	err = llm.ReadSSE(httpResp.Body, func(_ string, data string) error {
		if strings.TrimSpace(data) == "[DONE]" {
			done = true
			return llm.ErrStopStream
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("openai stream parse: %w", err)
		}
		if chunk.Error != nil {
			return chunk.Error.err()
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if err := onDelta(choice.Delta.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !done {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("openai stream ended before [DONE]")
	}
	return nil
}

func (c *Client) do(ctx context.Context, req llm.Request, withTemp, stream bool) (*http.Response, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	reqBody := chatRequest{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: c.maxTokens,
		Stream:              stream,
	}
	if req.MaxTokens > 0 {
		reqBody.MaxCompletionTokens = req.MaxTokens
	}
	if withTemp {
		temp := float32(0)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var parsed chatResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil && isTemperatureMessage(parsed.Error.Message) {
			return nil, parsed.Error.err()
		}
		return nil, &llm.StatusError{Provider: providerName, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

// omitTemperature covers gpt-5 models and LLM_NO_TEMP0_MODELS (comma separated).
func omitTemperature(model string) bool {
	if isGPT5(model) {
		return true
	}
	model = strings.ToLower(strings.TrimSpace(model))
	for _, m := range strings.Split(os.Getenv("LLM_NO_TEMP0_MODELS"), ",") {
		if strings.ToLower(strings.TrimSpace(m)) == model && model != "" {
			return true
		}
	}
	return false
}

func isTemperatureUnsupported(err error) bool {
	return err != nil && isTemperatureMessage(err.Error())
}

func isTemperatureMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "temperature") && strings.Contains(msg, "unsupported")
}

func logUsage(model, hash string, resp llm.Response) {
	telemetry.Info("llm.usage", map[string]any{
		"provider":      providerName,
		"model":         model,
		"prompt_hash":   hash,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
		"stop_reason":   resp.StopReason,
	})
}

func promptHash(req llm.Request) string {
	return hashPromptString(promptStringFromRequest(req))
}

func promptStringFromRequest(req llm.Request) string {
	var b strings.Builder
	b.WriteString("system: ")
	b.WriteString(req.System)
	for _, m := range req.Messages {
		b.WriteString("\n\n")
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func hashPromptString(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

var _ llm.Client = (*Client)(nil)
