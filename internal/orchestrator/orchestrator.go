package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resumegen-api/internal/guard"
	"resumegen-api/internal/llm"
	"resumegen-api/internal/prompts"
	"resumegen-api/internal/shared/metrics"
	"resumegen-api/internal/shared/telemetry"
	"resumegen-api/internal/shared/tracing"
	"resumegen-api/resume/model"
)

const (
	sourceSeparator = "\n\n---\n\n"
	updateTag       = "resume_update"
)

// EventType names a chat stream event.
type EventType string

const (
	EventText         EventType = "text"
	EventResumeUpdate EventType = "resume_update"
	EventDone         EventType = "done"
	EventError        EventType = "error"
)

// Event is one transient chat stream event; it is never stored.
type Event struct {
	Type       EventType       `json:"type"`
	Content    string          `json:"content,omitempty"`
	ResumeData json.RawMessage `json:"resumeData,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Options tunes an Orchestrator.
type Options struct {
	MaxTokens int
	Strategy  Strategy
}

// Orchestrator runs one-shot generation and streamed chat against an llm.Client.
type Orchestrator struct {
	client    llm.Client
	maxTokens int
	strategy  Strategy
	tracer    trace.Tracer
}

func New(client llm.Client, opts Options) *Orchestrator {
	return &Orchestrator{
		client:    client,
		maxTokens: llm.MaxTokensOrDefault(opts.MaxTokens),
		strategy:  opts.Strategy,
		tracer:    tracing.Tracer("resumegen-api/orchestrator"),
	}
}

// GenerateInput carries sanitized inputs for one-shot generation.
type GenerateInput struct {
	Mode         prompts.Mode
	InputSources []guard.InputSource
	TemplateID   string
	JobPosting   string
}

// Generate makes one non-streamed model call and returns the schema-valid resume
// found in the reply. It never retries; callers own refunds.
func (o *Orchestrator) Generate(ctx context.Context, in GenerateInput) (model.ResumeData, error) {
	ctx, span := o.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("resume.mode", string(in.Mode)),
		attribute.String("resume.template_id", prompts.NormalizeTemplateID(in.TemplateID)),
		attribute.Int("resume.input_sources", len(in.InputSources)),
	))
	defer span.End()

	p := prompts.ComposeGenerate(prompts.GenerateContext{
		Mode:       in.Mode,
		TemplateID: in.TemplateID,
		InputText:  JoinSources(in.InputSources),
		JobPosting: in.JobPosting,
	})

	start := time.Now()
	resp, err := o.client.Complete(ctx, llm.Request{
		System:    p.System,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: p.User}},
		MaxTokens: o.maxTokens,
	})
	metrics.ObserveLLMLatencyMs(metrics.SinceMillis(start))
	if err != nil {
		return model.ResumeData{}, fail(span, newError(KindModelCall, err))
	}
	span.SetAttributes(attribute.Int("llm.output_tokens", resp.OutputTokens))

	raw, err := ExtractJSON(resp.Text, o.strategy)
	if err != nil {
		return model.ResumeData{}, fail(span, err)
	}
	data, err := model.Parse(raw)
	if err != nil {
		return model.ResumeData{}, fail(span, newError(KindSchemaInvalid, err))
	}
	return data, nil
}

// ChatInput is everything one chat turn needs from the store.
type ChatInput struct {
	TemplateID  string
	ResumeData  json.RawMessage
	History     []llm.Message
	UserMessage string
}

// StreamChat relays every model delta as a text event the moment it arrives. After
// the model signals the end, a resume_update block in the accumulated reply is
// emitted as one resume_update event; malformed blocks are dropped. StreamChat
// never emits done.
func (o *Orchestrator) StreamChat(ctx context.Context, in ChatInput, onEvent func(Event) error) error {
	ctx, span := o.tracer.Start(ctx, "llm.stream_chat", trace.WithAttributes(
		attribute.Int("chat.history_len", len(in.History)),
	))
	defer span.End()

	system, err := prompts.ComposeChat(in.TemplateID, in.ResumeData)
	if err != nil {
		return fail(span, newError(KindStreamFailure, err))
	}

	messages := make([]llm.Message, 0, len(in.History)+1)
	messages = append(messages, in.History...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: in.UserMessage})

	var full strings.Builder
	deltas := 0
	start := time.Now()
	err = o.client.Stream(ctx, llm.Request{System: system, Messages: messages, MaxTokens: o.maxTokens}, func(delta string) error {
		full.WriteString(delta)
		deltas++
		return onEvent(Event{Type: EventText, Content: delta})
	})
	metrics.ObserveLLMLatencyMs(metrics.SinceMillis(start))
	span.SetAttributes(attribute.Int("chat.deltas", deltas))
	if err != nil {
		return fail(span, newError(KindStreamFailure, err))
	}

	patch, ok := extractPatch(full.String())
	if !ok {
		return nil
	}
	span.SetAttributes(attribute.Bool("chat.resume_update", true))
	return onEvent(Event{Type: EventResumeUpdate, ResumeData: patch})
}

// extractPatch returns the first resume_update block when it holds a JSON
// object. The block may be a partial resume; it is relayed compacted but
// otherwise untouched, and schema checks happen where the resume is written.
func extractPatch(reply string) (json.RawMessage, bool) {
	block, ok := ExtractTaggedBlock(reply, updateTag)
	if !ok {
		return nil, false
	}
	body := strings.TrimSpace(stripCodeFence(block))
	var buf bytes.Buffer
	err := json.Compact(&buf, []byte(body))
	if err == nil && !strings.HasPrefix(body, "{") {
		err = errors.New("resume update is not a JSON object")
	}
	if err != nil {
		telemetry.Warn("chat.resume_update_skipped", map[string]any{
			"error":      err,
			"block_size": len(block),
		})
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// JoinSources concatenates source contents in order with the section separator.
func JoinSources(sources []guard.InputSource) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, s.Content)
	}
	return strings.Join(parts, sourceSeparator)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(KindOf(err)))
	return err
}
