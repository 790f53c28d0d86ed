package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumegen-api/internal/guard"
	"resumegen-api/internal/llm"
	"resumegen-api/internal/orchestrator"
	"resumegen-api/internal/resumes"
	"resumegen-api/internal/shared/metrics"
	"resumegen-api/internal/shared/server/middleware"
	"resumegen-api/internal/shared/telemetry"
	"resumegen-api/resume/model"
)

// State is a chat turn's position in its lifecycle.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateValidated  State = "VALIDATED"
	StateLoaded     State = "LOADED"
	StateStreaming  State = "STREAMING"
	StatePersisting State = "PERSISTING"
	StateDone       State = "DONE"
	StateErrored    State = "ERRORED"
)

// encodeResume renders the grounding data handed to the model.
var encodeResume = func(data *model.ResumeData) ([]byte, error) { return json.Marshal(data) }

// FailureMessage is the only error text a client ever sees on the stream.
const FailureMessage = "Failed to process message"

// ResumeStore is the slice of the resume service a chat turn needs.
type ResumeStore interface {
	Get(ctx context.Context, userID, id string) (resumes.Resume, error)
	ApplyData(ctx context.Context, userID, id string, data model.ResumeData, expectedVersion int) (resumes.Resume, error)
}

// Streamer runs the model side of a chat turn.
type Streamer interface {
	StreamChat(ctx context.Context, in orchestrator.ChatInput, onEvent func(orchestrator.Event) error) error
}

// Coordinator drives chat turns from a raw user message to persisted results.
type Coordinator struct {
	Resumes  ResumeStore
	Messages Repo
	Model    Streamer
	Now      func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Turn is one chat exchange. Prepare produces it in LOADED with the user
// message already stored; Run takes it to DONE or ERRORED.
type Turn struct {
	coord       *Coordinator
	state       State
	resume      resumes.Resume
	history     []llm.Message
	userMessage string
	requestID   string
}

func (t *Turn) State() State { return t.state }

// Prepare validates raw, loads the resume and its history, then stores the
// sanitized user message. Errors here happen before any stream is opened.
func (c *Coordinator) Prepare(ctx context.Context, userID, resumeID, raw string) (*Turn, error) {
	t := &Turn{coord: c, state: StateReceived, requestID: middleware.RequestIDFrom(ctx)}

	sanitized, res := guard.SanitizeAndValidateChatMessage(raw)
	if !res.Valid {
		metrics.IncGuardRejected(res.Code)
		t.state = StateErrored
		return t, &resumes.ValidationError{Field: "message", Result: res}
	}
	t.userMessage = sanitized
	t.state = StateValidated

	resume, err := c.Resumes.Get(ctx, userID, resumeID)
	if err != nil {
		t.state = StateErrored
		return t, err
	}
	if resume.Status == resumes.StatusGenerating {
		t.state = StateErrored
		return t, resumes.ErrConflict
	}
	stored, err := c.Messages.List(ctx, userID, resumeID)
	if err != nil {
		t.state = StateErrored
		return t, fmt.Errorf("load history: %w", err)
	}
	t.resume = resume
	t.history = make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		t.history = append(t.history, llm.Message{Role: m.Role, Content: m.Content})
	}
	t.state = StateLoaded

	if err := c.Messages.Append(ctx, Message{
		ID:        uuid.NewString(),
		ResumeID:  resumeID,
		UserID:    userID,
		Role:      llm.RoleUser,
		Content:   sanitized,
		CreatedAt: c.now(),
	}); err != nil {
		t.state = StateErrored
		return t, fmt.Errorf("store user message: %w", err)
	}
	return t, nil
}

// Run streams the model reply to sink and persists the outcome. The sink sees
// text events, at most one resume_update, then exactly one of done or error.
// A failing sink means the client went away: relaying stops but persistence of
// the accumulated reply still runs on a context detached from ctx.
func (t *Turn) Run(ctx context.Context, sink func(orchestrator.Event) error) error {
	if t.state != StateLoaded {
		return fmt.Errorf("chat turn in state %s cannot run", t.state)
	}
	metrics.IncChatTurnStarted()
	t.state = StateStreaming

	var (
		reply        strings.Builder
		patch        json.RawMessage
		disconnected bool
	)
	emit := func(ev orchestrator.Event) {
		if disconnected {
			return
		}
		if err := sink(ev); err != nil {
			disconnected = true
			telemetry.Info("chat.client_disconnected", t.fields(map[string]any{"error": err}))
		}
	}

	data, err := encodeResume(t.resume.ResumeData)
	if err != nil {
		telemetry.Error("chat.resume_encode_failed", t.fields(map[string]any{"error": err}))
		emit(orchestrator.Event{Type: orchestrator.EventError, Error: FailureMessage})
		t.state = StateErrored
		metrics.IncChatTurnFailed()
		return fmt.Errorf("encode resume data: %w", err)
	}
	streamErr := t.coord.Model.StreamChat(ctx, orchestrator.ChatInput{
		TemplateID:  t.resume.TemplateID,
		ResumeData:  data,
		History:     t.history,
		UserMessage: t.userMessage,
	}, func(ev orchestrator.Event) error {
		switch ev.Type {
		case orchestrator.EventText:
			reply.WriteString(ev.Content)
		case orchestrator.EventResumeUpdate:
			patch = ev.ResumeData
		}
		emit(ev)
		return nil
	})

	persistCtx := context.WithoutCancel(ctx)
	if streamErr != nil {
		if disconnected || ctx.Err() != nil {
			// Keep what the client already saw; no patch was applied.
			if reply.Len() > 0 {
				if err := t.storeAssistant(persistCtx, reply.String(), nil); err != nil {
					t.persistenceFailure(err, "assistant_partial")
				}
			}
		} else {
			telemetry.Error("chat.stream_failed", t.fields(map[string]any{
				"error": streamErr,
				"kind":  string(orchestrator.KindOf(streamErr)),
			}))
			emit(orchestrator.Event{Type: orchestrator.EventError, Error: FailureMessage})
		}
		t.state = StateErrored
		metrics.IncChatTurnFailed()
		return streamErr
	}

	t.state = StatePersisting
	if err := t.storeAssistant(persistCtx, reply.String(), patch); err != nil {
		return t.fail(emit, err, "assistant_message")
	}
	if patch != nil {
		if err := t.applyPatch(persistCtx, patch); err != nil {
			return t.fail(emit, err, "resume_data")
		}
	}

	emit(orchestrator.Event{Type: orchestrator.EventDone})
	t.state = StateDone
	metrics.IncChatTurnCompleted()
	telemetry.Info("chat.turn_complete", t.fields(map[string]any{
		"reply_len":     reply.Len(),
		"resume_update": patch != nil,
		"disconnected":  disconnected,
	}))
	return nil
}

func (t *Turn) storeAssistant(ctx context.Context, content string, snapshot json.RawMessage) error {
	return t.coord.Messages.Append(ctx, Message{
		ID:             uuid.NewString(),
		ResumeID:       t.resume.ID,
		UserID:         t.resume.UserID,
		Role:           llm.RoleAssistant,
		Content:        content,
		ResumeSnapshot: snapshot,
		CreatedAt:      t.coord.now(),
	})
}

// applyPatch overlays the patch's top-level fields on the stored resume and
// writes the result. A merge that fails the schema is dropped with a warning:
// the reply text is already delivered and stored.
func (t *Turn) applyPatch(ctx context.Context, patch json.RawMessage) error {
	data, err := mergePatch(t.resume.ResumeData, patch)
	if err != nil {
		telemetry.Warn("chat.resume_update_rejected", t.fields(map[string]any{"error": err}))
		return nil
	}
	if _, err := t.coord.Resumes.ApplyData(ctx, t.resume.UserID, t.resume.ID, data, t.resume.Version); err != nil {
		return err
	}
	metrics.IncChatPatchApplied()
	return nil
}

// mergePatch replaces each top-level field of current named in patch. A full
// resume object replaces everything.
func mergePatch(current *model.ResumeData, patch json.RawMessage) (model.ResumeData, error) {
	fields := map[string]json.RawMessage{}
	if current != nil {
		base, err := json.Marshal(current)
		if err != nil {
			return model.ResumeData{}, err
		}
		if err := json.Unmarshal(base, &fields); err != nil {
			return model.ResumeData{}, err
		}
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return model.ResumeData{}, err
	}
	for k, v := range overlay {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return model.ResumeData{}, err
	}
	return model.Parse(merged)
}

func (t *Turn) fail(emit func(orchestrator.Event), err error, stage string) error {
	t.persistenceFailure(err, stage)
	emit(orchestrator.Event{Type: orchestrator.EventError, Error: FailureMessage})
	t.state = StateErrored
	metrics.IncChatTurnFailed()
	return err
}

// persistenceFailure is logged at error level: the model turn succeeded but its result may be lost.
func (t *Turn) persistenceFailure(err error, stage string) {
	fields := t.fields(map[string]any{"error": err, "stage": stage})
	if errors.Is(err, resumes.ErrConflict) {
		fields["reason"] = "stale_version"
	}
	telemetry.Error("chat.persistence_failure", fields)
}

func (t *Turn) fields(extra map[string]any) map[string]any {
	out := map[string]any{
		"resume_id": t.resume.ID,
		"user_id":   t.resume.UserID,
		"state":     string(t.state),
	}
	if t.requestID != "" {
		out["request_id"] = t.requestID
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
