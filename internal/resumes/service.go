package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumegen-api/internal/credits"
	"resumegen-api/internal/guard"
	"resumegen-api/internal/orchestrator"
	"resumegen-api/internal/prompts"
	"resumegen-api/internal/queue"
	"resumegen-api/internal/shared/metrics"
	"resumegen-api/internal/shared/telemetry"
	"resumegen-api/resume/model"
)

// ErrGenerationFailed wraps every failure after credits were reserved; the
// reservation has been refunded by the time it is returned.
var ErrGenerationFailed = errors.New("generation failed")

// ErrNoInput is returned when generation is requested without input sources.
var ErrNoInput = errors.New("resume has no input sources")

// ErrQueueUnavailable is returned for async generation without a queue.
var ErrQueueUnavailable = errors.New("generation queue not configured")

// CreditGate reserves credits before a generation and refunds them on failure.
type CreditGate interface {
	Reserve(ctx context.Context, userID string, n int) (credits.Reservation, error)
	Refund(ctx context.Context, r credits.Reservation) error
}

// Generator produces resume data from a document's inputs.
type Generator interface {
	Generate(ctx context.Context, in orchestrator.GenerateInput) (model.ResumeData, error)
}

// MessagePurger drops a resume's chat history.
type MessagePurger interface {
	DeleteByResume(ctx context.Context, userID, resumeID string) error
}

// Service holds resume business rules.
type Service struct {
	Repo      Repo
	Credits   CreditGate
	Generator Generator
	Queue     queue.Client
	Messages  MessagePurger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateInput is the body of POST /resumes.
type CreateInput struct {
	Title        string              `json:"title"`
	TemplateID   string              `json:"templateId"`
	Mode         string              `json:"mode"`
	JobPosting   string              `json:"jobPosting"`
	InputSources []guard.InputSource `json:"inputSources"`
}

// Create stores a new draft. Text inputs pass through the guard and are stored sanitized.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Resume, error) {
	title := strings.TrimSpace(in.Title)
	if res := guard.ValidateTitle(title); !res.Valid {
		return Resume{}, reject("title", res)
	}
	if title == "" {
		title = DefaultTitle
	}

	sources := make([]guard.InputSource, 0, len(in.InputSources))
	for _, src := range in.InputSources {
		if src.Type == "" {
			src.Type = SourceText
		}
		if !knownSourceType(src.Type) {
			return Resume{}, reject("inputSources", guard.ValidationResult{
				Code:  guard.CodeValidationFailed,
				Error: fmt.Sprintf("Unsupported input source type %q", src.Type),
			})
		}
		sources = append(sources, src)
	}
	if len(sources) > 0 {
		sanitized, res := guard.SanitizeAndValidateInputSources(sources)
		if !res.Valid {
			return Resume{}, reject("inputSources", res)
		}
		sources = sanitized
	}

	jobPosting := ""
	if strings.TrimSpace(in.JobPosting) != "" {
		sanitized, res := guard.SanitizeAndValidateJobPosting(in.JobPosting)
		if !res.Valid {
			return Resume{}, reject("jobPosting", res)
		}
		jobPosting = sanitized
	}

	now := s.now()
	r := Resume{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        title,
		TemplateID:   prompts.NormalizeTemplateID(in.TemplateID),
		Mode:         prompts.NormalizeMode(in.Mode),
		JobPosting:   jobPosting,
		InputSources: sources,
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		return Resume{}, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Resume, error) {
	return s.Repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]Resume, error) {
	return s.Repo.List(ctx, userID)
}

// Delete removes the resume and its chat history.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if s.Messages == nil {
		return nil
	}
	if err := s.Messages.DeleteByResume(ctx, userID, id); err != nil {
		telemetry.Warn("resume.message_purge_failed", map[string]any{"resume_id": id, "error": err})
	}
	return nil
}

// UpdateInput is the body of PATCH /resumes/:id. ResumeData requires Version.
type UpdateInput struct {
	Title      *string         `json:"title"`
	TemplateID *string         `json:"templateId"`
	ResumeData json.RawMessage `json:"resumeData"`
	Version    *int            `json:"version"`
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Resume, error) {
	var meta MetaUpdate
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if res := guard.ValidateTitle(title); !res.Valid {
			return Resume{}, reject("title", res)
		}
		if title == "" {
			title = DefaultTitle
		}
		meta.Title = &title
	}
	if in.TemplateID != nil {
		if !prompts.IsKnownTemplate(*in.TemplateID) {
			return Resume{}, reject("templateId", guard.ValidationResult{
				Code:  guard.CodeValidationFailed,
				Error: fmt.Sprintf("Unknown template %q", *in.TemplateID),
			})
		}
		tid := *in.TemplateID
		meta.TemplateID = &tid
	}

	var (
		out Resume
		err error
	)
	if len(in.ResumeData) > 0 {
		if in.Version == nil {
			return Resume{}, reject("version", guard.ValidationResult{
				Code:  guard.CodeValidationFailed,
				Error: "version is required when updating resumeData",
			})
		}
		data, perr := model.Parse(in.ResumeData)
		if perr != nil {
			return Resume{}, reject("resumeData", guard.ValidationResult{Code: guard.CodeValidationFailed, Error: perr.Error()})
		}
		if out, err = s.ApplyData(ctx, userID, id, data, *in.Version); err != nil {
			return Resume{}, err
		}
	}
	if meta.Title != nil || meta.TemplateID != nil {
		return s.Repo.UpdateMeta(ctx, userID, id, meta)
	}
	if out.ID != "" {
		return out, nil
	}
	return s.Repo.Get(ctx, userID, id)
}

// ApplyData writes schema-valid data if the stored version still equals expectedVersion.
func (s *Service) ApplyData(ctx context.Context, userID, id string, data model.ResumeData, expectedVersion int) (Resume, error) {
	if err := data.Validate(); err != nil {
		return Resume{}, err
	}
	return s.Repo.UpdateData(ctx, userID, id, data, expectedVersion)
}

// Generate charges one credit and runs generation inline.
func (s *Service) Generate(ctx context.Context, userID, id string) (Resume, error) {
	res, reservation, err := s.begin(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	return s.run(ctx, res, reservation)
}

// EnqueueGeneration charges one credit and hands generation to a worker.
// The returned resume is already in the generating state.
func (s *Service) EnqueueGeneration(ctx context.Context, userID, id, requestID string) (Resume, error) {
	if s.Queue == nil {
		return Resume{}, ErrQueueUnavailable
	}
	res, reservation, err := s.begin(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	msg := queue.Message{
		ResumeID:      res.ID,
		UserID:        userID,
		ReservationID: reservation.ID,
		Credits:       reservation.Amount,
		RequestID:     requestID,
		EnqueuedAt:    s.now().Format(time.RFC3339),
		Version:       queue.MessageVersion,
	}
	if err := s.Queue.Enqueue(ctx, msg); err != nil {
		s.abort(ctx, res, reservation)
		return Resume{}, fmt.Errorf("%w: enqueue: %w", ErrGenerationFailed, err)
	}
	telemetry.Info("resume.generation_enqueued", map[string]any{
		"resume_id":  res.ID,
		"user_id":    userID,
		"request_id": requestID,
	})
	return res, nil
}

// ProcessQueued runs a generation a worker received. Redelivered messages for
// resumes that are no longer generating are acknowledged without work.
func (s *Service) ProcessQueued(ctx context.Context, msg queue.Message) error {
	res, err := s.Repo.Get(ctx, msg.UserID, msg.ResumeID)
	if err != nil {
		return err
	}
	if res.Status != StatusGenerating {
		telemetry.Info("resume.generation_skipped", map[string]any{
			"resume_id": res.ID,
			"status":    string(res.Status),
		})
		return nil
	}
	reservation := credits.Reservation{ID: msg.ReservationID, UserID: msg.UserID, Amount: msg.Credits}
	_, err = s.run(ctx, res, reservation)
	return err
}

// begin loads the resume, reserves credits, then claims the generating state.
func (s *Service) begin(ctx context.Context, userID, id string) (Resume, credits.Reservation, error) {
	res, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, credits.Reservation{}, err
	}
	if len(res.InputSources) == 0 {
		return Resume{}, credits.Reservation{}, ErrNoInput
	}
	reservation, err := s.Credits.Reserve(ctx, userID, credits.GenerationCost)
	if err != nil {
		return Resume{}, credits.Reservation{}, err
	}
	res, err = s.Repo.BeginGeneration(ctx, userID, id, s.now().Add(-GenerationTimeout))
	if err != nil {
		s.refund(ctx, reservation)
		return Resume{}, credits.Reservation{}, err
	}
	return res, reservation, nil
}

func (s *Service) run(ctx context.Context, res Resume, reservation credits.Reservation) (Resume, error) {
	start := time.Now()
	metrics.IncGenerationStarted()
	fields := map[string]any{
		"resume_id":   res.ID,
		"user_id":     res.UserID,
		"mode":        string(res.Mode),
		"template_id": res.TemplateID,
	}

	data, err := s.Generator.Generate(ctx, orchestrator.GenerateInput{
		Mode:         res.Mode,
		InputSources: res.InputSources,
		TemplateID:   res.TemplateID,
		JobPosting:   res.JobPosting,
	})
	if err != nil {
		fields["error"] = err
		fields["kind"] = string(orchestrator.KindOf(err))
		telemetry.Error("resume.generation_failed", fields)
		metrics.IncGenerationFailed()
		s.abort(ctx, res, reservation)
		return Resume{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	out, err := s.Repo.CompleteGeneration(context.WithoutCancel(ctx), res.UserID, res.ID, data)
	if err != nil {
		metrics.IncGenerationFailed()
		if errors.Is(err, ErrConflict) {
			// Another delivery of the same job finished first.
			telemetry.Warn("resume.generation_superseded", fields)
			return Resume{}, err
		}
		fields["error"] = err
		telemetry.Error("resume.generation_store_failed", fields)
		s.abort(ctx, res, reservation)
		return Resume{}, fmt.Errorf("%w: store: %w", ErrGenerationFailed, err)
	}

	elapsed := metrics.SinceMillis(start)
	metrics.IncGenerationCompleted()
	metrics.ObserveGenerationDurationMs(elapsed)
	fields["duration_ms"] = elapsed
	fields["version"] = out.Version
	telemetry.Info("resume.generation_complete", fields)
	return out, nil
}

// abort resets the generating state and refunds, surviving request cancellation.
func (s *Service) abort(ctx context.Context, res Resume, reservation credits.Reservation) {
	detached := context.WithoutCancel(ctx)
	if err := s.Repo.FailGeneration(detached, res.UserID, res.ID); err != nil {
		telemetry.Error("resume.generation_reset_failed", map[string]any{"resume_id": res.ID, "error": err})
	}
	s.refund(detached, reservation)
}

func (s *Service) refund(ctx context.Context, reservation credits.Reservation) {
	// Refund logs its own failures.
	_ = s.Credits.Refund(context.WithoutCancel(ctx), reservation)
}

func reject(field string, res guard.ValidationResult) error {
	if res.Code == guard.CodeOffTopicRejected {
		metrics.IncGuardRejected(res.Code)
	} else {
		metrics.IncGuardRejected(guard.CodeValidationFailed)
	}
	return invalidField(field, res)
}
