package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resumegen-api/internal/guard"
	"resumegen-api/internal/prompts"
	"resumegen-api/resume/model"
)

// PGRepo implements Repo using Postgres. Chat messages cascade on delete via FK.
type PGRepo struct {
	DB *sql.DB
}

const resumeColumns = `id, user_id, title, template_id, mode, job_posting, input_sources, resume_data, status, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) Create(ctx context.Context, res Resume) error {
	sources, err := json.Marshal(res.InputSources)
	if err != nil {
		return fmt.Errorf("encode input sources: %w", err)
	}
	data, err := encodeData(res.ResumeData)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO resumes (` + resumeColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11, $12)`
	_, err = r.DB.ExecContext(ctx, query,
		res.ID,
		res.UserID,
		res.Title,
		res.TemplateID,
		string(res.Mode),
		nullableString(res.JobPosting),
		string(sources),
		data,
		string(res.Status),
		res.Version,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID, id string) (Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1 AND user_id = $2`
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, ErrNotFound
	}
	return res, err
}

func (r *PGRepo) List(ctx context.Context, userID string) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE user_id = $1 ORDER BY updated_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

func (r *PGRepo) UpdateMeta(ctx context.Context, userID, id string, meta MetaUpdate) (Resume, error) {
	query := `
UPDATE resumes
SET title = COALESCE($3, title),
    template_id = COALESCE($4, template_id),
    updated_at = $5
WHERE id = $1 AND user_id = $2
RETURNING ` + resumeColumns
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id, userID, meta.Title, meta.TemplateID, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, ErrNotFound
	}
	return res, err
}

func (r *PGRepo) UpdateData(ctx context.Context, userID, id string, data model.ResumeData, expectedVersion int) (Resume, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Resume{}, fmt.Errorf("encode resume data: %w", err)
	}
	query := `
UPDATE resumes
SET resume_data = $3::jsonb,
    version = version + 1,
    updated_at = $5
WHERE id = $1 AND user_id = $2 AND version = $4
RETURNING ` + resumeColumns
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id, userID, string(payload), expectedVersion, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, r.missOrConflict(ctx, userID, id)
	}
	return res, err
}

func (r *PGRepo) BeginGeneration(ctx context.Context, userID, id string, staleBefore time.Time) (Resume, error) {
	query := `
UPDATE resumes
SET status = 'generating',
    updated_at = $4
WHERE id = $1 AND user_id = $2 AND (status <> 'generating' OR updated_at < $3)
RETURNING ` + resumeColumns
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id, userID, staleBefore, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, r.missOrConflict(ctx, userID, id)
	}
	return res, err
}

func (r *PGRepo) CompleteGeneration(ctx context.Context, userID, id string, data model.ResumeData) (Resume, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Resume{}, fmt.Errorf("encode resume data: %w", err)
	}
	query := `
UPDATE resumes
SET resume_data = $3::jsonb,
    status = 'complete',
    version = version + 1,
    updated_at = $4
WHERE id = $1 AND user_id = $2 AND status = 'generating'
RETURNING ` + resumeColumns
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id, userID, string(payload), time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, r.missOrConflict(ctx, userID, id)
	}
	return res, err
}

func (r *PGRepo) FailGeneration(ctx context.Context, userID, id string) error {
	const query = `
UPDATE resumes
SET status = CASE WHEN resume_data IS NULL THEN 'draft' ELSE 'complete' END,
    updated_at = $3
WHERE id = $1 AND user_id = $2 AND status = 'generating'`
	_, err := r.DB.ExecContext(ctx, query, id, userID, time.Now().UTC())
	return err
}

// missOrConflict tells a missing row apart from a failed compare-and-set.
func (r *PGRepo) missOrConflict(ctx context.Context, userID, id string) error {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func scanResume(row rowScanner) (Resume, error) {
	var (
		res        Resume
		mode       string
		status     string
		jobPosting sql.NullString
		sources    []byte
		data       []byte
	)
	if err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.Title,
		&res.TemplateID,
		&mode,
		&jobPosting,
		&sources,
		&data,
		&status,
		&res.Version,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return Resume{}, err
	}
	res.Mode = prompts.NormalizeMode(mode)
	res.Status = Status(status)
	if jobPosting.Valid {
		res.JobPosting = jobPosting.String
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &res.InputSources); err != nil {
			return Resume{}, fmt.Errorf("decode input sources: %w", err)
		}
	}
	if res.InputSources == nil {
		res.InputSources = []guard.InputSource{}
	}
	if len(data) > 0 && string(data) != "null" {
		parsed, err := model.Parse(data)
		if err != nil {
			return Resume{}, fmt.Errorf("decode resume data: %w", err)
		}
		res.ResumeData = &parsed
	}
	return res, nil
}

func encodeData(data *model.ResumeData) (any, error) {
	if data == nil {
		return nil, nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode resume data: %w", err)
	}
	return string(payload), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
