package chat

import (
	"context"
	"database/sql"

	"resumegen-api/internal/llm"
)

// PGRepo stores messages in chat_messages; seq breaks created_at ties.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Append(ctx context.Context, msg Message) error {
	const query = `
INSERT INTO chat_messages (id, resume_id, user_id, role, content, resume_snapshot, created_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`
	var snapshot any
	if len(msg.ResumeSnapshot) > 0 {
		snapshot = string(msg.ResumeSnapshot)
	}
	_, err := r.DB.ExecContext(ctx, query,
		msg.ID,
		msg.ResumeID,
		msg.UserID,
		string(msg.Role),
		msg.Content,
		snapshot,
		msg.CreatedAt,
	)
	return err
}

func (r *PGRepo) List(ctx context.Context, userID, resumeID string) ([]Message, error) {
	const query = `
SELECT id, resume_id, user_id, role, content, resume_snapshot, created_at
FROM chat_messages
WHERE resume_id = $1 AND user_id = $2
ORDER BY created_at ASC, seq ASC`
	rows, err := r.DB.QueryContext(ctx, query, resumeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var (
			m        Message
			role     string
			snapshot []byte
		)
		if err := rows.Scan(&m.ID, &m.ResumeID, &m.UserID, &role, &m.Content, &snapshot, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = llm.Role(role)
		if len(snapshot) > 0 {
			m.ResumeSnapshot = snapshot
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepo) DeleteByResume(ctx context.Context, userID, resumeID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM chat_messages WHERE resume_id = $1 AND user_id = $2`, resumeID, userID)
	return err
}
