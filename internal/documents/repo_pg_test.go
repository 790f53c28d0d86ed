package documents

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGRepoCreateAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &PGRepo{DB: db}
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	doc := Document{
		ID:               "d1",
		UserID:           "u1",
		FileName:         "cv.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        2048,
		StorageKey:       "abc/cv.pdf",
		ExtractedTextKey: "abc/cv.pdf.extracted.txt",
		CreatedAt:        now,
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("d1", "u1", "cv.pdf", "application/pdf", int64(2048), "abc/cv.pdf", "abc/cv.pdf.extracted.txt", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), doc))

	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "mime_type", "size_bytes", "storage_key", "extracted_text_key", "created_at"}).
		AddRow("d1", "u1", "cv.pdf", "application/pdf", int64(2048), "abc/cv.pdf", nil, now)
	mock.ExpectQuery("SELECT id, user_id, file_name").
		WithArgs("u1", 100, 0).
		WillReturnRows(rows)

	docs, err := repo.ListByUser(context.Background(), "u1", 500, -3)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "cv.pdf", docs[0].FileName)
	assert.Empty(t, docs[0].ExtractedTextKey)

	require.NoError(t, mock.ExpectationsWereMet())
}
