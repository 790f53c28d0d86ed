package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageWireShape(t *testing.T) {
	msg := Message{
		ResumeID:      "resume-123",
		UserID:        "google:42",
		ReservationID: "res-789",
		Credits:       1,
		RequestID:     "request-456",
		EnqueuedAt:    "2026-01-30T22:00:00Z",
		Version:       MessageVersion,
	}
	payload, err := EncodeMessage(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resumeId":"resume-123","userId":"google:42","reservationId":"res-789","credits":1,
		"requestId":"request-456","enqueuedAt":"2026-01-30T22:00:00Z","version":2}`, string(payload))

	got, err := DecodeMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.Empty(t, got.Missing())
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	_, err := DecodeMessage([]byte("{not json"))
	assert.Error(t, err)
}

func TestMissingReportsFirstAbsentID(t *testing.T) {
	assert.Equal(t, "resume id", Message{UserID: "u", ReservationID: "r"}.Missing())
	assert.Equal(t, "user id", Message{ResumeID: "x", UserID: "  ", ReservationID: "r"}.Missing())
	assert.Equal(t, "reservation id", Message{ResumeID: "x", UserID: "u"}.Missing())
}
