package workerproc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumegen-api/internal/queue"
	"resumegen-api/internal/resumes"
)

type fakeProcessor struct {
	got []queue.Message
	err error
}

func (f *fakeProcessor) ProcessQueued(_ context.Context, msg queue.Message) error {
	f.got = append(f.got, msg)
	return f.err
}

func body(t *testing.T, msg queue.Message) string {
	t.Helper()
	b, err := queue.EncodeMessage(msg)
	require.NoError(t, err)
	return string(b)
}

func validMessage() queue.Message {
	return queue.Message{ResumeID: "r1", UserID: "guest:a", ReservationID: "res-1", Credits: 1, RequestID: "req-1"}
}

func TestParseMessage(t *testing.T) {
	_, _, err := ParseMessage("   ")
	assert.IsType(t, ErrEmptyBody{}, err)

	_, meta, err := ParseMessage("{nope")
	assert.IsType(t, ErrDecode{}, err)
	assert.Equal(t, 5, meta.BodyLen)
	assert.Len(t, meta.BodySHA, 64)

	noUser := validMessage()
	noUser.UserID = ""
	_, _, err = ParseMessage(body(t, noUser))
	var missing ErrMissingField
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "user id", missing.Field)
	assert.Equal(t, "req-1", missing.RequestID)

	msg, _, err := ParseMessage(body(t, validMessage()))
	require.NoError(t, err)
	assert.Equal(t, "r1", msg.ResumeID)
}

func TestHandleMessageUsesParsedMessageFromContext(t *testing.T) {
	p := &fakeProcessor{}
	ctx := WithParsedMessage(context.Background(), validMessage())

	require.NoError(t, HandleMessage(ctx, p, "ignored"))
	require.Len(t, p.got, 1)
	assert.Equal(t, "res-1", p.got[0].ReservationID)
}

func TestHandleMessageWrapsProcessorError(t *testing.T) {
	p := &fakeProcessor{err: fmt.Errorf("%w: model down", resumes.ErrGenerationFailed)}

	err := HandleMessage(context.Background(), p, body(t, validMessage()))
	var procErr ErrProcess
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "r1", procErr.ResumeID)
	assert.False(t, Retryable(err))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(ErrDecode{}))
	assert.False(t, Retryable(ErrProcess{Err: resumes.ErrNotFound}))
	assert.False(t, Retryable(ErrProcess{Err: resumes.ErrConflict}))
	assert.True(t, Retryable(ErrProcess{Err: errors.New("connection reset")}))
}
