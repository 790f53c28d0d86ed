package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumegen-api/internal/queue"
	"resumegen-api/internal/resumes"
)

type stubProcessor struct {
	errs map[string]error
}

func (s stubProcessor) ProcessQueued(_ context.Context, msg queue.Message) error {
	return s.errs[msg.ResumeID]
}

func record(t *testing.T, id, resumeID string) events.SQSMessage {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{ResumeID: resumeID, UserID: "guest:l", ReservationID: "res-" + resumeID, Credits: 1})
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestProcessReportsOnlyRetryableFailures(t *testing.T) {
	p := stubProcessor{errs: map[string]error{
		"transient": errors.New("db timeout"),
		"gone":      resumes.ErrNotFound,
	}}
	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "m1", "ok"),
		record(t, "m2", "transient"),
		record(t, "m3", "gone"),
		{MessageId: "m4", Body: "{broken"},
	}}

	resp := process(context.Background(), p, event)

	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m2", resp.BatchItemFailures[0].ItemIdentifier)
}
