package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumegen-api/internal/guard"
	"resumegen-api/internal/llm"
	"resumegen-api/internal/prompts"
	"resumegen-api/internal/shared/telemetry"
)

type scriptedClient struct {
	reply     string
	deltas    []string
	err       error
	streamErr error

	lastReq llm.Request
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	c.lastReq = req
	if c.err != nil {
		return llm.Response{}, c.err
	}
	return llm.Response{Text: c.reply}, nil
}

func (c *scriptedClient) Stream(_ context.Context, req llm.Request, onDelta func(string) error) error {
	c.lastReq = req
	for _, d := range c.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return c.streamErr
}

func collect(events *[]Event) func(Event) error {
	return func(ev Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestGenerateParsesProseWrappedReply(t *testing.T) {
	client := &scriptedClient{reply: "Sure! Here it is:\n{\"contactInfo\":{\"fullName\":\"Ada Lovelace\",\"email\":\"ada@example.com\"},\"skills\":[\"Go\"]}\nGood luck."}
	o := New(client, Options{})

	data, err := o.Generate(context.Background(), GenerateInput{
		Mode:       prompts.ModeCreate,
		TemplateID: "classic",
		InputSources: []guard.InputSource{
			{Type: "text", Content: "Ada, engineer"},
			{Type: "file", Filename: "cv.pdf", Content: "Analytical Engine"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", data.ContactInfo.FullName)
	assert.Equal(t, []string{"Go"}, data.Skills)
	assert.NotNil(t, data.Experience)

	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, llm.RoleUser, client.lastReq.Messages[0].Role)
	assert.Contains(t, client.lastReq.Messages[0].Content, "Ada, engineer\n\n---\n\nAnalytical Engine")
	assert.Equal(t, llm.DefaultMaxTokens, client.lastReq.MaxTokens)
}

func TestGenerateErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		client *scriptedClient
		want   Kind
	}{
		{"model call", &scriptedClient{err: errors.New("boom")}, KindModelCall},
		{"no json", &scriptedClient{reply: "I cannot help with that."}, KindExtractionFailed},
		{"schema", &scriptedClient{reply: `{"contactInfo":{"email":"x@y.z"}}`}, KindSchemaInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.client, Options{}).Generate(context.Background(), GenerateInput{Mode: prompts.ModeCreate})
			require.Error(t, err)
			assert.Equal(t, tc.want, KindOf(err))
		})
	}
}

func TestStreamChatRelaysTextThenSingleUpdate(t *testing.T) {
	client := &scriptedClient{deltas: []string{
		"I tightened your summary. ",
		"<resume_update>{\"contactInfo\":{\"fullName\":",
		"\"Ada\"},\"summary\":\"Engineer\"}</resume",
		"_update> Anything else?",
	}}
	o := New(client, Options{})

	var events []Event
	err := o.StreamChat(context.Background(), ChatInput{
		TemplateID:  "modern",
		ResumeData:  json.RawMessage(`{"contactInfo":{"fullName":"Ada"}}`),
		History:     []llm.Message{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleAssistant, Content: "hello"}},
		UserMessage: "shorten my summary",
	}, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 5)
	var text strings.Builder
	for _, ev := range events[:4] {
		assert.Equal(t, EventText, ev.Type)
		text.WriteString(ev.Content)
	}
	assert.Equal(t, strings.Join(client.deltas, ""), text.String())

	last := events[4]
	assert.Equal(t, EventResumeUpdate, last.Type)
	assert.JSONEq(t, `{"contactInfo":{"fullName":"Ada"},"summary":"Engineer"}`, string(last.ResumeData))

	require.Len(t, client.lastReq.Messages, 3)
	assert.Equal(t, "shorten my summary", client.lastReq.Messages[2].Content)
	assert.Contains(t, client.lastReq.System, "Current resume data:\n{\n  \"contactInfo\"")
}

func TestStreamChatSkipsMalformedPatch(t *testing.T) {
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	client := &scriptedClient{deltas: []string{"ok <resume_update>{\"contactInfo\":", "</resume_update>"}}
	var events []Event
	err := New(client, Options{}).StreamChat(context.Background(), ChatInput{UserMessage: "x"}, collect(&events))
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, EventText, ev.Type)
	}
	assert.Contains(t, buf.String(), "chat.resume_update_skipped")
}

func TestStreamChatRelaysPartialPatchAcrossDeltas(t *testing.T) {
	client := &scriptedClient{deltas: []string{
		"Added Go. <resume_",
		"update>{\"skills\":",
		"[\"Go\"]}</resume_update>",
	}}
	var events []Event
	require.NoError(t, New(client, Options{}).StreamChat(context.Background(), ChatInput{UserMessage: "add Go"}, collect(&events)))

	var updates []Event
	for _, ev := range events {
		if ev.Type == EventResumeUpdate {
			updates = append(updates, ev)
		}
	}
	require.Len(t, updates, 1)
	assert.Equal(t, `{"skills":["Go"]}`, string(updates[0].ResumeData))
	assert.Equal(t, EventResumeUpdate, events[len(events)-1].Type)
}

func TestStreamChatKeepsUnknownKeysAndEmptyLists(t *testing.T) {
	block := `{"education":[{"institution":"MIT","highlights":[]}], "awards": ["Turing"]}`
	client := &scriptedClient{deltas: []string{"<resume_update>" + block + "</resume_update>"}}
	var events []Event
	require.NoError(t, New(client, Options{}).StreamChat(context.Background(), ChatInput{UserMessage: "x"}, collect(&events)))
	require.Len(t, events, 2)
	assert.JSONEq(t, block, string(events[1].ResumeData))
	assert.Contains(t, string(events[1].ResumeData), `"highlights":[]`)
}

func TestStreamChatSkipsNonObjectPatch(t *testing.T) {
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	client := &scriptedClient{deltas: []string{`<resume_update>["Go"]</resume_update>`}}
	var events []Event
	require.NoError(t, New(client, Options{}).StreamChat(context.Background(), ChatInput{UserMessage: "x"}, collect(&events)))
	require.Len(t, events, 1)
	assert.Equal(t, EventText, events[0].Type)
	assert.Contains(t, buf.String(), "chat.resume_update_skipped")
}

func TestStreamChatAcceptsFencedPatch(t *testing.T) {
	client := &scriptedClient{deltas: []string{"<resume_update>\n```json\n{\"contactInfo\":{\"fullName\":\"Ada\"}}\n```\n</resume_update>"}}
	var events []Event
	require.NoError(t, New(client, Options{}).StreamChat(context.Background(), ChatInput{UserMessage: "x"}, collect(&events)))
	require.Len(t, events, 2)
	assert.Equal(t, EventResumeUpdate, events[1].Type)
	assert.Equal(t, `{"contactInfo":{"fullName":"Ada"}}`, string(events[1].ResumeData))
}

func TestStreamChatFailureKeepsDeliveredText(t *testing.T) {
	client := &scriptedClient{deltas: []string{"partial"}, streamErr: errors.New("connection reset")}
	var events []Event
	err := New(client, Options{}).StreamChat(context.Background(), ChatInput{UserMessage: "x"}, collect(&events))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStreamFailure))
	require.Len(t, events, 1)
	assert.Equal(t, "partial", events[0].Content)
}

func TestStreamChatStopsWhenSinkFails(t *testing.T) {
	client := &scriptedClient{deltas: []string{"a", "b", "c"}}
	sinkErr := errors.New("client gone")
	calls := 0
	err := New(client, Options{}).StreamChat(context.Background(), ChatInput{UserMessage: "x"}, func(Event) error {
		calls++
		return sinkErr
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sinkErr))
	assert.Equal(t, 1, calls)
}
