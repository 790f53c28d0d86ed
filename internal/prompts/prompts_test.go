package prompts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaCarriesScopeBoundaryAndSchema(t *testing.T) {
	p := Persona()
	assert.True(t, strings.HasPrefix(p, "You are an expert resume writer and career coach."))
	for _, tag := range []string{"<user_input>", "<existing_resume>", "<job_posting>"} {
		assert.Contains(t, p, tag)
	}
	assert.Contains(t, p, "Never invent employers")
	assert.Contains(t, p, `"contactInfo": {`)
	assert.False(t, strings.HasSuffix(p, "\n"))
}

func TestStyleFallsBackToModern(t *testing.T) {
	for _, tpl := range Templates() {
		s := Style(tpl.ID)
		assert.True(t, strings.HasPrefix(s, "## Template Style: "+tpl.Name), tpl.ID)
	}
	assert.Equal(t, Style("modern"), Style("does-not-exist"))
	assert.Equal(t, Style("modern"), Style(""))
	assert.Equal(t, Style("technical"), Style(" Technical "))
}

func TestTemplatesCatalogue(t *testing.T) {
	got := Templates()
	require.Len(t, got, 6)
	assert.Equal(t, Template{ID: "modern", Name: "Modern", Description: "Clean, minimal, sans-serif, subtle color accents", PreviewColor: "#4A90D9"}, got[0])

	got[0].Name = "mutated"
	assert.Equal(t, "Modern", Templates()[0].Name)
	assert.Equal(t, "classic", NormalizeTemplateID("CLASSIC"))
	assert.Equal(t, DefaultTemplateID, NormalizeTemplateID("neon"))
}

func TestComposeGenerateCreate(t *testing.T) {
	p := ComposeGenerate(GenerateContext{
		Mode:       ModeCreate,
		TemplateID: "classic",
		InputText:  "Jane Doe\njane@example.com",
	})

	blocks := []string{Persona(), Style("classic"), CreateMode("Jane Doe\njane@example.com")}
	assert.Equal(t, strings.Join(blocks, "\n\n"), p.System)
	assert.Contains(t, p.System, "<user_input>\nJane Doe\njane@example.com\n</user_input>")
	assert.NotContains(t, p.System, "<job_posting>\n")
	assert.Equal(t, "Generate a professional resume from the following information. Return ONLY valid JSON matching the ResumeData schema.\n\nJane Doe\njane@example.com", p.User)
}

func TestComposeGenerateTune(t *testing.T) {
	p := ComposeGenerate(GenerateContext{
		Mode:       ModeTune,
		TemplateID: "unknown",
		InputText:  "existing resume text",
		JobPosting: "Staff Engineer, Go",
	})
	assert.Contains(t, p.System, Style("modern"))
	assert.Contains(t, p.System, "<existing_resume>\nexisting resume text\n</existing_resume>")
	assert.Contains(t, p.System, "<job_posting>\nStaff Engineer, Go\n</job_posting>")
	assert.Contains(t, p.System, "7. Do NOT fabricate experience or skills the candidate doesn't have")
}

func TestModeBlocksDoNotRescanUserText(t *testing.T) {
	out := TailorMode("resume mentions {{JOB_POSTING}}", "posting")
	assert.Contains(t, out, "resume mentions {{JOB_POSTING}}")
}

func TestNormalizeMode(t *testing.T) {
	assert.Equal(t, ModeTune, NormalizeMode("TUNE"))
	assert.Equal(t, ModeCreate, NormalizeMode("create"))
	assert.Equal(t, ModeCreate, NormalizeMode("whatever"))
}

func TestComposeChatGroundsOnIndentedResume(t *testing.T) {
	data := json.RawMessage(`{"contactInfo":{"fullName":"Jane","email":"j@x.io"},"skills":["Go"]}`)
	system, err := ComposeChat("executive", data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(system, Persona()+"\n\n"+Style("executive")+"\n\n"))
	assert.Contains(t, system, "Current resume data:\n{\n  \"contactInfo\": {\n    \"fullName\": \"Jane\",")
	assert.True(t, strings.HasSuffix(system, "<resume_update>...</resume_update> tags in your response. Use the same schema as the current resume data."))
}

func TestChatGroundingRoundTrip(t *testing.T) {
	data := json.RawMessage(`{"contactInfo":{"fullName":"Jane","email":"j@x.io"},"experience":[{"company":"Acme","title":"Eng","startDate":"2020","current":true,"highlights":["a"]}],"skills":["Go","SQL"]}`)
	grounding, err := ChatGrounding(data)
	require.NoError(t, err)

	body := strings.TrimPrefix(grounding, "Current resume data:\n")
	body = body[:strings.Index(body, "\n\nIf you need")]

	var original, reparsed any
	require.NoError(t, json.Unmarshal(data, &original))
	require.NoError(t, json.Unmarshal([]byte(body), &reparsed))
	assert.Equal(t, original, reparsed)
}

func TestChatGroundingNullAndInvalid(t *testing.T) {
	g, err := ChatGrounding(nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g, "Current resume data:\nnull\n\n"))

	_, err = ChatGrounding(json.RawMessage(`{broken`))
	assert.Error(t, err)
}
