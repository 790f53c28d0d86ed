package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

var (
	//go:embed text/persona.txt
	persona string
	//go:embed text/create.txt
	createMode string
	//go:embed text/tailor.txt
	tailorMode string
	//go:embed text/styles/*.txt
	styleFS embed.FS
)

// Mode selects the mode block used for one-shot generation.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeTune   Mode = "tune"
)

// NormalizeMode maps unknown values to ModeCreate.
func NormalizeMode(raw string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(raw))) == ModeTune {
		return ModeTune
	}
	return ModeCreate
}

const (
	blockSeparator = "\n\n"

	generateInstruction = "Generate a professional resume from the following information. Return ONLY valid JSON matching the ResumeData schema."
	updateInstruction   = "If you need to update the resume, include the complete updated resume as a single JSON object wrapped in <resume_update>...</resume_update> tags in your response. Use the same schema as the current resume data."
)

// Prompt is a composed system instruction plus the first user turn.
type Prompt struct {
	System string
	User   string
}

// GenerateContext carries the already-sanitized inputs for one-shot generation.
type GenerateContext struct {
	Mode       Mode
	TemplateID string
	InputText  string
	JobPosting string
}

// Persona returns the fixed base persona, including scope rules and the output schema.
func Persona() string {
	return trimBlock(persona)
}

// CreateMode wraps inputText in a user_input section.
func CreateMode(inputText string) string {
	return strings.NewReplacer("{{INPUT}}", inputText).Replace(trimBlock(createMode))
}

// TailorMode wraps the existing resume and the posting in their own sections.
func TailorMode(existingResume, jobPosting string) string {
	return strings.NewReplacer(
		"{{RESUME}}", existingResume,
		"{{JOB_POSTING}}", jobPosting,
	).Replace(trimBlock(tailorMode))
}

// ChatGrounding renders the current resume data and the update delimiter instruction.
func ChatGrounding(resumeData json.RawMessage) (string, error) {
	current := []byte("null")
	if len(bytes.TrimSpace(resumeData)) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, resumeData, "", "  "); err != nil {
			return "", fmt.Errorf("indent resume data: %w", err)
		}
		current = buf.Bytes()
	}
	return "Current resume data:\n" + string(current) + blockSeparator + updateInstruction, nil
}

// ComposeGenerate builds the persona + style + mode system prompt and the user turn.
func ComposeGenerate(in GenerateContext) Prompt {
	var mode string
	if in.Mode == ModeTune {
		mode = TailorMode(in.InputText, in.JobPosting)
	} else {
		mode = CreateMode(in.InputText)
	}
	return Prompt{
		System: join(Persona(), Style(in.TemplateID), mode),
		User:   generateInstruction + blockSeparator + in.InputText,
	}
}

// ComposeChat builds the system prompt for a chat turn grounded on resumeData.
func ComposeChat(templateID string, resumeData json.RawMessage) (string, error) {
	grounding, err := ChatGrounding(resumeData)
	if err != nil {
		return "", err
	}
	return join(Persona(), Style(templateID), grounding), nil
}

func join(blocks ...string) string {
	return strings.Join(blocks, blockSeparator)
}

func trimBlock(s string) string {
	return strings.TrimRight(s, "\r\n")
}
