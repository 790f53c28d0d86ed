package prompts

import (
	"strings"
)

const DefaultTemplateID = "modern"

// Template describes a visual theme offered to clients.
type Template struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PreviewColor string `json:"previewColor"`
}

var templates = []Template{
	{ID: "modern", Name: "Modern", Description: "Clean, minimal, sans-serif, subtle color accents", PreviewColor: "#4A90D9"},
	{ID: "classic", Name: "Classic", Description: "Traditional, serif fonts, conservative layout", PreviewColor: "#2C3E50"},
	{ID: "minimal", Name: "Minimal", Description: "Maximum whitespace, ultra-clean", PreviewColor: "#7F8C8D"},
	{ID: "creative", Name: "Creative", Description: "Bold typography, unique layout elements", PreviewColor: "#E74C3C"},
	{ID: "executive", Name: "Executive", Description: "Formal, dense, leadership-focused", PreviewColor: "#1A1A2E"},
	{ID: "technical", Name: "Technical", Description: "Skills-heavy, project-focused, monospace accents", PreviewColor: "#27AE60"},
}

// Templates returns a copy of the template catalogue in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// IsKnownTemplate reports whether id names a catalogue entry.
func IsKnownTemplate(id string) bool {
	for _, t := range templates {
		if t.ID == id {
			return true
		}
	}
	return false
}

// NormalizeTemplateID falls back to DefaultTemplateID for unknown ids.
func NormalizeTemplateID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if IsKnownTemplate(id) {
		return id
	}
	return DefaultTemplateID
}

// Style returns the style block for templateID.
func Style(templateID string) string {
	raw, err := styleFS.ReadFile("text/styles/" + NormalizeTemplateID(templateID) + ".txt")
	if err != nil {
		// Every catalogue entry ships a style file.
		panic("prompts: missing style for " + templateID)
	}
	return trimBlock(string(raw))
}
