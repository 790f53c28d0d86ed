package openai

import (
	"testing"

	"resumegen-api/internal/llm"
)

func TestPromptHashDeterministic(t *testing.T) {
	req := llm.Request{
		System:   "persona",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "resume text"}},
	}
	hash1 := promptHash(req)
	hash2 := promptHash(req)
	if hash1 != hash2 {
		t.Fatalf("expected deterministic prompt hash, got %q and %q", hash1, hash2)
	}

	alt := llm.Request{
		System:   "persona",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "different text"}},
	}
	if hash1 == promptHash(alt) {
		t.Fatalf("expected prompt hash to change when input changes")
	}
}
