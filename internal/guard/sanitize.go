package guard

import (
	"regexp"
	"strings"
)

// ReservedTags are the structural delimiters used in prompts plus generic role tags.
var ReservedTags = []string{
	"user_input",
	"existing_resume",
	"job_posting",
	"resume_update",
	"system",
	"prompt",
	"instructions",
	"assistant",
}

// SanitizeResult carries the escaped text and how many tag occurrences were escaped.
type SanitizeResult struct {
	Escaped      string
	MatchesFound int
}

// Sanitizer escapes opening, closing and self-closing occurrences of a fixed tag set.
type Sanitizer struct {
	pattern *regexp.Regexp
}

var angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// NewSanitizer builds a sanitizer for tags. Matching is case-insensitive.
func NewSanitizer(tags []string) *Sanitizer {
	quoted := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return &Sanitizer{}
	}
	return &Sanitizer{
		pattern: regexp.MustCompile(`(?i)</?(` + strings.Join(quoted, "|") + `)\s*/?>`),
	}
}

// Sanitize escapes the angle brackets of each reserved tag occurrence and leaves
// everything else untouched.
func (s *Sanitizer) Sanitize(text string) SanitizeResult {
	if s == nil || s.pattern == nil {
		return SanitizeResult{Escaped: text}
	}
	matches := 0
	escaped := s.pattern.ReplaceAllStringFunc(text, func(m string) string {
		matches++
		return angleEscaper.Replace(m)
	})
	return SanitizeResult{Escaped: escaped, MatchesFound: matches}
}

var defaultSanitizer = NewSanitizer(ReservedTags)

// Sanitize escapes ReservedTags in text.
func Sanitize(text string) SanitizeResult {
	return defaultSanitizer.Sanitize(text)
}
