package guard

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxChatMessageLength = 5000
	MaxJobPostingLength  = 15000
	MaxInputSourceLength = 30000
	MaxTitleLength       = 200
	MaxInputSources      = 5
)

const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeOffTopicRejected = "OFF_TOPIC_REJECTED"
)

// ValidationResult is the outcome of every guard check. Failures are values, never errors.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// InputSource is one piece of raw career text supplied by the user.
type InputSource struct {
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
	Content  string `json:"content"`
}

func ok() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{Code: CodeValidationFailed, Error: fmt.Sprintf(format, args...)}
}

// ValidateChatMessage rejects empty messages and messages over MaxChatMessageLength
// after trimming. Length is counted in runes.
func ValidateChatMessage(message string) ValidationResult {
	if message == "" {
		return invalid("Message is required")
	}
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return invalid("Message cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxChatMessageLength {
		return invalid("Message exceeds maximum length of %d characters", MaxChatMessageLength)
	}
	return ok()
}

// ValidateJobPosting only bounds length; an empty posting is allowed.
func ValidateJobPosting(jobPosting string) ValidationResult {
	if utf8.RuneCountInString(jobPosting) > MaxJobPostingLength {
		return invalid("Job posting exceeds maximum length of %d characters", MaxJobPostingLength)
	}
	return ok()
}

// ValidateInputSources bounds the number of sources and the size of each one.
// Sources are numbered from 1 in messages.
func ValidateInputSources(sources []InputSource) ValidationResult {
	if len(sources) > MaxInputSources {
		return invalid("Maximum of %d input sources allowed", MaxInputSources)
	}
	for i, src := range sources {
		if strings.TrimSpace(src.Content) == "" {
			return invalid("Input source %d has no content", i+1)
		}
		if utf8.RuneCountInString(src.Content) > MaxInputSourceLength {
			return invalid("Input source %d exceeds maximum length of %d characters", i+1, MaxInputSourceLength)
		}
	}
	return ok()
}

func ValidateTitle(title string) ValidationResult {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return invalid("Title exceeds maximum length of %d characters", MaxTitleLength)
	}
	return ok()
}
