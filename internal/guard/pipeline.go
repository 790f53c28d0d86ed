package guard

import "strings"

// SanitizeAndValidateChatMessage validates, checks relevance, then sanitizes the
// trimmed message. On failure the original message comes back unchanged.
func SanitizeAndValidateChatMessage(message string) (string, ValidationResult) {
	if res := ValidateChatMessage(message); !res.Valid {
		return message, res
	}
	if res := CheckRelevance(message); !res.Valid {
		return message, res
	}
	return Sanitize(strings.TrimSpace(message)).Escaped, ok()
}

// SanitizeAndValidateJobPosting follows the chat pipeline with the job posting ceiling.
func SanitizeAndValidateJobPosting(jobPosting string) (string, ValidationResult) {
	if res := ValidateJobPosting(jobPosting); !res.Valid {
		return jobPosting, res
	}
	if res := CheckRelevance(jobPosting); !res.Valid {
		return jobPosting, res
	}
	return Sanitize(strings.TrimSpace(jobPosting)).Escaped, ok()
}

// SanitizeAndValidateInputSources checks relevance for every source before sanitizing
// any of them. The input slice is never modified.
func SanitizeAndValidateInputSources(sources []InputSource) ([]InputSource, ValidationResult) {
	if res := ValidateInputSources(sources); !res.Valid {
		return sources, res
	}
	for _, src := range sources {
		if res := CheckRelevance(src.Content); !res.Valid {
			return sources, res
		}
	}
	out := make([]InputSource, len(sources))
	for i, src := range sources {
		src.Content = Sanitize(src.Content).Escaped
		out[i] = src
	}
	return out, ok()
}
