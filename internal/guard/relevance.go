package guard

import (
	"regexp"
	"strings"
)

// OffTopicMessage is returned for every relevance failure. It never names the matched pattern.
const OffTopicMessage = "Your message appears to be unrelated to resume creation. Please keep your requests focused on your resume."

// offTopicChecks run in order; injection phrasing first, then out-of-domain requests.
var offTopicChecks = []func(string) bool{
	pattern(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
	pattern(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
	pattern(`(?i)forget\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
	reassignsRole,
	pattern(`(?i)new\s+system\s+prompt`),
	pattern(`(?i)override\s+(system|instructions|prompt)`),
	pattern(`(?i)jailbreak`),
	pattern(`(?i)\bDAN\b.*\bmode\b`),

	pattern(`(?i)write\s+(?:me\s+)?(?:a\s+)?(?:poem|story|song|essay|code|script|malware|exploit)`),
	pattern(`(?i)(?:how|help)\s+(?:to|me)\s+(?:hack|exploit|attack|steal|scam|phish)`),
	pattern(`(?i)generate\s+(?:a\s+)?(?:fake|forged|fraudulent)\s+(?:id|passport|document|certificate)`),
}

func pattern(expr string) func(string) bool {
	return regexp.MustCompile(expr).MatchString
}

// roleReassignment matches "you are now a/an "; the role that follows is checked against allowedRoles.
var roleReassignment = regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:an|a)\s+`)

var allowedRoles = []string{"resume", "career", "professional"}

// CheckRelevance is a coarse heuristic; the persona prompt carries the real scope boundary.
// The first matching check wins.
func CheckRelevance(text string) ValidationResult {
	for _, offTopicCheck := range offTopicChecks {
		if offTopicCheck(text) {
			return offTopic()
		}
	}
	return ok()
}

func reassignsRole(text string) bool {
	for _, loc := range roleReassignment.FindAllStringIndex(text, -1) {
		rest := strings.ToLower(text[loc[1]:])
		allowed := false
		for _, role := range allowedRoles {
			if strings.HasPrefix(rest, role) {
				allowed = true
				break
			}
		}
		if !allowed {
			return true
		}
	}
	return false
}

func offTopic() ValidationResult {
	return ValidationResult{Code: CodeOffTopicRejected, Error: OffTopicMessage}
}
