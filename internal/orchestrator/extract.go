package orchestrator

import (
	"encoding/json"
	"errors"
	"strings"
)

// Strategy selects how ExtractJSON finds the object span in free text.
type Strategy int

const (
	// StrategyFirstBalanced walks braces from each '{' in turn, ignoring braces
	// inside JSON strings, and returns the first balanced span that parses. If
	// balanced spans exist but none parse the result is KindParse; with no
	// balanced span at all it falls back to StrategyGreedy.
	StrategyFirstBalanced Strategy = iota
	// StrategyGreedy takes everything from the first '{' to the last '}'.
	StrategyGreedy
)

var (
	errNoObject      = errors.New("no JSON object found in model reply")
	errInvalidObject = errors.New("model reply JSON is not valid")
)

// ExtractJSON returns the JSON object embedded in text.
// Failures are *Error with KindExtractionFailed or KindParse.
func ExtractJSON(text string, strategy Strategy) (json.RawMessage, error) {
	if strategy == StrategyGreedy {
		return extractGreedy(text)
	}
	return extractFirstBalanced(text)
}

func extractGreedy(text string) (json.RawMessage, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, newError(KindExtractionFailed, errNoObject)
	}
	span := text[start : end+1]
	if !json.Valid([]byte(span)) {
		return nil, newError(KindParse, errInvalidObject)
	}
	return json.RawMessage(span), nil
}

func extractFirstBalanced(text string) (json.RawMessage, error) {
	sawBalanced := false
	for offset := 0; offset < len(text); {
		rel := strings.IndexByte(text[offset:], '{')
		if rel < 0 {
			break
		}
		start := offset + rel
		end := balancedEnd(text, start)
		if end < 0 {
			offset = start + 1
			continue
		}
		span := text[start : end+1]
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
		sawBalanced = true
		offset = start + 1
	}
	if sawBalanced {
		return nil, newError(KindParse, errInvalidObject)
	}
	return extractGreedy(text)
}

// balancedEnd returns the index of the '}' closing the '{' at start, or -1.
func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ExtractTaggedBlock returns the text between the first <tag> and the first </tag>
// after it. Matching is exact and case-sensitive.
func ExtractTaggedBlock(text, tag string) (string, bool) {
	open := "<" + tag + ">"
	closing := "</" + tag + ">"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	body := text[start+len(open):]
	end := strings.Index(body, closing)
	if end < 0 {
		return "", false
	}
	return body[:end], true
}
