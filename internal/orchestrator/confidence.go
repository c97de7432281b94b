package orchestrator

import (
	"encoding/json"

	"agentdash/internal/models"
)

// ParseConfidence extracts a confidence assessment from free-form message
// text. The agent is asked to reply with a single JSON object carrying a
// "score" field, but replies often wrap it in prose, so every balanced
// {...} span in the text is tried in order and the first object containing a
// score wins.
func ParseConfidence(text string) (*models.ConfidenceAssessment, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end, ok := matchBrace(text, start)
		if !ok {
			continue
		}
		candidate := []byte(text[start : end+1])

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(candidate, &raw); err != nil {
			continue
		}
		if _, hasScore := raw["score"]; !hasScore {
			continue
		}

		var ca models.ConfidenceAssessment
		if err := json.Unmarshal(candidate, &ca); err != nil {
			continue
		}
		return &ca, true
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON string literals.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
