package intent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	// ErrNoJSON is returned when a reply holds no JSON object at all.
	ErrNoJSON = errors.New("no JSON object in reply")
	// ErrMissingAction is returned when the decoded reply has no usable action.
	ErrMissingAction = errors.New("reply has no action")
)

var fenceRe = regexp.MustCompile("```(?:json|JSON)?")

// ExtractJSONObject returns the first balanced {...} block in a model reply,
// tolerating code fences and surrounding prose. A block that is not valid JSON
// (or is cut off) is passed through jsonrepair before giving up.
func ExtractJSONObject(reply string) (string, error) {
	text := fenceRe.ReplaceAllString(reply, "")

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}

	candidate := text[start:]
	if end := matchingBrace(text, start); end >= 0 {
		candidate = text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", ErrNoJSON
	}
	repaired = strings.TrimSpace(repaired)
	if !strings.HasPrefix(repaired, "{") || !json.Valid([]byte(repaired)) {
		return "", ErrNoJSON
	}
	return repaired, nil
}

// matchingBrace finds the brace closing the one at start, skipping braces inside
// string literals. Returns -1 if the object is never closed.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
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
				return i
			}
		}
	}
	return -1
}
