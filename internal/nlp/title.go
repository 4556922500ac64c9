package nlp

import (
	"regexp"
	"strings"
)

// DefaultTitle is returned when nothing usable is left of the message.
const DefaultTitle = "Event"

var (
	doubleQuoteRe = regexp.MustCompile(`["“]([^"”]+)["”]`)
	singleQuoteRe = regexp.MustCompile(`(?:^|\s)'([^']+)'`)
	namedRe       = regexp.MustCompile(`(?i)\b(?:named|called|titled)\s+(.+?)(?:\s+(?:at|on|from|to|for|by|tomorrow|tommorow|tmrw|tmr|today|tonight|this|next|morning|afternoon|evening|noon|midnight|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b|\s+\d|[,.!?]|$)`)
	cutoffRe      = regexp.MustCompile(`(?i)\b(?:at|on|from|to|for|by|tomorrow|tommorow|tommorrow|tomorow|tmrw|tmr|today|tonight|this|next|morning|afternoon|evening|noon|midnight|monday|tuesday|wednesday|thursday|friday|saturday|sunday|am|pm|\d\w*)\b.*$`)
	markerRe      = regexp.MustCompile(`(?i)\b(?:named|called|titled)\b`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// leadingNoise is stripped only while it precedes the first meaningful word,
// so "coffee meeting" keeps its noun while "add a meeting ..." drops it.
var leadingNoise = map[string]bool{
	"please": true, "can": true, "could": true, "would": true, "you": true, "i": true,
	"want": true, "need": true, "to": true, "lets": true, "let's": true, "hey": true,
	"add": true, "create": true, "schedule": true, "book": true, "set": true, "setup": true,
	"up": true, "make": true, "put": true, "plan": true, "new": true,
	"delete": true, "remove": true, "cancel": true,
	"update": true, "move": true, "change": true, "reschedule": true, "shift": true,
	"a": true, "an": true, "the": true, "my": true,
	"meeting": true, "event": true, "appointment": true,
	"named": true, "called": true, "titled": true,
}

// ExtractTitle pulls the event name out of a chat message. It never returns "".
func ExtractTitle(text string) string {
	if title, ok := ExplicitTitle(text); ok {
		return title
	}

	words := strings.Fields(text)
	i := 0
	for i < len(words) && leadingNoise[strings.ToLower(strings.Trim(words[i], ",.!?"))] {
		i++
	}
	residual := strings.Join(words[i:], " ")
	residual = markerRe.ReplaceAllString(residual, " ")
	residual = cutoffRe.ReplaceAllString(residual, "")

	if title := cleanTitle(residual); title != "" {
		return title
	}
	return DefaultTitle
}

// ExplicitTitle returns a title the user marked as such, either quoted or
// introduced by "named", "called" or "titled".
func ExplicitTitle(text string) (string, bool) {
	if m := doubleQuoteRe.FindStringSubmatch(text); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title, true
		}
	}
	if m := singleQuoteRe.FindStringSubmatch(text); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title, true
		}
	}
	if m := namedRe.FindStringSubmatch(text); m != nil {
		if title := cleanTitle(m[1]); title != "" {
			return title, true
		}
	}
	return "", false
}

func cleanTitle(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.Trim(s, " \"'“”,.!?:;-")
}
