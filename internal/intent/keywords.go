package intent

import (
	"regexp"
)

// Action is the calendar operation a message asks for.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionList    Action = "list"
	ActionUnknown Action = "unknown"
)

// ParseAction maps a raw action string onto an Action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionCreate, ActionUpdate, ActionDelete, ActionList, ActionUnknown:
		return Action(s), true
	case "none":
		return ActionUnknown, true
	}
	return "", false
}

// Keyword sets are checked in this order. Delete and update anchor only the
// leading word boundary so inflections like "cancelled" or "moved" still match.
// List words are whole words; "shower" and "listen" are not requests to list.
var keywordSets = []struct {
	action Action
	re     *regexp.Regexp
}{
	{ActionDelete, regexp.MustCompile(`(?i)\b(delete|remove|cancel)`)},
	{ActionUpdate, regexp.MustCompile(`(?i)\b(update|move|change|reschedule)`)},
	{ActionList, regexp.MustCompile(`(?i)\b(list|show|events|calendar)\b`)},
}

// KeywordAction classifies text without a language model. Anything that matches
// no keyword set is treated as a create request.
func KeywordAction(text string) Action {
	for _, set := range keywordSets {
		if set.re.MatchString(text) {
			return set.action
		}
	}
	return ActionCreate
}

var createRe = regexp.MustCompile(`(?i)\b(add|create|schedule|book|set up|plan)\b`)

// HasKeyword reports whether text names an action explicitly. A bare answer such as
// "6pm" has none, which lets a pending request keep its action.
func HasKeyword(text string) bool {
	if createRe.MatchString(text) {
		return true
	}
	for _, set := range keywordSets {
		if set.re.MatchString(text) {
			return true
		}
	}
	return false
}
