package intent

import (
	"bytes"
	"fmt"
	"time"

	"github.com/omriShneor/calpal/internal/conversation"
)

// SystemPrompt is sent as the system message by completers that support one.
const SystemPrompt = "You are a JSON-only calendar parser. Return only valid JSON, no explanations."

const instructions = `You are a calendar intent parser. Extract the ACTION and the event TITLE, plus any date and time you are sure about.

ACTIONS:
- create: add, schedule, book, create, set up
- update: move, change, reschedule, update
- delete: delete, remove, cancel
- list: list, show, display
- unknown: the message is not about the calendar

TITLE RULES:
1. Extract ONLY the event name
2. Text in quotes → use that
3. "named X" or "called X" → use X
4. Ignore: time, dates, action words
5. For delete/update: just the event name to search
6. If the user is answering a follow-up question, keep the title of the pending request

SLOTS (omit any you are not sure about):
- date: "today", "tomorrow", a weekday name, or YYYY-MM-DD
- time: HH:MM in 24-hour form
- new_date / new_time: for update only, the target date/time
- duration_minutes: integer

Examples:
"add meeting named PWC tomorrow at 10am" → {"action":"create","title":"PWC","date":"tomorrow","time":"10:00"}
"schedule team standup at 9:30" → {"action":"create","title":"team standup","time":"09:30"}
"delete pwc meeting" → {"action":"delete","title":"pwc"}
"move gym to 7pm" → {"action":"update","title":"gym","new_time":"19:00"}
"list events" → {"action":"list","title":null}

Respond ONLY with JSON:
{"action":"...","title":"..."}`

// BuildPrompt renders the classification prompt for text, with the most recent
// conversation turns and any pending request as context.
func BuildPrompt(text string, turns []conversation.Turn, pending *conversation.Pending, now time.Time) string {
	var prompt bytes.Buffer

	prompt.WriteString(instructions)

	if len(turns) > 0 {
		prompt.WriteString("\n\n## Recent conversation\n\n")
		for _, t := range turns {
			speaker := "assistant"
			if t.IsUser {
				speaker = "user"
			}
			prompt.WriteString(fmt.Sprintf("%s: %s\n", speaker, t.Text))
		}
	}

	if pending != nil {
		prompt.WriteString("\n## Pending request (waiting for the user's answer)\n\n")
		prompt.WriteString(fmt.Sprintf("action=%s title=%q date=%q time=%q missing=%v\n",
			pending.Action, pending.Title, pending.Date, pending.Time, pending.Missing))
	}

	prompt.WriteString(fmt.Sprintf("\nCurrent time: %s\n", now.Format("2006-01-02 15:04 (Monday)")))
	prompt.WriteString(fmt.Sprintf("\nUser message: %q\n", text))

	return prompt.String()
}
