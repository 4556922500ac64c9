package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordAction(t *testing.T) {
	tests := []struct {
		text string
		want Action
	}{
		{"delete the gym", ActionDelete},
		{"Cancel my dentist appointment", ActionDelete},
		{"remove standup", ActionDelete},
		{"cancel and reschedule the gym", ActionDelete},
		{"move gym to 7pm", ActionUpdate},
		{"reschedule the review", ActionUpdate},
		{"change standup to 10", ActionUpdate},
		{"update the list of events", ActionUpdate},
		{"show my events", ActionList},
		{"what's on my calendar", ActionList},
		{"list", ActionList},
		{"schedule team standup tomorrow 9:30", ActionCreate},
		{"add an event named demo", ActionCreate},
		{"book lunch with Sam", ActionCreate},
		{"book a shower repair at 3pm", ActionCreate},
		{"listen to podcast at 9am", ActionCreate},
		{"", ActionCreate},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, KeywordAction(tt.text))
		})
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("delete")
	assert.True(t, ok)
	assert.Equal(t, ActionDelete, a)

	a, ok = ParseAction("none")
	assert.True(t, ok)
	assert.Equal(t, ActionUnknown, a)

	_, ok = ParseAction("dance")
	assert.False(t, ok)
}

func TestFallbackTitle(t *testing.T) {
	got := Fallback("add a meeting named PwC at 11 am today for 30 minutes", "test")
	assert.Equal(t, ActionCreate, got.Action)
	assert.Equal(t, "PwC", got.Title)
	assert.Equal(t, SourceKeyword, got.Source)

	got = Fallback("list my events", "test")
	assert.Empty(t, got.Title)
}

func TestHasKeyword(t *testing.T) {
	assert.True(t, HasKeyword("schedule gym"))
	assert.True(t, HasKeyword("please cancel it"))
	assert.False(t, HasKeyword("6pm"))
	assert.False(t, HasKeyword("tomorrow at 9"))
	assert.False(t, HasKeyword("the gym one"))
	assert.False(t, HasKeyword("showroom visit at 4pm"))
}
