package structure

import (
	"fmt"
	"time"
)

// ClassificationPolicy is the rule set every structurer is asked to follow.
// The MCP server publishes it as a resource.
const ClassificationPolicy = `Categories:
- "reminder": the note names a concrete time or deadline, explicitly asks to be reminded, or mentions a future check or review.
- "task": something actionable with no deadline.
- "idea": creative or conceptual content.
- "note": anything else.

Dates:
- Resolve relative phrases ("tomorrow", "next Monday", "in two days") against the current time given below.
- A day mentioned without a time of day resolves to 09:00 local time.
- Vague references ("later", "soon", "check on X") resolve to tomorrow at 09:00 local time.
- Use null when nothing in the note implies a date.

reminderNeeded is true when the user asks to be reminded or the note carries a deadline.`

// SystemPrompt renders the instructions sent ahead of the transcript.
func SystemPrompt(now time.Time) string {
	return fmt.Sprintf(`You organize short voice notes into structured memories.
Read the user's note and answer with a single JSON object with these fields:
- "summary": one short sentence.
- "category": one of "task", "reminder", "idea", "note".
- "date": local date-time as "YYYY-MM-DDTHH:MM:SS", or null.
- "reminderNeeded": boolean.

%s

Current local time: %s (%s, %s).
Return only the JSON object, without markdown.`,
		ClassificationPolicy,
		now.Format("2006-01-02T15:04:05"), now.Weekday(), now.Location())
}
