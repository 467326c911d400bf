package mcpserver

import "github.com/starford/recall/internal/structure"

const policyURI = "recall://classification-policy"

// PolicyDocument describes how Recall classifies captured notes, so LLM
// clients can phrase captures the way the classifier expects.
const PolicyDocument = `# Recall Classification Policy

Every captured note becomes a memory with a summary, one category, an
optional date and a reminderNeeded flag.

## Rules

` + structure.ClassificationPolicy + `

## Invariants

1. A memory with a date always has reminderNeeded set.
2. Each memory has at most one reminder, created automatically when it is
   saved with reminderNeeded.
3. When classification is unavailable the memory is still saved as a
   "note" whose summary is the first 100 characters of the text.

## Tools

- ` + "`capture_note`" + ` saves text as a memory, exactly like a recording.
- ` + "`create_reminder`" + ` accepts dates as ` + "`2006-01-02`" + ` or ` + "`2006-01-02T15:04`" + ` in the user's timezone.
`
