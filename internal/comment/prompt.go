package comment

import (
	"fmt"
	"strings"
	"time"

	"kokoro/internal/knowledge"
)

// PromptInput carries everything the counselor prompt is built from.
type PromptInput struct {
	AuthorName   string
	Title        string
	JournalDate  time.Time
	EmotionLabel string
	MoodLabel    string
	EventSummary string
	Realization  string
	Body         string
	Knowledge    []knowledge.Match
}

// BuildPrompt renders the single user message submitted to the conversation.
// Optional sections are omitted when their field is empty. Retrieved
// knowledge goes last, marked internal-only: background for the model, never
// something to quote or cite back to the user.
func BuildPrompt(in PromptInput) string {
	author := strings.TrimSpace(in.AuthorName)
	if author == "" {
		author = "anonymous"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Diary author: %s\n", author)
	fmt.Fprintf(&b, "Journal date: %s\n", in.JournalDate.Format("2006-01-02"))

	if t := strings.TrimSpace(in.Title); t != "" {
		fmt.Fprintf(&b, "Title: %s\n", t)
	}
	if e := strings.TrimSpace(in.EmotionLabel); e != "" {
		fmt.Fprintf(&b, "Primary emotion: %s\n", e)
	}
	if m := strings.TrimSpace(in.MoodLabel); m != "" {
		fmt.Fprintf(&b, "Mood: %s\n", m)
	}
	if s := strings.TrimSpace(in.EventSummary); s != "" {
		fmt.Fprintf(&b, "What happened: %s\n", s)
	}
	if r := strings.TrimSpace(in.Realization); r != "" {
		fmt.Fprintf(&b, "Realization: %s\n", r)
	}

	b.WriteString("\nDiary entry:\n")
	b.WriteString(strings.TrimSpace(in.Body))
	b.WriteString("\n")

	if len(in.Knowledge) > 0 {
		b.WriteString("\n--- Reference notes (internal only) ---\n")
		b.WriteString("Use the notes below as background knowledge when writing your comment. ")
		b.WriteString("Never quote them verbatim, cite them, or tell the author that references were used.\n")
		for i, k := range in.Knowledge {
			title := strings.TrimSpace(k.Title)
			if title == "" {
				title = fmt.Sprintf("note %d", i+1)
			}
			fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, title, strings.TrimSpace(k.Content))
		}
	}

	return b.String()
}
