package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// counselorInstructions is the fixed persona every generated comment runs
// under. The constraints are instructions to the model, not a parse contract:
// the reply is accepted as free text.
const counselorInstructions = `You are a warm, experienced mental-health counselor writing a short
comment on a user's diary entry.

Rules:
- Write 5 to 10 lines.
- Be warm and non-judgmental; never lecture or moralize.
- Reflect one concrete feeling or moment from the entry with empathy.
- Offer exactly one small, actionable suggestion.
- Use a formal but caring register. No emoji.
- If reference notes are included in the message, use them only as background
  knowledge. Never quote them, cite them, or mention that references exist.`

// Orchestrator turns one prompt into one buffered counselor reply. Each call
// opens a fresh conversation: unlike the user-facing chat surface, comment
// generation never reuses threads across jobs.
type Orchestrator struct {
	Client Client
	Log    *zap.Logger
}

// RunConversation creates a conversation, submits the prompt, and returns the
// model's full reply text. It fails on any transport or model error; callers
// treat an empty reply as their own error.
func (o *Orchestrator) RunConversation(ctx context.Context, prompt string) (string, error) {
	conversationID, err := o.Client.CreateConversation(ctx)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}

	reply, err := o.Client.StreamMessage(ctx, conversationID, counselorInstructions, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("stream reply: %w", err)
	}

	if o.Log != nil {
		o.Log.Debug("conversation finished",
			zap.String("conversation_id", conversationID),
			zap.Int("reply_len", len(reply)))
	}
	return strings.TrimSpace(reply), nil
}
