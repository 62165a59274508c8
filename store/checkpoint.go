package store

import (
	"context"

	"github.com/prodassist/prodassist/workflow"
)

// Checkpointer persists workflow turn history through the conversation
// store, so multi-turn conversations survive process restarts. It satisfies
// the orchestrator's checkpoint boundary.
type Checkpointer struct {
	store *Store
}

func NewCheckpointer(s *Store) *Checkpointer {
	return &Checkpointer{store: s}
}

// Load returns the full persisted history for a thread, oldest first. An
// unknown thread yields an empty history, not an error.
func (c *Checkpointer) Load(ctx context.Context, threadID string) ([]workflow.Message, error) {
	conv, err := c.store.GetConversation(ctx, &FindConversation{ThreadID: &threadID})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}
	msgs, err := c.store.ListTurnMessages(ctx, &FindTurnMessage{ConversationID: conv.ID})
	if err != nil {
		return nil, err
	}
	out := make([]workflow.Message, 0, len(msgs))
	for _, m := range msgs {
		wm := workflow.Message{Role: workflow.Role(m.Role), Content: m.Content}
		if m.ToolName != "" {
			wm.Directive = &workflow.Directive{Tool: m.ToolName, Query: m.Content}
		}
		out = append(out, wm)
	}
	return out, nil
}

// Save appends the messages the turn added on top of what is already
// persisted. The conversation row is created on first use.
func (c *Checkpointer) Save(ctx context.Context, threadID string, history []workflow.Message) error {
	conv, err := c.store.GetConversation(ctx, &FindConversation{ThreadID: &threadID})
	if err != nil {
		return err
	}
	if conv == nil {
		conv, err = c.store.CreateConversation(ctx, &Conversation{ThreadID: threadID})
		if err != nil {
			return err
		}
	}

	existing, err := c.store.ListTurnMessages(ctx, &FindTurnMessage{ConversationID: conv.ID})
	if err != nil {
		return err
	}
	for _, m := range history[min(len(existing), len(history)):] {
		create := &CreateTurnMessage{
			ConversationID: conv.ID,
			Role:           string(m.Role),
			Content:        m.Content,
		}
		if m.Directive != nil {
			create.ToolName = m.Directive.Tool
		}
		if _, err := c.store.CreateTurnMessage(ctx, create); err != nil {
			return err
		}
	}
	return c.store.TouchConversation(ctx, threadID)
}
