package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

// MemoryDriver keeps conversations in process memory. It backs tests and
// deployments that run without a database DSN; history then lives only as
// long as the process.
type MemoryDriver struct {
	mu            sync.RWMutex
	nextConvID    int32
	nextMsgID     int32
	conversations map[int32]*Conversation
	messages      map[int32][]*TurnMessage // keyed by conversation id
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		conversations: make(map[int32]*Conversation),
		messages:      make(map[int32][]*TurnMessage),
	}
}

func (d *MemoryDriver) GetDB() *sql.DB { return nil }
func (d *MemoryDriver) Close() error   { return nil }

func (d *MemoryDriver) Migrate(context.Context) error { return nil }

func (d *MemoryDriver) CreateConversation(_ context.Context, create *Conversation) (*Conversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextConvID++
	now := time.Now().Unix()
	conv := &Conversation{
		ID:        d.nextConvID,
		ThreadID:  create.ThreadID,
		CreatedTs: now,
		UpdatedTs: now,
	}
	d.conversations[conv.ID] = conv
	return copyConversation(conv), nil
}

func (d *MemoryDriver) ListConversations(_ context.Context, find *FindConversation) ([]*Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var list []*Conversation
	for _, conv := range d.conversations {
		if find.ID != nil && conv.ID != *find.ID {
			continue
		}
		if find.ThreadID != nil && conv.ThreadID != *find.ThreadID {
			continue
		}
		list = append(list, copyConversation(conv))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedTs > list[j].UpdatedTs })
	return list, nil
}

func (d *MemoryDriver) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := d.ListConversations(ctx, find)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (d *MemoryDriver) TouchConversation(_ context.Context, threadID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conv := range d.conversations {
		if conv.ThreadID == threadID {
			conv.UpdatedTs = time.Now().Unix()
		}
	}
	return nil
}

func (d *MemoryDriver) DeleteConversation(_ context.Context, threadID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, conv := range d.conversations {
		if conv.ThreadID == threadID {
			delete(d.conversations, id)
			delete(d.messages, id)
		}
	}
	return nil
}

func (d *MemoryDriver) CreateTurnMessage(_ context.Context, create *CreateTurnMessage) (*TurnMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextMsgID++
	m := &TurnMessage{
		ID:             d.nextMsgID,
		ConversationID: create.ConversationID,
		Role:           create.Role,
		Content:        create.Content,
		ToolName:       create.ToolName,
		CreatedTs:      time.Now().Unix(),
	}
	d.messages[create.ConversationID] = append(d.messages[create.ConversationID], m)
	return copyMessage(m), nil
}

func (d *MemoryDriver) ListTurnMessages(_ context.Context, find *FindTurnMessage) ([]*TurnMessage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	msgs := d.messages[find.ConversationID]
	out := make([]*TurnMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

func (d *MemoryDriver) DeleteTurnMessages(_ context.Context, conversationID int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.messages, conversationID)
	return nil
}

func copyConversation(c *Conversation) *Conversation {
	out := *c
	return &out
}

func copyMessage(m *TurnMessage) *TurnMessage {
	out := *m
	return &out
}
