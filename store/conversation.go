package store

// Conversation groups the persisted turns sharing one thread id.
type Conversation struct {
	ID        int32
	ThreadID  string
	CreatedTs int64
	UpdatedTs int64
}

// TurnMessage is one persisted entry of a conversation's turn history.
// ToolName is non-empty when the entry carried a routing directive; the
// directive payload equals the content.
type TurnMessage struct {
	ID             int32
	ConversationID int32
	Role           string
	Content        string
	ToolName       string
	CreatedTs      int64
}

// FindConversation filters for ListConversations.
type FindConversation struct {
	ID       *int32
	ThreadID *string
}

// FindTurnMessage filters for ListTurnMessages.
type FindTurnMessage struct {
	ConversationID int32
}

// CreateTurnMessage is the payload for CreateTurnMessage.
type CreateTurnMessage struct {
	ConversationID int32
	Role           string
	Content        string
	ToolName       string
}
