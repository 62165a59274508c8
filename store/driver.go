package store

import (
	"context"
	"database/sql"
)

// Driver is the storage backend behind the Store facade. SQL drivers live
// under store/db; an in-memory driver backs tests and DSN-less deployments.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the conversation tables when they do not exist.
	Migrate(ctx context.Context) error

	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error)
	// TouchConversation bumps the conversation's updated timestamp.
	TouchConversation(ctx context.Context, threadID string) error
	DeleteConversation(ctx context.Context, threadID string) error

	CreateTurnMessage(ctx context.Context, create *CreateTurnMessage) (*TurnMessage, error)
	ListTurnMessages(ctx context.Context, find *FindTurnMessage) ([]*TurnMessage, error)
	DeleteTurnMessages(ctx context.Context, conversationID int32) error
}
