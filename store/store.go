// Package store persists conversation turn history behind a pluggable SQL
// driver and records completed interactions with duplicate suppression.
package store

import "context"

// Store is the thin facade the rest of the system talks to.
type Store struct {
	driver Driver
}

func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate prepares the backing schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// CreateConversation creates a new conversation thread.
func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

// ListConversations lists conversations matching the given filter.
func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the first conversation matching the given filter.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	return s.driver.GetConversation(ctx, find)
}

// TouchConversation bumps a conversation's updated timestamp.
func (s *Store) TouchConversation(ctx context.Context, threadID string) error {
	return s.driver.TouchConversation(ctx, threadID)
}

// DeleteConversation deletes a conversation and its messages (cascade).
func (s *Store) DeleteConversation(ctx context.Context, threadID string) error {
	return s.driver.DeleteConversation(ctx, threadID)
}

// CreateTurnMessage appends a message to a conversation's history.
func (s *Store) CreateTurnMessage(ctx context.Context, create *CreateTurnMessage) (*TurnMessage, error) {
	return s.driver.CreateTurnMessage(ctx, create)
}

// ListTurnMessages returns a conversation's messages, oldest first.
func (s *Store) ListTurnMessages(ctx context.Context, find *FindTurnMessage) ([]*TurnMessage, error) {
	return s.driver.ListTurnMessages(ctx, find)
}

// DeleteTurnMessages deletes all messages for the given conversation.
func (s *Store) DeleteTurnMessages(ctx context.Context, conversationID int32) error {
	return s.driver.DeleteTurnMessages(ctx, conversationID)
}
