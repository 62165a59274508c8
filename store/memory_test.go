package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDriverConversationLifecycle(t *testing.T) {
	s := New(NewMemoryDriver())
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, &Conversation{ThreadID: "t1"})
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.NotZero(t, conv.ID)
	assert.NotZero(t, conv.CreatedTs)

	threadID := "t1"
	got, err := s.GetConversation(ctx, &FindConversation{ThreadID: &threadID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conv.ID, got.ID)

	missing := "nope"
	got, err = s.GetConversation(ctx, &FindConversation{ThreadID: &missing})
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.DeleteConversation(ctx, "t1"))
	got, err = s.GetConversation(ctx, &FindConversation{ThreadID: &threadID})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryDriverMessagesKeepInsertOrder(t *testing.T) {
	s := New(NewMemoryDriver())
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, &Conversation{ThreadID: "t1"})
	require.NoError(t, err)

	for _, content := range []string{"first", "second", "third"} {
		_, err := s.CreateTurnMessage(ctx, &CreateTurnMessage{
			ConversationID: conv.ID,
			Role:           "user",
			Content:        content,
		})
		require.NoError(t, err)
	}

	msgs, err := s.ListTurnMessages(ctx, &FindTurnMessage{ConversationID: conv.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestMemoryDriverDeleteConversationDropsMessages(t *testing.T) {
	s := New(NewMemoryDriver())
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, &Conversation{ThreadID: "t1"})
	require.NoError(t, err)
	_, err = s.CreateTurnMessage(ctx, &CreateTurnMessage{ConversationID: conv.ID, Role: "user", Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, "t1"))

	msgs, err := s.ListTurnMessages(ctx, &FindTurnMessage{ConversationID: conv.ID})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMemoryDriverReturnsCopies(t *testing.T) {
	s := New(NewMemoryDriver())
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, &Conversation{ThreadID: "t1"})
	require.NoError(t, err)
	conv.ThreadID = "mutated"

	threadID := "t1"
	got, err := s.GetConversation(ctx, &FindConversation{ThreadID: &threadID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ThreadID)
}
