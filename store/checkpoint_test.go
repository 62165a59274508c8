package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodassist/prodassist/workflow"
)

func TestCheckpointerLoadUnknownThread(t *testing.T) {
	cp := NewCheckpointer(New(NewMemoryDriver()))

	history, err := cp.Load(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCheckpointerSaveCreatesConversationOnFirstUse(t *testing.T) {
	s := New(NewMemoryDriver())
	cp := NewCheckpointer(s)
	ctx := context.Background()

	err := cp.Save(ctx, "thread-1", []workflow.Message{
		{Role: workflow.RoleUser, Content: "what is the iphone 15 price"},
		{Role: workflow.RoleAssistant, Content: "around 79,900"},
	})
	require.NoError(t, err)

	threadID := "thread-1"
	conv, err := s.GetConversation(ctx, &FindConversation{ThreadID: &threadID})
	require.NoError(t, err)
	require.NotNil(t, conv)

	msgs, err := s.ListTurnMessages(ctx, &FindTurnMessage{ConversationID: conv.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, string(workflow.RoleUser), msgs[0].Role)
	assert.Equal(t, "what is the iphone 15 price", msgs[0].Content)
}

func TestCheckpointerSaveAppendsOnlyNewMessages(t *testing.T) {
	s := New(NewMemoryDriver())
	cp := NewCheckpointer(s)
	ctx := context.Background()

	turn1 := []workflow.Message{
		{Role: workflow.RoleUser, Content: "hello"},
		{Role: workflow.RoleAssistant, Content: "hi there"},
	}
	require.NoError(t, cp.Save(ctx, "t", turn1))

	turn2 := append(append([]workflow.Message{}, turn1...),
		workflow.Message{Role: workflow.RoleUser, Content: "and the price?"},
		workflow.Message{Role: workflow.RoleAssistant, Content: "79,900"},
	)
	require.NoError(t, cp.Save(ctx, "t", turn2))

	loaded, err := cp.Load(ctx, "t")
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	assert.Equal(t, "hello", loaded[0].Content)
	assert.Equal(t, "79,900", loaded[3].Content)
}

func TestCheckpointerRoundTripsDirectives(t *testing.T) {
	cp := NewCheckpointer(New(NewMemoryDriver()))
	ctx := context.Background()

	history := []workflow.Message{
		{Role: workflow.RoleUser, Content: "iphone 15 price"},
		{
			Role:      workflow.RoleTool,
			Content:   "iphone 15 price",
			Directive: &workflow.Directive{Tool: workflow.ToolRetriever, Query: "iphone 15 price"},
		},
	}
	require.NoError(t, cp.Save(ctx, "t", history))

	loaded, err := cp.Load(ctx, "t")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Nil(t, loaded[0].Directive)
	require.NotNil(t, loaded[1].Directive)
	assert.Equal(t, workflow.ToolRetriever, loaded[1].Directive.Tool)
	assert.Equal(t, "iphone 15 price", loaded[1].Directive.Query)
}

func TestCheckpointerThreadsAreIsolated(t *testing.T) {
	cp := NewCheckpointer(New(NewMemoryDriver()))
	ctx := context.Background()

	require.NoError(t, cp.Save(ctx, "a", []workflow.Message{{Role: workflow.RoleUser, Content: "from a"}}))
	require.NoError(t, cp.Save(ctx, "b", []workflow.Message{{Role: workflow.RoleUser, Content: "from b"}}))

	loadedA, err := cp.Load(ctx, "a")
	require.NoError(t, err)
	loadedB, err := cp.Load(ctx, "b")
	require.NoError(t, err)

	require.Len(t, loadedA, 1)
	require.Len(t, loadedB, 1)
	assert.Equal(t, "from a", loadedA[0].Content)
	assert.Equal(t, "from b", loadedB[0].Content)
}
