package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(d decision) handler {
	return func(context.Context, *State) (decision, error) { return d, nil }
}

func TestGraphValidation(t *testing.T) {
	t.Run("edge to unknown node", func(t *testing.T) {
		_, err := newGraph("a",
			map[Node]handler{"a": noopHandler(decideAlways)},
			map[Node]map[decision]Node{"a": {decideAlways: "ghost"}},
			10,
		)
		assert.Error(t, err)
	})

	t.Run("unreachable node", func(t *testing.T) {
		_, err := newGraph("a",
			map[Node]handler{
				"a": noopHandler(decideAlways),
				"b": noopHandler(decideAlways),
			},
			map[Node]map[decision]Node{
				"a": {decideAlways: NodeEnd},
				"b": {decideAlways: NodeEnd},
			},
			10,
		)
		assert.Error(t, err)
	})

	t.Run("missing step bound", func(t *testing.T) {
		_, err := newGraph("a",
			map[Node]handler{"a": noopHandler(decideAlways)},
			map[Node]map[decision]Node{"a": {decideAlways: NodeEnd}},
			0,
		)
		assert.Error(t, err)
	})

	t.Run("node without outgoing edges", func(t *testing.T) {
		_, err := newGraph("a",
			map[Node]handler{"a": noopHandler(decideAlways), "b": noopHandler(decideAlways)},
			map[Node]map[decision]Node{"a": {decideAlways: "b"}},
			10,
		)
		assert.Error(t, err)
	})

	t.Run("valid cyclic graph", func(t *testing.T) {
		g, err := newGraph("a",
			map[Node]handler{
				"a": noopHandler(decideAlways),
				"b": noopHandler(decideAlways),
			},
			map[Node]map[decision]Node{
				"a": {decideAlways: "b"},
				"b": {decideAlways: NodeEnd, "loop": "a"},
			},
			10,
		)
		require.NoError(t, err)
		require.NotNil(t, g)
	})
}

func TestGraphStepBoundStopsRunawayCycle(t *testing.T) {
	g, err := newGraph("a",
		map[Node]handler{
			"a": noopHandler(decideAlways),
			"b": noopHandler("loop"),
		},
		map[Node]map[decision]Node{
			"a": {decideAlways: "b"},
			"b": {"loop": "a", decideAlways: NodeEnd},
		},
		6,
	)
	require.NoError(t, err)

	err = g.run(context.Background(), newState("t", nil))
	assert.Error(t, err, "a cycle that never yields must hit the step bound")
}

func TestGraphUnknownDecisionIsError(t *testing.T) {
	g, err := newGraph("a",
		map[Node]handler{"a": noopHandler("mystery")},
		map[Node]map[decision]Node{"a": {decideAlways: NodeEnd}},
		5,
	)
	require.NoError(t, err)
	assert.Error(t, g.run(context.Background(), newState("t", nil)))
}
