package workflow

import (
	"context"

	"github.com/pkg/errors"
)

// Node identifies a state in the conversation graph.
type Node string

const (
	NodeAssistant Node = "assistant"
	NodeRetriever Node = "retriever"
	NodeGenerator Node = "generator"
	NodeRewriter  Node = "rewriter"

	// NodeEnd is the terminal pseudo-node; it has no handler.
	NodeEnd Node = "end"
)

// decision is the label a node handler returns to select an outgoing edge.
type decision string

const (
	decideAlways       decision = "always"
	decideRetrieve     decision = "retrieve"
	decideAnswer       decision = "answer"
	decideSufficient   decision = "sufficient"
	decideInsufficient decision = "insufficient"
)

type handler func(ctx context.Context, st *State) (decision, error)

// graph is an explicit finite-state machine: node handlers plus a
// (node, decision) -> next node edge table. It is validated once at
// construction and never mutated afterwards.
type graph struct {
	entry    Node
	handlers map[Node]handler
	edges    map[Node]map[decision]Node

	// maxSteps bounds a single run independently of the per-node routing,
	// so a mis-wired cycle can never spin forever.
	maxSteps int
}

func newGraph(entry Node, handlers map[Node]handler, edges map[Node]map[decision]Node, maxSteps int) (*graph, error) {
	g := &graph{entry: entry, handlers: handlers, edges: edges, maxSteps: maxSteps}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *graph) validate() error {
	if g.maxSteps <= 0 {
		return errors.New("graph: step bound must be positive")
	}
	if _, ok := g.handlers[g.entry]; !ok {
		return errors.Errorf("graph: entry node %q has no handler", g.entry)
	}
	for node := range g.handlers {
		if len(g.edges[node]) == 0 {
			return errors.Errorf("graph: node %q has no outgoing edges", node)
		}
	}
	for node, outs := range g.edges {
		if _, ok := g.handlers[node]; !ok {
			return errors.Errorf("graph: edges declared for unknown node %q", node)
		}
		for d, next := range outs {
			if next == NodeEnd {
				continue
			}
			if _, ok := g.handlers[next]; !ok {
				return errors.Errorf("graph: edge %s[%s] targets unknown node %q", node, d, next)
			}
		}
	}

	// Every node must be reachable from the entry, and the end must be
	// reachable at all.
	seen := map[Node]bool{g.entry: true}
	queue := []Node{g.entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[cur] {
			if next == NodeEnd || seen[next] {
				seen[next] = true
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	for node := range g.handlers {
		if !seen[node] {
			return errors.Errorf("graph: node %q is unreachable from %q", node, g.entry)
		}
	}
	if !seen[NodeEnd] {
		return errors.New("graph: end is unreachable")
	}
	return nil
}

// run drives st through the graph from the entry node until NodeEnd.
func (g *graph) run(ctx context.Context, st *State) error {
	cur := g.entry
	for steps := 0; cur != NodeEnd; steps++ {
		if steps >= g.maxSteps {
			return errors.Errorf("graph: exceeded %d steps at node %q", g.maxSteps, cur)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := g.handlers[cur](ctx, st)
		if err != nil {
			return errors.Wrapf(err, "node %s", cur)
		}
		next, ok := g.edges[cur][d]
		if !ok {
			return errors.Errorf("graph: no edge from %q on decision %q", cur, d)
		}
		cur = next
	}
	return nil
}
