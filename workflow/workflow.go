// Package workflow implements the conversation orchestrator: a fixed,
// conditionally-routed graph that classifies a user question, retrieves
// product context with a web-search fallback, grades its relevance, rewrites
// weak queries a bounded number of times, and always terminates the turn
// with a single well-formed answer.
package workflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultThreadID groups turns that arrive without an explicit thread.
const DefaultThreadID = "default"

// apologyText is the fixed terminal message emitted when answer generation
// fails; provider error detail is never surfaced to the user.
const apologyText = "Sorry - I couldn't generate an answer right now."

// Oracle is the narrow interface over the model-backed decision points.
// Implementations decide which provider answers; the orchestration logic and
// its tests are independent of that choice.
type Oracle interface {
	// Generate produces the final answer for a question given retrieved
	// context (which may be empty for directly-answered questions).
	Generate(ctx context.Context, question, docs string) (string, error)
	// Grade reports whether docs are sufficient to answer question.
	Grade(ctx context.Context, question, docs string) (bool, error)
	// Rewrite reformulates the question into a clearer search query.
	Rewrite(ctx context.Context, question string) (string, error)
}

// ToolInvoker exposes the two retrieval capabilities to the orchestrator.
// Both calls report provider failures as errors; the orchestrator recovers
// locally and never lets them escape the turn.
type ToolInvoker interface {
	Retrieve(ctx context.Context, query string) (string, error)
	Search(ctx context.Context, query string) (string, error)
}

// Checkpointer persists per-thread turn history between Run invocations.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) ([]Message, error)
	Save(ctx context.Context, threadID string, history []Message) error
}

// Interaction is one completed turn handed to the interaction recorder.
type Interaction struct {
	Question         string
	RetrievedContext string
	FinalAnswer      string
	ThreadID         string
}

// InteractionRecorder persists completed turns. Recording is best effort:
// a false return means the write was skipped (duplicate or disabled store).
type InteractionRecorder interface {
	SaveInteraction(ctx context.Context, in Interaction) (bool, error)
}

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	// TriggerKeywords route a question to retrieval when any of them occurs
	// in the question (case-insensitive substring match).
	TriggerKeywords []string
	// RelevanceKeywords mark retrieved context as on-domain; they gate the
	// web-search fallback and short-circuit grading to sufficient.
	RelevanceKeywords []string
	// MaxRewrites caps rewrite cycles per turn. Once exhausted the graph is
	// forced to the generator with whatever context is available.
	MaxRewrites int
	// AnswerMaxChars bounds the cleaned final answer.
	AnswerMaxChars int
	// RewriteMaxChars bounds the cleaned rewritten query.
	RewriteMaxChars int
	// CallTimeout bounds each external call (model, tools, persistence).
	CallTimeout time.Duration
}

// DefaultConfig mirrors the assistant's stock keyword lists and budgets.
func DefaultConfig() Config {
	return Config{
		TriggerKeywords: []string{"price", "review", "product"},
		RelevanceKeywords: []string{
			"price", "product", "model", "details",
			"specification", "features", "buy", "cost",
		},
		MaxRewrites:     2,
		AnswerMaxChars:  250,
		RewriteMaxChars: 200,
		CallTimeout:     30 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if len(c.TriggerKeywords) == 0 {
		c.TriggerKeywords = def.TriggerKeywords
	}
	if len(c.RelevanceKeywords) == 0 {
		c.RelevanceKeywords = def.RelevanceKeywords
	}
	if c.MaxRewrites == 0 {
		c.MaxRewrites = def.MaxRewrites
	}
	if c.AnswerMaxChars == 0 {
		c.AnswerMaxChars = def.AnswerMaxChars
	}
	if c.RewriteMaxChars == 0 {
		c.RewriteMaxChars = def.RewriteMaxChars
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = def.CallTimeout
	}
}

// Workflow drives the Assistant/Retriever/Generator/Rewriter graph. It holds
// no mutable state shared across turns beyond the per-thread checkpoint data
// and the per-thread locks that serialize turns on the same thread id.
type Workflow struct {
	cfg         Config
	oracle      Oracle
	tools       ToolInvoker
	checkpoints Checkpointer
	recorder    InteractionRecorder
	graph       *graph

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

// Option configures optional collaborators.
type Option func(*Workflow)

// WithCheckpointer replaces the default in-memory checkpoint store.
func WithCheckpointer(cp Checkpointer) Option {
	return func(w *Workflow) { w.checkpoints = cp }
}

// WithRecorder enables persistence of completed turns.
func WithRecorder(r InteractionRecorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

// New builds the workflow and validates the graph topology.
func New(cfg Config, oracle Oracle, tools ToolInvoker, opts ...Option) (*Workflow, error) {
	if oracle == nil {
		return nil, errors.New("workflow: oracle is required")
	}
	if tools == nil {
		return nil, errors.New("workflow: tool invoker is required")
	}
	cfg.applyDefaults()
	if cfg.MaxRewrites < 0 {
		return nil, errors.New("workflow: rewrite budget must not be negative")
	}

	w := &Workflow{
		cfg:         cfg,
		oracle:      oracle,
		tools:       tools,
		checkpoints: NewMemoryCheckpointer(),
		threads:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(w)
	}

	handlers := map[Node]handler{
		NodeAssistant: w.runAssistant,
		NodeRetriever: w.runRetriever,
		NodeGenerator: w.runGenerator,
		NodeRewriter:  w.runRewriter,
	}
	edges := map[Node]map[decision]Node{
		NodeAssistant: {decideRetrieve: NodeRetriever, decideAnswer: NodeEnd},
		NodeRetriever: {decideSufficient: NodeGenerator, decideInsufficient: NodeRewriter},
		NodeGenerator: {decideAlways: NodeEnd},
		NodeRewriter:  {decideAlways: NodeRetriever},
	}
	// Worst case: assistant, then one retriever+rewriter pair per budget
	// unit, a final retriever pass and the generator.
	maxSteps := 3 + 2*(cfg.MaxRewrites+1)
	g, err := newGraph(NodeAssistant, handlers, edges, maxSteps)
	if err != nil {
		return nil, err
	}
	w.graph = g
	return w, nil
}

// Run processes one conversation turn and returns the terminal answer. The
// returned string is always well-formed user-facing text, even when every
// external collaborator failed. Turns sharing a thread id are processed
// sequentially; different thread ids proceed independently.
func (w *Workflow) Run(ctx context.Context, query, threadID string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("workflow: empty query")
	}
	if threadID == "" {
		threadID = DefaultThreadID
	}

	lock := w.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	history, err := w.checkpoints.Load(ctx, threadID)
	if err != nil {
		slog.Warn("checkpoint load failed, starting fresh", "thread", threadID, "err", err)
		history = nil
	}
	st := newState(threadID, history)
	st.Append(Message{Role: RoleUser, Content: query})

	if err := w.graph.run(ctx, st); err != nil {
		// Engine invariants and context cancellation are the only failures
		// that reach here; node-level failures are recovered in place. The
		// caller still gets a terminal message.
		slog.Warn("graph run aborted", "thread", threadID, "err", err)
		return apologyText, err
	}

	answer := st.Latest().Content
	if err := w.checkpoints.Save(ctx, threadID, st.History()); err != nil {
		slog.Warn("checkpoint save failed", "thread", threadID, "err", err)
	}
	w.recordInteraction(ctx, st, answer)
	return answer, nil
}

func (w *Workflow) recordInteraction(ctx context.Context, st *State, answer string) {
	if w.recorder == nil {
		return
	}
	cctx, cancel := w.callContext(ctx)
	defer cancel()
	written, err := w.recorder.SaveInteraction(cctx, Interaction{
		Question:         st.Question(),
		RetrievedContext: st.retrievedContext,
		FinalAnswer:      answer,
		ThreadID:         st.ThreadID(),
	})
	if err != nil {
		slog.Warn("interaction save failed", "thread", st.ThreadID(), "err", err)
		return
	}
	if !written {
		slog.Info("[STORE]", "thread", st.ThreadID(), "skipped", true)
	}
}

func (w *Workflow) threadLock(threadID string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		w.threads[threadID] = lock
	}
	return lock
}

func (w *Workflow) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, w.cfg.CallTimeout)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
