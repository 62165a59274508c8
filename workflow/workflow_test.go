package workflow

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	mu            sync.Mutex
	generateFn    func(question, docs string) (string, error)
	gradeFn       func(question, docs string) (bool, error)
	rewriteFn     func(question string) (string, error)
	generateCalls int
	gradeCalls    int
	rewriteCalls  int
}

func (o *stubOracle) Generate(_ context.Context, question, docs string) (string, error) {
	o.mu.Lock()
	o.generateCalls++
	o.mu.Unlock()
	if o.generateFn != nil {
		return o.generateFn(question, docs)
	}
	return "The answer to " + question, nil
}

func (o *stubOracle) Grade(_ context.Context, question, docs string) (bool, error) {
	o.mu.Lock()
	o.gradeCalls++
	o.mu.Unlock()
	if o.gradeFn != nil {
		return o.gradeFn(question, docs)
	}
	return true, nil
}

func (o *stubOracle) Rewrite(_ context.Context, question string) (string, error) {
	o.mu.Lock()
	o.rewriteCalls++
	o.mu.Unlock()
	if o.rewriteFn != nil {
		return o.rewriteFn(question)
	}
	return "rewritten: " + question, nil
}

type stubTools struct {
	mu            sync.Mutex
	retrieveFn    func(query string) (string, error)
	searchFn      func(query string) (string, error)
	retrieveCalls int
	searchCalls   int
	retrieveSeen  []string
}

func (t *stubTools) Retrieve(_ context.Context, query string) (string, error) {
	t.mu.Lock()
	t.retrieveCalls++
	t.retrieveSeen = append(t.retrieveSeen, query)
	t.mu.Unlock()
	if t.retrieveFn != nil {
		return t.retrieveFn(query)
	}
	return "", nil
}

func (t *stubTools) Search(_ context.Context, query string) (string, error) {
	t.mu.Lock()
	t.searchCalls++
	t.mu.Unlock()
	if t.searchFn != nil {
		return t.searchFn(query)
	}
	return "", nil
}

const productBlock = "Title: iPhone 15\nPrice: 79,900\nRating: 4.6\nReview:\nGreat phone, camera is excellent."

func newTestWorkflow(t *testing.T, oracle *stubOracle, tools *stubTools, opts ...Option) *Workflow {
	t.Helper()
	w, err := New(Config{CallTimeout: time.Second}, oracle, tools, opts...)
	require.NoError(t, err)
	return w
}

func TestDirectAnswerSkipsRetriever(t *testing.T) {
	oracle := &stubOracle{
		generateFn: func(question, docs string) (string, error) {
			assert.Empty(t, docs)
			return "Why did the gopher cross the road?", nil
		},
	}
	tools := &stubTools{}
	w := newTestWorkflow(t, oracle, tools)

	answer, err := w.Run(context.Background(), "Tell me a joke", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Why did the gopher cross the road?", answer)
	assert.Zero(t, tools.retrieveCalls)
	assert.Zero(t, tools.searchCalls)
	assert.Equal(t, 1, oracle.generateCalls)
}

func TestTriggerKeywordRoutesToRetriever(t *testing.T) {
	oracle := &stubOracle{
		generateFn: func(question, docs string) (string, error) {
			assert.Contains(t, docs, "Price:")
			return "The iPhone 15 costs 79,900.", nil
		},
	}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return productBlock, nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	answer, err := w.Run(context.Background(), "What is the price of iPhone 15?", "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.LessOrEqual(t, len(answer), 250)
	assert.Equal(t, 1, tools.retrieveCalls)
	assert.Zero(t, tools.searchCalls, "on-domain retrieval must not hit the web")
	// the Price keyword short-circuits grading before any model call
	assert.Zero(t, oracle.gradeCalls)
}

func TestEmptyRetrievalFallsBackToWebSearch(t *testing.T) {
	oracle := &stubOracle{}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return "", nil },
		searchFn:   func(string) (string, error) { return "web result: the price is 79,900", nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	answer, err := w.Run(context.Background(), "What is the price of iPhone 15?", "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Equal(t, 1, tools.retrieveCalls)
	assert.Equal(t, 1, tools.searchCalls)
}

func TestSentinelRetrievalFallsBackToWebSearch(t *testing.T) {
	oracle := &stubOracle{}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return "No exact result found", nil },
		searchFn:   func(string) (string, error) { return "web says the cost is 79,900", nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	_, err := w.Run(context.Background(), "What is the price of iPhone 15?", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, tools.searchCalls)
}

func TestRewriteCycleIsBounded(t *testing.T) {
	oracle := &stubOracle{
		gradeFn: func(string, string) (bool, error) { return false, nil },
	}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return "nothing useful here", nil },
		searchFn:   func(string) (string, error) { return "still nothing useful", nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	answer, err := w.Run(context.Background(), "Any reviews for this?", "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, answer, "budget exhaustion must still produce an answer")
	assert.Equal(t, DefaultConfig().MaxRewrites, oracle.rewriteCalls)
	assert.Equal(t, DefaultConfig().MaxRewrites+1, tools.retrieveCalls)
	assert.Equal(t, 1, oracle.generateCalls)
}

func TestRewriterFeedsReformulatedQueryBack(t *testing.T) {
	oracle := &stubOracle{
		gradeFn:   func(string, string) (bool, error) { return false, nil },
		rewriteFn: func(string) (string, error) { return "iPhone 15 128GB price India", nil },
	}
	calls := 0
	tools := &stubTools{
		retrieveFn: func(query string) (string, error) {
			calls++
			if calls == 1 {
				return "irrelevant text", nil
			}
			return productBlock, nil
		},
		searchFn: func(string) (string, error) { return "irrelevant too", nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	_, err := w.Run(context.Background(), "How much is the new phone to buy?", "t1")
	require.NoError(t, err)
	require.Len(t, tools.retrieveSeen, 2)
	assert.Equal(t, "How much is the new phone to buy?", tools.retrieveSeen[0])
	assert.Equal(t, "iPhone 15 128GB price India", tools.retrieveSeen[1])
	assert.Equal(t, 1, oracle.rewriteCalls)
}

func TestGenerationFailureYieldsApology(t *testing.T) {
	oracle := &stubOracle{
		generateFn: func(string, string) (string, error) {
			return "", errors.New("provider unavailable")
		},
	}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return productBlock, nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	answer, err := w.Run(context.Background(), "What is the price of iPhone 15?", "t1")
	require.NoError(t, err)
	assert.Equal(t, apologyText, answer)
}

func TestDirectAnswerFailureYieldsApology(t *testing.T) {
	oracle := &stubOracle{
		generateFn: func(string, string) (string, error) {
			return "", errors.New("provider unavailable")
		},
	}
	w := newTestWorkflow(t, oracle, &stubTools{})

	answer, err := w.Run(context.Background(), "Tell me a joke", "t1")
	require.NoError(t, err)
	assert.Equal(t, apologyText, answer)
}

func TestAnswerIsCleanedAndBudgetBounded(t *testing.T) {
	raw := "* **Answer:**\n" + strings.Repeat("verylongword ", 60) + "`done`"
	oracle := &stubOracle{
		generateFn: func(string, string) (string, error) { return raw, nil },
	}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return productBlock, nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	answer, err := w.Run(context.Background(), "What is the price of iPhone 15?", "t1")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(answer), 250)
	assert.NotContains(t, answer, "*")
	assert.NotContains(t, answer, "`")
	assert.NotContains(t, answer, "\n")
	assert.True(t, strings.HasSuffix(answer, "..."))
}

func TestCheckpointKeepsHistoryAcrossTurns(t *testing.T) {
	oracle := &stubOracle{}
	cp := NewMemoryCheckpointer()
	w := newTestWorkflow(t, oracle, &stubTools{}, WithCheckpointer(cp))

	_, err := w.Run(context.Background(), "Tell me a joke", "thread-a")
	require.NoError(t, err)
	_, err = w.Run(context.Background(), "Another one please", "thread-a")
	require.NoError(t, err)

	history, err := cp.Load(context.Background(), "thread-a")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "Tell me a joke", history[0].Content)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "Another one please", history[2].Content)

	other, err := cp.Load(context.Background(), "thread-b")
	require.NoError(t, err)
	assert.Empty(t, other, "threads are independent")
}

func TestQuestionOfRecordStableWithinTurn(t *testing.T) {
	var gradedQuestion string
	oracle := &stubOracle{
		gradeFn: func(question, _ string) (bool, error) {
			gradedQuestion = question
			return true, nil
		},
		generateFn: func(question, _ string) (string, error) { return "answer about " + question, nil },
	}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return "some text without keywords", nil },
		searchFn:   func(string) (string, error) { return "unrelated web text", nil },
	}
	w := newTestWorkflow(t, oracle, tools)

	_, err := w.Run(context.Background(), "What is the price of iPhone 15?", "t1")
	require.NoError(t, err)
	assert.Equal(t, "What is the price of iPhone 15?", gradedQuestion)
}

func TestTurnsOnSameThreadAreSerialized(t *testing.T) {
	var inFlight, overlapped atomic.Int32
	oracle := &stubOracle{
		generateFn: func(question, docs string) (string, error) {
			if inFlight.Add(1) > 1 {
				overlapped.Store(1)
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return "ok", nil
		},
	}
	w := newTestWorkflow(t, oracle, &stubTools{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Run(context.Background(), "Tell me a joke", "same-thread")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Zero(t, overlapped.Load(), "turns sharing a thread id must not interleave")
}

func TestEmptyQueryRejected(t *testing.T) {
	w := newTestWorkflow(t, &stubOracle{}, &stubTools{})
	_, err := w.Run(context.Background(), "   ", "t1")
	assert.Error(t, err)
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	_, err := New(Config{}, nil, &stubTools{})
	assert.Error(t, err)
	_, err = New(Config{}, &stubOracle{}, nil)
	assert.Error(t, err)
	_, err = New(Config{MaxRewrites: -1}, &stubOracle{}, &stubTools{})
	assert.Error(t, err)
}

type recorderSpy struct {
	mu   sync.Mutex
	seen []Interaction
}

func (r *recorderSpy) SaveInteraction(_ context.Context, in Interaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, in)
	return true, nil
}

func TestCompletedTurnIsRecorded(t *testing.T) {
	oracle := &stubOracle{}
	tools := &stubTools{
		retrieveFn: func(string) (string, error) { return productBlock, nil },
	}
	rec := &recorderSpy{}
	w := newTestWorkflow(t, oracle, tools, WithRecorder(rec))

	answer, err := w.Run(context.Background(), "What is the price of iPhone 15?", "t9")
	require.NoError(t, err)
	require.Len(t, rec.seen, 1)
	assert.Equal(t, "What is the price of iPhone 15?", rec.seen[0].Question)
	assert.Equal(t, productBlock, rec.seen[0].RetrievedContext)
	assert.Equal(t, answer, rec.seen[0].FinalAnswer)
	assert.Equal(t, "t9", rec.seen[0].ThreadID)
}
