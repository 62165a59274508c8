package store

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/prodassist/prodassist/plugin/vectorstore"
	"github.com/prodassist/prodassist/workflow"
)

// dedupTopK is how many similar stored interactions are compared against an
// incoming pair before writing.
const dedupTopK = 5

// InteractionStore records each completed turn in the vector store while
// suppressing exact repeats of the same (question, answer) pair. The
// check-then-write is not atomic: concurrent writers racing on an identical
// pair can both write, which is accepted for this analytics-oriented log.
type InteractionStore struct {
	vs *vectorstore.Store
}

// NewInteractionStore builds the recorder. A nil vector store puts it in
// no-op mode: saves report false without error, and callers must not treat
// that as fatal.
func NewInteractionStore(vs *vectorstore.Store) *InteractionStore {
	return &InteractionStore{vs: vs}
}

// Enabled reports whether saves can actually be written.
func (s *InteractionStore) Enabled() bool {
	return s.vs != nil
}

// SaveInteraction writes one completed turn unless an exact duplicate is
// already stored. Returns true when a record was written.
func (s *InteractionStore) SaveInteraction(ctx context.Context, in workflow.Interaction) (bool, error) {
	if s.vs == nil {
		slog.Info("interaction store disabled, skipping save")
		return false, nil
	}
	if s.isDuplicate(ctx, in.Question, in.FinalAnswer) {
		slog.Info("duplicate interaction, skipping insert", "question", in.Question)
		return false, nil
	}

	doc := vectorstore.InteractionDoc{
		ID:        shortuuid.New(),
		Answer:    in.FinalAnswer,
		Question:  in.Question,
		Context:   in.RetrievedContext,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ThreadID:  in.ThreadID,
	}
	if err := s.vs.AddInteraction(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

// isDuplicate searches stored interactions by question text and compares the
// trimmed stored question and answer against the incoming pair. A failed
// search assumes no duplicate rather than blocking the write.
func (s *InteractionStore) isDuplicate(ctx context.Context, question, answer string) bool {
	hits, err := s.vs.SearchInteractions(ctx, question, dedupTopK)
	if err != nil {
		slog.Warn("duplicate check failed, assuming not duplicate", "err", err)
		return false
	}
	q, a := strings.TrimSpace(question), strings.TrimSpace(answer)
	for _, h := range hits {
		if strings.TrimSpace(h.Question) == q && strings.TrimSpace(h.Answer) == a {
			return true
		}
	}
	return false
}
