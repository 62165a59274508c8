// Package vectorstore wraps chromem-go with the two collections the
// assistant needs: the product knowledge base that retrieval searches, and
// the interaction log that duplicate suppression searches.
package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/pkg/errors"
)

const (
	productCollection     = "products"
	interactionCollection = "interactions"
)

// ProductDoc is one review entry in the knowledge base. Metadata fields feed
// the formatted retrieval blocks downstream.
type ProductDoc struct {
	ID     string
	Review string
	Title  string
	Price  string
	Rating string
}

// ProductHit is a single semantic-search hit against the product collection.
type ProductHit struct {
	ID     string
	Review string
	Title  string
	Price  string
	Rating string
	Score  float32
}

// InteractionDoc is one stored question/answer interaction.
type InteractionDoc struct {
	ID        string
	Answer    string
	Question  string
	Context   string
	Timestamp string
	ThreadID  string
}

// InteractionHit is a similarity-search hit against stored interactions.
type InteractionHit struct {
	ID       string
	Answer   string
	Question string
	Score    float32
}

// Store wraps chromem-go with disk persistence and an injected embedding
// function. Pass chromem.NewEmbeddingFuncOpenAICompat pointed at the
// configured embeddings endpoint, or a stub in tests.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// New creates (or opens) the persistent vector store at dataDir/vectorstore/.
func New(dataDir string, embedFn chromem.EmbeddingFunc) (*Store, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(err, "create vectorstore dir")
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, errors.Wrap(err, "open vectorstore")
	}
	return &Store{db: db, embedFn: embedFn}, nil
}

// NewInMemory creates a non-persistent store, used by tests.
func NewInMemory(embedFn chromem.EmbeddingFunc) *Store {
	return &Store{db: chromem.NewDB(), embedFn: embedFn}
}

func (s *Store) getOrCreateCollection(name string) (*chromem.Collection, error) {
	col := s.db.GetCollection(name, s.embedFn)
	if col == nil {
		var err error
		col, err = s.db.CreateCollection(name, nil, s.embedFn)
		if err != nil {
			return nil, errors.Wrapf(err, "create collection %s", name)
		}
	}
	return col, nil
}

// AddProducts indexes a batch of product reviews. This is the knowledge-store
// write boundary; ingestion pipelines live outside this system.
func (s *Store) AddProducts(ctx context.Context, docs []ProductDoc) error {
	if len(docs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.getOrCreateCollection(productCollection)
	if err != nil {
		return err
	}
	for _, d := range docs {
		doc := chromem.Document{
			ID:      d.ID,
			Content: d.Review,
			Metadata: map[string]string{
				"product_title": d.Title,
				"price":         d.Price,
				"rating":        d.Rating,
			},
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return errors.Wrapf(err, "add product %s", d.ID)
		}
	}
	return nil
}

// SearchProducts returns the top-k reviews most similar to the query.
func (s *Store) SearchProducts(ctx context.Context, query string, k int) ([]ProductHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.query(ctx, productCollection, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]ProductHit, 0, len(results))
	for _, r := range results {
		out = append(out, ProductHit{
			ID:     r.ID,
			Review: r.Content,
			Title:  r.Metadata["product_title"],
			Price:  r.Metadata["price"],
			Rating: r.Metadata["rating"],
			Score:  r.Similarity,
		})
	}
	return out, nil
}

// AddInteraction appends one completed turn to the interaction log.
func (s *Store) AddInteraction(ctx context.Context, d InteractionDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.getOrCreateCollection(interactionCollection)
	if err != nil {
		return err
	}
	meta := map[string]string{
		"user_question":     d.Question,
		"retrieved_context": d.Context,
		"timestamp":         d.Timestamp,
		"source":            "agentic_rag",
	}
	if d.ThreadID != "" {
		meta["thread_id"] = d.ThreadID
	}
	return col.AddDocument(ctx, chromem.Document{ID: d.ID, Content: d.Answer, Metadata: meta})
}

// SearchInteractions returns stored interactions whose answers are most
// similar to the question text.
func (s *Store) SearchInteractions(ctx context.Context, question string, k int) ([]InteractionHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.query(ctx, interactionCollection, question, k)
	if err != nil {
		return nil, err
	}
	out := make([]InteractionHit, 0, len(results))
	for _, r := range results {
		out = append(out, InteractionHit{
			ID:       r.ID,
			Answer:   r.Content,
			Question: r.Metadata["user_question"],
			Score:    r.Similarity,
		})
	}
	return out, nil
}

// query clamps k to the collection size and steps it down on failure;
// chromem-go sometimes rejects nResults despite Count checks.
func (s *Store) query(ctx context.Context, collection, text string, k int) ([]chromem.Result, error) {
	col, err := s.getOrCreateCollection(collection)
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, text, attemptK, nil, nil)
		if err == nil {
			return results, nil
		}
	}
	return nil, errors.Wrapf(err, "query %s", collection)
}
