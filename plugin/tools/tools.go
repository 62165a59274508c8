// Package tools implements the assistant's two retrieval capabilities as
// langchaingo tools: product lookup against the vector knowledge base and
// open web search as the fallback. Both report provider failures as
// error-describing strings so a broken provider can never crash the graph.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"

	"github.com/prodassist/prodassist/plugin/vectorstore"
)

// Tool identifiers exposed at the tool boundary.
const (
	ToolProductInfo = "get_product_info"
	ToolWebSearch   = "web_search"
)

// NoResultSentinel is returned when the title post-filter eliminates every
// candidate. It carries no domain keyword on purpose, so the orchestrator's
// fallback logic treats it as a weak result.
const NoResultSentinel = "No exact result found"

const (
	defaultTopK       = 3
	searchMaxResults  = 5
	searchUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	noDocsPlaceholder = "No relevant documents found"
)

// FormatProductDocs renders one block per hit (title, price, rating, review)
// joined with a distinct separator.
func FormatProductDocs(hits []vectorstore.ProductHit) string {
	if len(hits) == 0 {
		return noDocsPlaceholder
	}
	blocks := make([]string, 0, len(hits))
	for _, h := range hits {
		blocks = append(blocks, fmt.Sprintf(
			"Title: %s\nPrice: %s\nRating: %s\nReview:\n%s",
			orNA(h.Title), orNA(h.Price), orNA(h.Rating), strings.TrimSpace(h.Review),
		))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// ProductInfoTool looks up product reviews by similarity and post-filters
// candidates whose title shares no word with the query.
type ProductInfoTool struct {
	store *vectorstore.Store
	topK  int
}

func NewProductInfoTool(store *vectorstore.Store) *ProductInfoTool {
	return &ProductInfoTool{store: store, topK: defaultTopK}
}

func (t *ProductInfoTool) Name() string { return ToolProductInfo }
func (t *ProductInfoTool) Description() string {
	return "Look up product price, rating and review details from the product knowledge base. Input is a plain-text product query."
}

func (t *ProductInfoTool) Call(ctx context.Context, query string) (string, error) {
	hits, err := t.store.SearchProducts(ctx, query, t.topK)
	if err != nil {
		slog.Warn("product lookup failed", "err", err)
		return "Error retrieving product info: " + err.Error(), nil
	}

	filtered := filterByTitle(hits, query)
	if len(filtered) == 0 {
		return NoResultSentinel, nil
	}
	return FormatProductDocs(filtered), nil
}

// filterByTitle keeps hits whose product title contains at least one query
// word, case-insensitive.
func filterByTitle(hits []vectorstore.ProductHit, query string) []vectorstore.ProductHit {
	words := strings.Fields(strings.ToLower(query))
	var out []vectorstore.ProductHit
	for _, h := range hits {
		title := strings.ToLower(h.Title)
		for _, w := range words {
			if w != "" && strings.Contains(title, w) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// WebSearchTool wraps DuckDuckGo search as the open-web fallback.
type WebSearchTool struct {
	inner tools.Tool
}

// NewWebSearchTool builds the DuckDuckGo-backed search tool.
func NewWebSearchTool() (*WebSearchTool, error) {
	ddg, err := duckduckgo.New(searchMaxResults, searchUserAgent)
	if err != nil {
		return nil, err
	}
	return &WebSearchTool{inner: ddg}, nil
}

// NewWebSearchToolWith wraps an existing search implementation; tests pass
// deterministic stubs.
func NewWebSearchToolWith(inner tools.Tool) *WebSearchTool {
	return &WebSearchTool{inner: inner}
}

func (t *WebSearchTool) Name() string { return ToolWebSearch }
func (t *WebSearchTool) Description() string {
	return "Search the open web for product information when the knowledge base has no answer. Input is a plain-text query."
}

func (t *WebSearchTool) Call(ctx context.Context, query string) (string, error) {
	out, err := t.inner.Call(ctx, query)
	if err != nil {
		slog.Warn("web search failed", "err", err)
		return "Error during web search: " + err.Error(), nil
	}
	return out, nil
}

// Invoker adapts the two tools to the orchestrator's tool boundary for
// in-process use.
type Invoker struct {
	product tools.Tool
	web     tools.Tool
}

func NewInvoker(product, web tools.Tool) *Invoker {
	return &Invoker{product: product, web: web}
}

func (i *Invoker) Retrieve(ctx context.Context, query string) (string, error) {
	return i.product.Call(ctx, query)
}

func (i *Invoker) Search(ctx context.Context, query string) (string, error) {
	return i.web.Call(ctx, query)
}
