package workflow

import (
	"context"
	"log/slog"
	"strings"
)

// runAssistant classifies the latest message. Questions carrying a trigger
// keyword are routed to retrieval without a model call; everything else is
// answered directly with empty context.
func (w *Workflow) runAssistant(ctx context.Context, st *State) (decision, error) {
	question := st.Latest().Content
	if containsAny(strings.ToLower(question), w.cfg.TriggerKeywords) {
		slog.Info("[ASSISTANT]", "route", NodeRetriever)
		st.Append(Message{
			Role:      RoleTool,
			Content:   question,
			Directive: &Directive{Tool: ToolRetriever, Query: question},
		})
		return decideRetrieve, nil
	}

	slog.Info("[ASSISTANT]", "route", "direct")
	answer := w.generateAnswer(ctx, question, "")
	st.Append(Message{Role: RoleAssistant, Content: answer})
	return decideAnswer, nil
}

// runRetriever resolves the query from the incoming directive, looks up the
// knowledge store and falls back to web search when the result is empty or
// off-domain. It then grades the chosen context against the question of
// record to pick the outgoing edge.
func (w *Workflow) runRetriever(ctx context.Context, st *State) (decision, error) {
	query := st.Latest().DirectiveQuery()
	slog.Info("[RETRIEVER]", "query", query)

	cctx, cancel := w.callContext(ctx)
	result, err := w.tools.Retrieve(cctx, query)
	cancel()
	if err != nil {
		slog.Warn("retrieval failed", "err", err)
		result = ""
	}

	docs := result
	if result == "" || !containsAny(strings.ToLower(result), w.cfg.RelevanceKeywords) {
		slog.Info("[RETRIEVER]", "fallback", "web_search")
		cctx, cancel := w.callContext(ctx)
		web, err := w.tools.Search(cctx, query)
		cancel()
		if err != nil {
			slog.Warn("web search failed", "err", err)
			web = ""
		}
		docs = web
	}

	st.Append(Message{Role: RoleTool, Content: docs})
	st.retrievedContext = docs

	if w.gradeSufficient(ctx, st.Question(), docs) {
		return decideSufficient, nil
	}
	if st.rewrites >= w.cfg.MaxRewrites {
		// Rewrite budget exhausted: force the generator with whatever
		// context we have so the turn still terminates.
		slog.Info("[GRADER]", "verdict", "budget exhausted, generating anyway")
		return decideSufficient, nil
	}
	return decideInsufficient, nil
}

// gradeSufficient is the relevance decision exiting the retriever. The
// keyword check short-circuits to sufficient before any model call; it
// exists to tolerate unreliable model grading and must stay first.
func (w *Workflow) gradeSufficient(ctx context.Context, question, docs string) bool {
	if containsAny(strings.ToLower(docs), w.cfg.RelevanceKeywords) {
		slog.Info("[GRADER]", "verdict", "sufficient", "via", "keyword")
		return true
	}
	if strings.TrimSpace(docs) == "" {
		slog.Info("[GRADER]", "verdict", "insufficient", "via", "empty context")
		return false
	}
	cctx, cancel := w.callContext(ctx)
	defer cancel()
	ok, err := w.oracle.Grade(cctx, question, docs)
	if err != nil {
		slog.Warn("grading failed, treating context as insufficient", "err", err)
		return false
	}
	slog.Info("[GRADER]", "verdict", ok, "via", "model")
	return ok
}

// runGenerator produces the terminal answer from the question of record and
// the latest context message.
func (w *Workflow) runGenerator(ctx context.Context, st *State) (decision, error) {
	answer := w.generateAnswer(ctx, st.Question(), st.Latest().Content)
	slog.Info("[GENERATOR]", "chars", len(answer))
	st.Append(Message{Role: RoleAssistant, Content: answer})
	return decideAlways, nil
}

// runRewriter asks the model for a clearer single-line reformulation of the
// original question and re-emits it as a retrieval directive.
func (w *Workflow) runRewriter(ctx context.Context, st *State) (decision, error) {
	question := st.Question()
	cctx, cancel := w.callContext(ctx)
	rewritten, err := w.oracle.Rewrite(cctx, question)
	cancel()
	if err != nil {
		slog.Warn("rewrite failed, reusing original question", "err", err)
		rewritten = question
	}

	cleaned := CleanResponse(rewritten, w.cfg.RewriteMaxChars)
	if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = question
	}

	st.rewrites++
	slog.Info("[REWRITER]", "query", cleaned, "attempt", st.rewrites)
	st.Append(Message{
		Role:      RoleTool,
		Content:   cleaned,
		Directive: &Directive{Tool: ToolRetriever, Query: cleaned},
	})
	return decideAlways, nil
}

// generateAnswer invokes the answer capability and post-processes its output.
// Generation failures collapse to the fixed apology so the graph always
// terminates the turn with a message.
func (w *Workflow) generateAnswer(ctx context.Context, question, docs string) string {
	cctx, cancel := w.callContext(ctx)
	defer cancel()
	raw, err := w.oracle.Generate(cctx, question, docs)
	if err != nil {
		slog.Warn("generation failed", "err", err)
		return apologyText
	}
	answer := CleanResponse(raw, w.cfg.AnswerMaxChars)
	if answer == "" {
		return apologyText
	}
	return answer
}
