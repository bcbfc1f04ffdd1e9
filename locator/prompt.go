package locator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/BaSui01/truffle/axtree"
	"github.com/BaSui01/truffle/browser"
	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/internal/ctxkeys"
	"github.com/BaSui01/truffle/internal/telemetry"
	"github.com/BaSui01/truffle/marker"
	"github.com/BaSui01/truffle/search"
)

// PromptResult is the outcome of FindByPrompt.
type PromptResult struct {
	// IDs are the matched node ids in completion order.
	IDs []string
	// Elements are the page elements carrying those ids.
	Elements []dom.Element
	// Selector selects the first match. Callers that want one element use it.
	Selector string
	// Ambiguous is set when more than one node matched.
	Ambiguous bool
	// Calls is the number of oracle invocations spent.
	Calls int64
	RunID string
}

// FindByPrompt searches the page's pruned accessibility tree for the
// elements described by prompt. Nothing is cached. A spent oracle budget
// fails the whole call with BUDGET_EXCEEDED.
func (l *Locator) FindByPrompt(ctx context.Context, page browser.Page, prompt string) (res *PromptResult, err error) {
	if l.searcher == nil {
		return nil, ErrNoOracle
	}

	ctx, span, logger := l.begin(ctx, "find_by_prompt", attribute.Int("truffle.prompt_len", len(prompt)))
	start := time.Now()
	var calls int64
	defer func() {
		status := "success"
		switch {
		case errors.Is(err, search.ErrBudgetExceeded):
			status = "budget_exceeded"
		case err != nil:
			status = "error"
		case len(res.IDs) == 0:
			status = "not_found"
		}
		span.SetAttributes(attribute.Int64("truffle.oracle_calls", calls))
		l.metrics.RecordSearch(status, calls, time.Since(start))
		telemetry.EndSpan(span, err)
	}()

	tree, err := page.AccessibilityTree(ctx, l.idAttr)
	if err != nil {
		return nil, fmt.Errorf("build accessibility tree: %w", err)
	}
	pruned := axtree.Prune(tree)
	logger.Debug("accessibility tree pruned",
		zap.Int("nodes", axtree.Count(tree)),
		zap.Int("pruned_nodes", axtree.Count(pruned)),
	)

	out, err := l.searcher.SearchDetailed(ctx, pruned, prompt)
	if out != nil {
		calls = out.Calls
	}
	if err != nil {
		return nil, err
	}

	res = &PromptResult{IDs: out.IDs, Calls: out.Calls, RunID: runID(ctx), Ambiguous: len(out.IDs) > 1}
	for i, id := range out.IDs {
		sel := l.IDSelector(id)
		if i == 0 {
			res.Selector = sel
		}
		els, err := page.QueryAll(ctx, sel, marker.CSS)
		if err != nil {
			return nil, fmt.Errorf("resolve node %s: %w", id, err)
		}
		res.Elements = append(res.Elements, els...)
	}
	logger.Info("prompt search finished",
		zap.Int("matches", len(res.IDs)),
		zap.Int64("oracle_calls", res.Calls),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// IDSelector returns the CSS selector of the element stamped with id.
func (l *Locator) IDSelector(id string) string {
	return "[" + l.idAttr + "=" + strconv.Quote(id) + "]"
}

func runID(ctx context.Context) string {
	id, _ := ctxkeys.RunID(ctx)
	return id
}
