package search

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/truffle/axtree"
	"github.com/BaSui01/truffle/internal/retry"
	"github.com/BaSui01/truffle/oracle"
)

// Outcome classifies a searched subtree.
type Outcome int

const (
	NotFound Outcome = iota
	TooMany
	ExactMatch
)

func (o Outcome) String() string {
	switch o {
	case TooMany:
		return "too_many"
	case ExactMatch:
		return "exact_match"
	default:
		return "not_found"
	}
}

// Result is the detailed output of one search.
type Result struct {
	IDs     []string
	Calls   int64
	Outcome Outcome
}

// Searcher walks an accessibility tree, asking the oracle about nodes small
// enough to judge and descending into the rest.
type Searcher struct {
	oracle  oracle.Oracle
	cfg     Config
	backoff *retry.Backoff
	sem     *semaphore.Weighted
	logger  *zap.Logger
}

// NewSearcher creates a searcher. Only oracle.ErrValidation is retried.
func NewSearcher(o oracle.Oracle, cfg Config, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalized()
	logger = logger.With(zap.String("component", "prompt_search"))

	policy := cfg.Retry
	policy.RetryableErrors = []error{oracle.ErrValidation}

	s := &Searcher{
		oracle:  o,
		cfg:     cfg,
		backoff: retry.NewBackoff(policy, logger),
		logger:  logger,
	}
	if cfg.MaxConcurrency > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrency))
	}
	return s
}

// Search returns the ids of the nodes matching prompt. On budget exhaustion
// it returns ErrBudgetExceeded and no ids.
func (s *Searcher) Search(ctx context.Context, root *axtree.Node, prompt string) ([]string, error) {
	res, err := s.SearchDetailed(ctx, root, prompt)
	if err != nil {
		return nil, err
	}
	return res.IDs, nil
}

// SearchDetailed is Search with the call count and root outcome.
func (s *Searcher) SearchDetailed(ctx context.Context, root *axtree.Node, prompt string) (*Result, error) {
	r := &run{
		Searcher: s,
		prompt:   prompt,
		budget:   &budget{max: s.cfg.MaxOracleCalls},
		seen:     make(map[string]bool),
	}
	if root == nil {
		return &Result{Outcome: NotFound}, nil
	}

	outcome, err := r.visit(ctx, root)
	if err != nil {
		s.logger.Warn("search aborted", zap.Int64("oracle_calls", r.budget.calls()), zap.Error(err))
		return &Result{Calls: r.budget.calls(), Outcome: NotFound}, err
	}

	s.logger.Debug("search finished",
		zap.String("outcome", outcome.String()),
		zap.Int("matches", len(r.ids)),
		zap.Int64("oracle_calls", r.budget.calls()),
	)
	return &Result{IDs: r.ids, Calls: r.budget.calls(), Outcome: outcome}, nil
}

// run holds the state of a single search.
type run struct {
	*Searcher
	prompt string
	budget *budget

	mu   sync.Mutex
	ids  []string
	seen map[string]bool
}

func (r *run) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seen[id] {
		r.seen[id] = true
		r.ids = append(r.ids, id)
	}
}

func (r *run) visit(ctx context.Context, n *axtree.Node) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return NotFound, err
	}

	if n.Text == "" || utf8.RuneCountInString(n.Text) > r.cfg.TextThreshold {
		if n.IsLeaf() {
			return NotFound, nil
		}
		outcomes, err := r.descend(ctx, n.Children)
		if err != nil {
			return NotFound, err
		}
		return aggregate(outcomes), nil
	}

	verdict, err := r.judge(ctx, n)
	if err != nil {
		if errors.Is(err, ErrBudgetExceeded) || ctx.Err() != nil {
			return NotFound, err
		}
		r.logger.Debug("oracle failed, subtree treated as not found", zap.String("node", n.ID), zap.Error(err))
		return NotFound, nil
	}

	switch verdict {
	case oracle.ExactMatch:
		r.add(n.ID)
		return ExactMatch, nil
	case oracle.TooMany:
		if _, err := r.descend(ctx, n.Children); err != nil {
			return NotFound, err
		}
		return TooMany, nil
	default:
		return NotFound, nil
	}
}

// descend searches children concurrently. The first fatal error cancels the
// remaining siblings.
func (r *run) descend(ctx context.Context, children []*axtree.Node) ([]Outcome, error) {
	outcomes := make([]Outcome, len(children))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range children {
		g.Go(func() error {
			o, err := r.visit(gctx, c)
			outcomes[i] = o
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// judge asks the oracle about n. Every attempt, retries included, is
// charged to the budget.
func (r *run) judge(ctx context.Context, n *axtree.Node) (oracle.Verdict, error) {
	return retry.DoWithResult(ctx, r.backoff, func(int) (oracle.Verdict, error) {
		if err := r.budget.take(); err != nil {
			return "", retry.Permanent(err)
		}
		if r.sem != nil {
			if err := r.sem.Acquire(ctx, 1); err != nil {
				return "", retry.Permanent(err)
			}
			defer r.sem.Release(1)
		}
		return r.oracle.Judge(ctx, n.Text, r.prompt)
	})
}

// aggregate classifies a node too large to judge from its children. A
// match among several children means the node holds more than the match.
func aggregate(children []Outcome) Outcome {
	matched := false
	for _, o := range children {
		switch o {
		case TooMany:
			return TooMany
		case ExactMatch:
			matched = true
		}
	}
	switch {
	case matched && len(children) > 1:
		return TooMany
	case matched:
		return ExactMatch
	default:
		return NotFound
	}
}
