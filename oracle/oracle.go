package oracle

import (
	"context"
	"strconv"
	"strings"

	"github.com/BaSui01/truffle/types"
)

// Verdict is the oracle's judgement of one piece of content against a prompt.
type Verdict string

const (
	// NotFound: nothing in the content matches the prompt.
	NotFound Verdict = "not_found"
	// TooMany: a match exists but is surrounded by unrelated content.
	TooMany Verdict = "too_many"
	// ExactMatch: the content is the match, with nothing extra.
	ExactMatch Verdict = "exact_match"
)

// ErrValidation marks a malformed oracle response. It is the only oracle
// failure worth retrying.
var ErrValidation = types.Sentinel(types.ErrOracleValidation)

// NewValidationError builds an error matching ErrValidation.
func NewValidationError(msg string, cause error) error {
	return types.NewError(types.ErrOracleValidation, msg).WithCause(cause).WithRetryable(true)
}

// ParseVerdict normalizes s into a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case NotFound, TooMany, ExactMatch:
		return v, nil
	}
	return "", NewValidationError("unknown verdict "+strconv.Quote(s), nil)
}

// Oracle judges whether content matches a natural-language prompt.
type Oracle interface {
	Judge(ctx context.Context, content, prompt string) (Verdict, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, content, prompt string) (Verdict, error)

// Judge implements Oracle.
func (f Func) Judge(ctx context.Context, content, prompt string) (Verdict, error) {
	return f(ctx, content, prompt)
}
