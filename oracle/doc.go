// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package oracle defines the semantic judge used by prompt search.

An Oracle answers one question: does this content match this prompt, and
is it exactly the match (ExactMatch), a container holding it (TooMany) or
unrelated (NotFound). A malformed answer is reported as ErrValidation so
callers can retry it.

ChatOracle implements the contract over any ChatModel. WithRateLimit and
Counting are decorators.
*/
package oracle
