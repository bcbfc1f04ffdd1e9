// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package search implements recursive prompt search over a pruned
accessibility tree.

Nodes whose text fits under Config.TextThreshold are judged by the oracle;
larger or textless nodes are split into their children, which are searched
concurrently. A too_many verdict descends further, exact_match records the
node id. Every oracle attempt is charged against a per-search budget, and
running out aborts the search with ErrBudgetExceeded and no results.
*/
package search
