// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package axtree models the simplified accessibility tree that prompt search
walks.

Script is injected into a live page; it tags each element with an id
attribute and returns the tree, which Decode parses. Prune removes hidden
and zero-area nodes and collapses single-child chains so that every
remaining node has zero or at least two children.
*/
package axtree
