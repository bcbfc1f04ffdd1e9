// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package detect finds repeated-item lists in a document.

Chain is a chain of responsibility over Strategy functions. The default
chain tries wrapper patterns (ul, ol, role=list, ...) and keeps the
largest group of children, then falls back to item patterns (li,
role=listitem, article, ...) and returns every non-empty group. Conclude
turns an unambiguous result into a cacheable marker.

When structure alone is ambiguous, Inferrer scores the attributes of the
lowest common ancestors of hint texts against their frequency in the
whole document. VisionHints produces those hints from a screenshot.
*/
package detect
