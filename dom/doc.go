// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package dom is the document model shared by detection and resolution.

Element and Querier are the capability interfaces every document exposes;
the browser package implements them over a live page and Document
implements them over parsed markup. Document runs CSS through goquery and
cascadia and XPath through htmlquery, and adds the tree helpers the
inferrer needs: FindText, LCA and AttributeSet.
*/
package dom
