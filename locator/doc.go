// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package locator ties the marker store, the structural detector, the
attribute inferrer and the prompt search together.

FindList resolves a cached marker when one fits the page, otherwise runs
detection and caches a conclusive result under the list action. Stale
markers are evicted with a guarded remove. Concurrent calls for the same
page content and options share one detection.

FindByPrompt builds the page's accessibility tree, prunes it and asks the
oracle which nodes match; matched ids are resolved back to elements through
the stamped id attribute.
*/
package locator
