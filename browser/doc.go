// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package browser drives a real Chromium through go-rod.

RodPage satisfies the dom.Querier contract on a live tab, renders screenshots
for the hint source, and runs the accessibility tree script used by the
prompt search. Launcher connects to a running browser or starts one, with
optional stealth patches. PagePool bounds the number of open tabs.
*/
package browser
