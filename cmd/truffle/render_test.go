package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/truffle/detect"
	"github.com/BaSui01/truffle/locator"
	"github.com/BaSui01/truffle/marker"
	"github.com/BaSui01/truffle/testutil"
	"github.com/BaSui01/truffle/testutil/fixtures"
	"github.com/BaSui01/truffle/testutil/mocks"
)

func fruitReport(t *testing.T) *listReport {
	t.Helper()
	ctx := testutil.TestContext(t)
	page := mocks.NewFakePage(fixtures.FruitList)
	items, err := page.QueryAll(ctx, "#fruits > li", marker.CSS)
	require.NoError(t, err)

	r, err := newListReport(ctx, "https://fruit.example", &locator.ListResult{
		Items:  items,
		Marker: marker.NewCSS("#fruits"),
		Source: locator.SourceStructural,
		RunID:  "run-1",
	})
	require.NoError(t, err)
	return r
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{formatText, formatJSON, formatMarkdown} {
		assert.NoError(t, checkFormat(f))
	}
	assert.Error(t, checkFormat("yaml"))
}

func TestWriteList_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeList(&buf, formatText, fruitReport(t)))

	out := buf.String()
	assert.Contains(t, out, "https://fruit.example")
	assert.Contains(t, out, "structural")
	for _, fruit := range []string{"Apple", "Banana", "Cherry"} {
		assert.Contains(t, out, fruit)
	}
}

func TestWriteList_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeList(&buf, formatJSON, fruitReport(t)))

	var got listReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "structural", got.Source)
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Items, 3)
	assert.Equal(t, "Apple", got.Items[0].Text)
	assert.Equal(t, "<li>Apple</li>", got.Items[0].HTML)
}

func TestWriteList_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeList(&buf, formatMarkdown, fruitReport(t)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "## https://fruit.example"))
	assert.Contains(t, out, "- ")
	assert.Contains(t, out, "Banana")
}

func TestNewListReport_Candidates(t *testing.T) {
	ctx := testutil.TestContext(t)
	page := mocks.NewFakePage(fixtures.TwoItemGroups)
	items, err := page.QueryAll(ctx, "article", marker.CSS)
	require.NoError(t, err)

	r, err := newListReport(ctx, "u", &locator.ListResult{
		Source:     locator.SourceCandidates,
		Candidates: []detect.Group{{Pattern: "article", Items: items}},
	})
	require.NoError(t, err)
	assert.Empty(t, r.Marker)
	require.Len(t, r.Candidates, 1)
	assert.Len(t, r.Candidates[0], 3)

	var buf bytes.Buffer
	require.NoError(t, writeList(&buf, formatText, r))
	assert.Contains(t, buf.String(), "CANDIDATE 1")
}

func TestWriteFind(t *testing.T) {
	ctx := testutil.TestContext(t)
	page := mocks.NewFakePage(fixtures.PriceTable())
	_, err := page.AccessibilityTree(ctx, "data-truffle-id")
	require.NoError(t, err)
	els, err := page.QueryAll(ctx, `[data-truffle-id="3"]`, marker.CSS)
	require.NoError(t, err)

	r, err := newFindReport(ctx, "u", "price", &locator.PromptResult{
		IDs:      []string{"3"},
		Elements: els,
		Selector: `[data-truffle-id="3"]`,
		Calls:    1,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeFind(&buf, formatText, r))
	assert.Contains(t, buf.String(), "Pricing: basic plan costs $10 per month")

	buf.Reset()
	require.NoError(t, writeFind(&buf, formatJSON, r))
	assert.Contains(t, buf.String(), `"oracle_calls": 1`)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine(" a\n b\t c "))
	long := oneLine(strings.Repeat("é", 100))
	assert.Equal(t, 80, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "truffle "+Version)
}
