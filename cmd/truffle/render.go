package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/locator"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

func checkFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatMarkdown:
		return nil
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

type itemReport struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

type listReport struct {
	URL        string         `json:"url"`
	Source     string         `json:"source"`
	Marker     string         `json:"marker,omitempty"`
	RunID      string         `json:"run_id"`
	Items      []itemReport   `json:"items,omitempty"`
	Candidates [][]itemReport `json:"candidates,omitempty"`
}

type findReport struct {
	URL       string       `json:"url"`
	Prompt    string       `json:"prompt"`
	IDs       []string     `json:"ids"`
	Selector  string       `json:"selector,omitempty"`
	Ambiguous bool         `json:"ambiguous"`
	Calls     int64        `json:"oracle_calls"`
	RunID     string       `json:"run_id"`
	Elements  []itemReport `json:"elements,omitempty"`
}

func newListReport(ctx context.Context, url string, res *locator.ListResult) (*listReport, error) {
	r := &listReport{URL: url, Source: string(res.Source), RunID: res.RunID}
	if res.Marker != nil {
		r.Marker = fmt.Sprint(res.Marker)
	}
	var err error
	if r.Items, err = describeElements(ctx, res.Items); err != nil {
		return nil, err
	}
	for _, g := range res.Candidates {
		items, err := describeElements(ctx, g.Items)
		if err != nil {
			return nil, err
		}
		r.Candidates = append(r.Candidates, items)
	}
	return r, nil
}

func newFindReport(ctx context.Context, url, prompt string, res *locator.PromptResult) (*findReport, error) {
	els, err := describeElements(ctx, res.Elements)
	if err != nil {
		return nil, err
	}
	return &findReport{
		URL:       url,
		Prompt:    prompt,
		IDs:       res.IDs,
		Selector:  res.Selector,
		Ambiguous: res.Ambiguous,
		Calls:     res.Calls,
		RunID:     res.RunID,
		Elements:  els,
	}, nil
}

func describeElements(ctx context.Context, els []dom.Element) ([]itemReport, error) {
	out := make([]itemReport, 0, len(els))
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		html, err := el.HTML(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, itemReport{Text: text, HTML: html})
	}
	return out, nil
}

func writeList(w io.Writer, format string, r *listReport) error {
	switch format {
	case formatJSON:
		return writeJSON(w, r)
	case formatMarkdown:
		fmt.Fprintf(w, "## %s\n\n_source: %s, marker: `%s`_\n\n", r.URL, r.Source, r.Marker)
		if err := writeMarkdownItems(w, r.URL, r.Items); err != nil {
			return err
		}
		for i, c := range r.Candidates {
			fmt.Fprintf(w, "### Candidate %d\n\n", i+1)
			if err := writeMarkdownItems(w, r.URL, c); err != nil {
				return err
			}
		}
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "URL\t%s\nSOURCE\t%s\nMARKER\t%s\nRUN\t%s\n", r.URL, r.Source, r.Marker, r.RunID)
		for i, it := range r.Items {
			fmt.Fprintf(tw, "%d\t%s\n", i+1, oneLine(it.Text))
		}
		for i, c := range r.Candidates {
			fmt.Fprintf(tw, "CANDIDATE %d\t%d items\n", i+1, len(c))
			for _, it := range c {
				fmt.Fprintf(tw, "\t%s\n", oneLine(it.Text))
			}
		}
		return tw.Flush()
	}
}

func writeFind(w io.Writer, format string, r *findReport) error {
	switch format {
	case formatJSON:
		return writeJSON(w, r)
	case formatMarkdown:
		fmt.Fprintf(w, "## %s\n\n_prompt: %s, oracle calls: %d_\n\n", r.URL, r.Prompt, r.Calls)
		return writeMarkdownItems(w, r.URL, r.Elements)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "URL\t%s\nPROMPT\t%s\nSELECTOR\t%s\nCALLS\t%d\nRUN\t%s\n", r.URL, r.Prompt, r.Selector, r.Calls, r.RunID)
		if r.Ambiguous {
			fmt.Fprintf(tw, "AMBIGUOUS\t%d matches\n", len(r.IDs))
		}
		for i, el := range r.Elements {
			fmt.Fprintf(tw, "%s\t%s\n", r.IDs[min(i, len(r.IDs)-1)], oneLine(el.Text))
		}
		return tw.Flush()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

func writeMarkdownItems(w io.Writer, pageURL string, items []itemReport) error {
	conv := newMarkdownConverter()
	for _, it := range items {
		md, err := conv.ConvertString(it.HTML, converter.WithDomain(pageURL))
		if err != nil || strings.TrimSpace(md) == "" {
			md = it.Text
		}
		fmt.Fprintf(w, "- %s\n", strings.ReplaceAll(strings.TrimSpace(md), "\n", "\n  "))
	}
	_, err := fmt.Fprintln(w)
	return err
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 80 {
		return string(r[:77]) + "..."
	}
	return s
}
