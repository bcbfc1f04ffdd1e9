package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// StripAttributes removes the named attributes from every start tag of
// markup. All other bytes are copied unchanged, so two documents that differ
// only in those attributes strip to the same string.
func StripAttributes(markup string, names ...string) string {
	if len(names) == 0 {
		return markup
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[strings.ToLower(n)] = true
	}

	var b strings.Builder
	b.Grow(len(markup))
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		raw := string(z.Raw())
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			raw = stripTag(raw, drop)
		}
		b.WriteString(raw)
	}
}

// stripTag rewrites one raw start tag without the dropped attributes.
func stripTag(raw string, drop map[string]bool) string {
	var b strings.Builder
	i := 1
	for i < len(raw) && !isTagSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' {
		i++
	}
	b.WriteString(raw[:i])

	for i < len(raw) {
		start := i
		for i < len(raw) && (isTagSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			b.WriteString(raw[start:])
			break
		}

		nameStart := i
		for i < len(raw) && !isTagSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' && (raw[i] != '=' || i == nameStart) {
			i++
		}
		name := strings.ToLower(raw[nameStart:i])

		j := i
		for j < len(raw) && isTagSpace(raw[j]) {
			j++
		}
		if j < len(raw) && raw[j] == '=' {
			j++
			for j < len(raw) && isTagSpace(raw[j]) {
				j++
			}
			if j < len(raw) && (raw[j] == '"' || raw[j] == '\'') {
				if k := strings.IndexByte(raw[j+1:], raw[j]); k >= 0 {
					j += k + 2
				} else {
					j = len(raw)
				}
			} else {
				for j < len(raw) && !isTagSpace(raw[j]) && raw[j] != '>' {
					j++
				}
			}
			i = j
		}

		if !drop[name] {
			b.WriteString(raw[start:i])
		}
	}
	return b.String()
}

func isTagSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
