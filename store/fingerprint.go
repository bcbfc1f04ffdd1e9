package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// FingerprintMode selects how document markup becomes a cache key.
type FingerprintMode string

const (
	// FingerprintRaw hashes the markup byte for byte.
	FingerprintRaw FingerprintMode = "raw"
	// FingerprintStructural hashes the tag skeleton only (tags, depth and
	// attribute names), so text and attribute values do not change the key.
	FingerprintStructural FingerprintMode = "structural"
)

// Fingerprint returns the hex SHA-256 of the input.
func Fingerprint(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// StructuralFingerprint hashes the document skeleton.
func StructuralFingerprint(input string) string {
	return Fingerprint(Skeleton(input))
}

// Skeleton renders "depth:tag[attr,attr];" for every start tag.
func Skeleton(input string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(input))
	depth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way the skeleton ends here
			return b.String()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			names := make([]string, 0, len(tok.Attr))
			for _, a := range tok.Attr {
				names = append(names, a.Key)
			}
			sort.Strings(names)
			fmt.Fprintf(&b, "%d:%s[%s];", depth, tok.Data, strings.Join(names, ","))
			if tt == html.StartTagToken && !isVoid(tok.Data) {
				depth++
			}
		case html.EndTagToken:
			if depth > 0 {
				depth--
			}
		}
	}
}

func isVoid(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

// Func returns the hash function for the mode. Unknown modes hash raw.
func (m FingerprintMode) Func() func(string) string {
	if m == FingerprintStructural {
		return StructuralFingerprint
	}
	return Fingerprint
}
