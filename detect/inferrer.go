package detect

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/marker"
)

// Score is the ratio of an attribute's appearances on hint ancestors to its
// appearances anywhere in the document.
type Score struct {
	Attr   dom.Attr
	Local  int
	Global int
	Value  float64
}

// Inferrer finds the attribute that best identifies the common ancestor of a
// set of hint texts.
type Inferrer struct {
	ignore map[string]bool
	logger *zap.Logger
}

// NewInferrer creates an inferrer. Attributes named in cfg.IgnoreAttributes
// never take part in scoring.
func NewInferrer(cfg DetectorConfig, logger *zap.Logger) *Inferrer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ignore := make(map[string]bool, len(cfg.IgnoreAttributes))
	for _, k := range cfg.IgnoreAttributes {
		ignore[k] = true
	}
	return &Inferrer{ignore: ignore, logger: logger.With(zap.String("component", "attribute_inferrer"))}
}

// Infer returns the marker for the best scoring attribute. A winning tag
// name becomes a Simple CSS marker.
func (in *Inferrer) Infer(doc *dom.Document, hints []string) (marker.Marker, bool) {
	scores := in.Rank(doc, hints)
	if len(scores) == 0 || scores[0].Value <= 0 {
		return nil, false
	}
	best := scores[0].Attr
	in.logger.Debug("attribute inferred",
		zap.String("attribute", best.String()),
		zap.Float64("score", scores[0].Value),
		zap.Int("candidates", len(scores)),
	)
	if best.IsTag() {
		return marker.NewCSS(best.Value), true
	}
	return marker.NewAttribute(best.Key, best.Value, marker.Contains), true
}

// Rank scores every attribute seen on a pairwise lowest common ancestor of
// the hint matches, best first. Equal scores keep first-seen order.
func (in *Inferrer) Rank(doc *dom.Document, hints []string) []Score {
	candidates := in.candidates(doc, hints)
	if len(candidates) < 2 {
		return nil
	}

	local := make(map[dom.Attr]int)
	var order []dom.Attr
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			lca := dom.LCA(candidates[i], candidates[j])
			if lca == nil || lca.Type != html.ElementNode {
				continue
			}
			for _, a := range dom.AttributeSet(lca, in.ignore) {
				if local[a] == 0 {
					order = append(order, a)
				}
				local[a]++
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	global := make(map[dom.Attr]int)
	doc.Elements(func(n *html.Node) {
		for _, a := range dom.AttributeSet(n, in.ignore) {
			if _, ok := local[a]; ok {
				global[a]++
			}
		}
	})

	scores := make([]Score, 0, len(order))
	for _, a := range order {
		g := global[a]
		if g == 0 {
			continue
		}
		scores = append(scores, Score{Attr: a, Local: local[a], Global: g, Value: float64(local[a]) / float64(g)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Value > scores[j].Value })
	return scores
}

// candidates collects the text nodes matching any hint, deduplicated in
// first-seen order.
func (in *Inferrer) candidates(doc *dom.Document, hints []string) []*html.Node {
	seen := make(map[*html.Node]bool)
	var out []*html.Node
	for _, h := range hints {
		for _, n := range doc.FindText(h) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
