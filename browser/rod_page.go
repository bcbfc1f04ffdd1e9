package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/BaSui01/truffle/axtree"
	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/marker"
)

// RodPage implements Page over a go-rod page.
type RodPage struct {
	page       *rod.Page
	navTimeout time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	stamped []string
}

// NewRodPage wraps p.
func NewRodPage(p *rod.Page) *RodPage { return &RodPage{page: p, logger: zap.NewNop()} }

// Navigate loads url and waits for the load event.
func (p *RodPage) Navigate(ctx context.Context, url string) error {
	if p.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.navTimeout)
		defer cancel()
	}
	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.page.Context(ctx).WaitLoad(); err != nil {
		p.logger.Warn("wait load timeout", zap.String("url", url), zap.Error(err))
	}
	return nil
}

// Rod exposes the underlying page.
func (p *RodPage) Rod() *rod.Page { return p.page }

// QueryAll implements dom.Querier.
func (p *RodPage) QueryAll(ctx context.Context, selector string, kind marker.SelectorKind) ([]dom.Element, error) {
	var (
		els rod.Elements
		err error
	)
	switch kind {
	case marker.XPath:
		els, err = p.page.Context(ctx).ElementsX(selector)
	case marker.CSS, "":
		els, err = p.page.Context(ctx).Elements(selector)
	default:
		return nil, fmt.Errorf("unsupported selector kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapElements(els), nil
}

// Content implements Page. Id attributes written by AccessibilityTree are
// left out, so a searched tab fingerprints like a fresh load.
func (p *RodPage) Content(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("get document: %w", err)
	}
	return dom.StripAttributes(res.Value.Str(), p.stampedAttributes()...), nil
}

func (p *RodPage) stamp(attr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.stamped {
		if a == attr {
			return
		}
	}
	p.stamped = append(p.stamped, attr)
}

func (p *RodPage) stampedAttributes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.stamped...)
}

// Screenshot implements Page.
func (p *RodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// AccessibilityTree implements Page.
func (p *RodPage) AccessibilityTree(ctx context.Context, idAttr string) (*axtree.Node, error) {
	if idAttr == "" {
		idAttr = axtree.DefaultIDAttribute
	}
	p.stamp(idAttr)
	res, err := p.page.Context(ctx).Eval(axtree.Script, idAttr)
	if err != nil {
		return nil, fmt.Errorf("build accessibility tree: %w", err)
	}
	return axtree.Decode([]byte(res.Value.JSON("", "")))
}

// Close closes the tab.
func (p *RodPage) Close() error { return p.page.Close() }

type rodElement struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []dom.Element {
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = rodElement{el: el}
	}
	return out
}

func (e rodElement) Children(ctx context.Context) ([]dom.Element, error) {
	els, err := e.el.Context(ctx).Elements(":scope > *")
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func (e rodElement) Text(ctx context.Context) (string, error) {
	s, err := e.el.Context(ctx).Text()
	return strings.TrimSpace(s), err
}

func (e rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}

func (e rodElement) Path(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(axtree.PathScript)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e rodElement) HTML(ctx context.Context) (string, error) {
	return e.el.Context(ctx).HTML()
}
