// FakePage 是基于离线文档的 browser.Page 实现。
//
// 选择器走 dom.Document，无障碍树由解析后的节点构建，
// 注入的 id 属性写回同一棵树，因此 [data-truffle-id="n"] 可直接解析。
package mocks

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/BaSui01/truffle/axtree"
	"github.com/BaSui01/truffle/dom"
	"github.com/BaSui01/truffle/marker"
)

// FakePage 离线页面
type FakePage struct {
	markup string
	doc    *dom.Document

	mu         sync.Mutex
	tree       *axtree.Node
	screenshot []byte
	queryErr   error
	queries    atomic.Int32
	closed     atomic.Bool
}

// NewFakePage 解析 markup，解析失败时 panic
func NewFakePage(markup string) *FakePage {
	doc, err := dom.Parse(markup)
	if err != nil {
		panic(err)
	}
	return &FakePage{markup: markup, doc: doc, screenshot: blankPNG(200, 100)}
}

// WithTree 使用预置无障碍树代替由文档构建的树
func (p *FakePage) WithTree(tree *axtree.Node) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree = tree
	return p
}

// WithQueryError 令所有选择器查询失败
func (p *FakePage) WithQueryError(err error) *FakePage {
	p.queryErr = err
	return p
}

// Document 返回底层文档
func (p *FakePage) Document() *dom.Document { return p.doc }

// QueryCount 返回查询次数
func (p *FakePage) QueryCount() int { return int(p.queries.Load()) }

// QueryAll 实现 dom.Querier
func (p *FakePage) QueryAll(ctx context.Context, selector string, kind marker.SelectorKind) ([]dom.Element, error) {
	p.queries.Add(1)
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.doc.QueryAll(ctx, selector, kind)
}

// Content 返回原始 markup，不含注入的 id
func (p *FakePage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.markup, nil
}

// Screenshot 返回一张空白 PNG
func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.screenshot, nil
}

// AccessibilityTree 为每个元素写入 idAttr 并返回树
func (p *FakePage) AccessibilityTree(ctx context.Context, idAttr string) (*axtree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idAttr == "" {
		idAttr = axtree.DefaultIDAttribute
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tree != nil {
		return axtree.Clone(p.tree), nil
	}

	body := findBody(p.doc.Root())
	if body == nil {
		return nil, errors.New("document has no body")
	}
	next := 0
	return build(body, idAttr, &next), nil
}

// Navigate 实现 browser.PooledPage
func (p *FakePage) Navigate(ctx context.Context, _ string) error { return ctx.Err() }

// Close 实现 browser.PooledPage
func (p *FakePage) Close() error {
	p.closed.Store(true)
	return nil
}

// Closed 报告是否已关闭
func (p *FakePage) Closed() bool { return p.closed.Load() }

func build(n *html.Node, idAttr string, next *int) *axtree.Node {
	id := strconv.Itoa(*next)
	*next++
	setAttr(n, idAttr, id)

	node := &axtree.Node{
		ID:          id,
		Name:        n.Data,
		Text:        dom.TextContent(n),
		BoundingBox: axtree.BoundingBox{Width: 100, Height: 20},
		IsVisible:   !hidden(n),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if dom.IsNonContent(c) {
				continue
			}
			node.Children = append(node.Children, build(c, idAttr, next))
		case html.TextNode:
			text := strings.TrimSpace(c.Data)
			if text == "" {
				continue
			}
			node.Children = append(node.Children, &axtree.Node{
				ID:          id,
				Name:        "#text",
				Text:        text,
				BoundingBox: axtree.BoundingBox{Width: 100, Height: 20},
				IsVisible:   node.IsVisible,
			})
		}
	}
	return node
}

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "hidden" {
			return true
		}
		if a.Key == "style" && strings.Contains(strings.ReplaceAll(a.Val, " ", ""), "display:none") {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func blankPNG(w, h int) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))
	return buf.Bytes()
}
