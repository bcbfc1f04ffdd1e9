// 测试用 HTML 页面样例。
package fixtures

import "strings"

// FruitList 是一个单一 ul 列表的页面
const FruitList = `<html><head><title>Fruit</title></head><body>
<nav><a href="/">Home</a></nav>
<ul id="fruits"><li>Apple</li><li>Banana</li><li>Cherry</li></ul>
<footer>© fruit inc</footer>
</body></html>`

// DataQAProducts 没有列表标签，只能靠共同祖先的属性定位
const DataQAProducts = `<html><body>
<header><span>Shop</span></header>
<section data-qa="product-list" class="grid">
  <div class="card"><span class="title">Red Lamp</span></div>
  <div class="card"><span class="title">Blue Chair</span></div>
  <div class="card"><span class="title">Green Desk</span></div>
</section>
<aside data-qa="sidebar"><div>Contact</div></aside>
</body></html>`

// DataQAHints 是 DataQAProducts 中各商品的文本
var DataQAHints = []string{"Red Lamp", "Blue Chair", "Green Desk"}

// NoList 没有任何可识别的列表
const NoList = `<html><body><main><h1>About</h1><p>We sell things.</p></main></body></html>`

// StaleList 与 FruitList 结构不同，用于验证过期标记
const StaleList = `<html><body><div class="content"><p>Gone</p></div></body></html>`

// TwoItemGroups 有两组条目且没有外层列表，结构检测无法给出结论
const TwoItemGroups = `<html><body>
<div class="left"><article>Alpha</article><article>Beta</article></div>
<div class="right"><article>Gamma</article></div>
</body></html>`

// PriceTable 用于提示搜索：一段很长的介绍加一个价格块
func PriceTable() string {
	return `<html><body>
<div id="intro"><p>` + Filler(5000) + `</p><p>Pricing: basic plan costs $10 per month</p></div>
</body></html>`
}

// Filler 返回 n 个字符的填充文本
func Filler(n int) string {
	return strings.Repeat("x", n)
}
