// 无障碍树样例。
package fixtures

import (
	"strconv"
	"strings"

	"github.com/BaSui01/truffle/axtree"
)

func box() axtree.BoundingBox { return axtree.BoundingBox{Width: 100, Height: 20} }

// LongParentTree 父节点文本超过 5000 字符，唯一子节点是价格块
func LongParentTree(childText string) *axtree.Node {
	return &axtree.Node{
		ID:          "parent",
		Text:        strings.Repeat("a", 5000) + childText,
		BoundingBox: box(),
		IsVisible:   true,
		Children: []*axtree.Node{
			{ID: "filler", Text: strings.Repeat("a", 5000), BoundingBox: box(), IsVisible: true},
			{ID: "child", Text: childText, BoundingBox: box(), IsVisible: true},
		},
	}
}

// WideTree 根节点文本过长，下挂 n 个可判定的叶子
func WideTree(n int) *axtree.Node {
	root := &axtree.Node{ID: "root", Text: strings.Repeat("r", 3000), BoundingBox: box(), IsVisible: true}
	for i := 0; i < n; i++ {
		root.Children = append(root.Children, &axtree.Node{
			ID:          "leaf-" + strconv.Itoa(i),
			Text:        "leaf " + strconv.Itoa(i),
			BoundingBox: box(),
			IsVisible:   true,
		})
	}
	return root
}
