package gee

import (
	"fmt"
	"strings"
)

// node 是按路径段组织的前缀树节点，每个 HTTP 方法一棵树。
type node struct {
	pattern  string   // 完整路由，只在路由终点非空，例如 /api/v1/urls/:token
	parts    []string // pattern 拆好的段，查找时提取参数用
	part     string   // 本节点对应的段，例如 urls 或 :token
	children []*node
	isWild   bool // part 以 : 或 * 开头
}

func (n *node) matchChild(part string) *node {
	for _, child := range n.children {
		if child.part == part {
			return child
		}
	}
	return nil
}

// matchChildren 先静态后通配：/api 只在 api 节点没有终点时才落到 /:token。
func (n *node) matchChildren(part string) []*node {
	nodes := make([]*node, 0, len(n.children))
	for _, child := range n.children {
		if child.part == part {
			nodes = append(nodes, child)
		}
	}
	for _, child := range n.children {
		if child.isWild {
			nodes = append(nodes, child)
		}
	}
	return nodes
}

// insert panics on a second handler for the same pattern and on two differently named
// wildcards at one depth (/:token vs /:id), which would leave one of them unreachable.
func (n *node) insert(pattern string, parts []string, height int) {
	if len(parts) == height {
		if n.pattern != "" {
			panic(fmt.Sprintf("gee: route %s conflicts with %s", pattern, n.pattern))
		}
		n.pattern = pattern
		n.parts = parts
		return
	}
	part := parts[height]
	child := n.matchChild(part)
	if child == nil {
		wild := part[0] == ':' || part[0] == '*'
		if wild {
			for _, c := range n.children {
				if c.isWild {
					panic(fmt.Sprintf("gee: wildcard %s in %s conflicts with %s", part, pattern, c.part))
				}
			}
		}
		child = &node{part: part, isWild: wild}
		n.children = append(n.children, child)
	}
	child.insert(pattern, parts, height+1)
}

func (n *node) search(parts []string, height int) *node {
	if len(parts) == height || strings.HasPrefix(n.part, "*") {
		if n.pattern == "" {
			return nil
		}
		return n
	}

	part := parts[height]
	for _, child := range n.matchChildren(part) {
		if result := child.search(parts, height+1); result != nil {
			return result
		}
	}
	return nil
}

// travel 收集所有路由终点。
func (n *node) travel(list *[]*node) {
	if n.pattern != "" {
		*list = append(*list, n)
	}
	for _, child := range n.children {
		child.travel(list)
	}
}
