// Package tree builds and walks the category forest.
package tree

import "marketplace-storefront/internal/domain"

// DefaultMaxDepth bounds Walk when callers pass a non-positive depth.
const DefaultMaxDepth = 32

// Node is a category with its ordered children.
type Node struct {
	domain.Category
	Children []*Node `json:"children"`
}

// Build arranges categories into a forest in two passes: the first indexes
// every category by id, the second attaches each one to its parent when the
// parent is present in the index and otherwise makes it a root. Roots and
// children keep input order. Build never recurses, so it terminates even when
// the parent links form a cycle; nodes on such a cycle are unreachable from
// the returned roots.
func Build(categories []domain.Category) []*Node {
	nodes := make([]*Node, len(categories))
	index := make(map[string]*Node, len(categories))
	for i, c := range categories {
		n := &Node{Category: c, Children: []*Node{}}
		nodes[i] = n
		index[c.ID] = n
	}

	roots := make([]*Node, 0)
	for _, n := range nodes {
		if n.ParentID != nil {
			if parent, ok := index[*n.ParentID]; ok && parent != n {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// Walk visits the forest depth-first, calling fn with each node and its depth
// (roots are depth 0). A node is visited at most once and nothing deeper than
// maxDepth is visited, so malformed cyclic input cannot recurse forever.
// Returning false from fn skips the node's children. Walk returns the number
// of nodes visited.
func Walk(roots []*Node, maxDepth int, fn func(n *Node, depth int) bool) int {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	type frame struct {
		node  *Node
		depth int
	}
	visited := make(map[*Node]bool)
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}

	count := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil || visited[f.node] || f.depth > maxDepth {
			continue
		}
		visited[f.node] = true
		count++
		if !fn(f.node, f.depth) {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
	return count
}

// Path returns the breadcrumb from the root down to the category with the
// given id. It stops at the first repeated id, so cyclic parent links yield a
// truncated path instead of looping. A missing id yields nil.
func Path(categories []domain.Category, id string) []domain.Category {
	index := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		index[c.ID] = c
	}
	current, ok := index[id]
	if !ok {
		return nil
	}

	seen := map[string]bool{}
	var reversed []domain.Category
	for {
		if seen[current.ID] {
			break
		}
		seen[current.ID] = true
		reversed = append(reversed, current)
		if current.ParentID == nil {
			break
		}
		parent, ok := index[*current.ParentID]
		if !ok {
			break
		}
		current = parent
	}

	path := make([]domain.Category, len(reversed))
	for i, c := range reversed {
		path[len(reversed)-1-i] = c
	}
	return path
}

// Descendants returns id followed by the ids of every category below it.
// An id that is not in the forest yields just that id.
func Descendants(roots []*Node, id string) []string {
	var start *Node
	Walk(roots, 0, func(n *Node, _ int) bool {
		if n.ID == id {
			start = n
			return false
		}
		return start == nil
	})
	if start == nil {
		return []string{id}
	}

	ids := make([]string, 0, 1)
	Walk([]*Node{start}, 0, func(n *Node, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Count returns the number of nodes reachable from roots.
func Count(roots []*Node) int {
	return Walk(roots, 0, func(*Node, int) bool { return true })
}
