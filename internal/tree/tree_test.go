package tree

import (
	"testing"

	"marketplace-storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func PtrTo[T any](v T) *T {
	return &v
}

func cat(id string, parent *string) domain.Category {
	return domain.Category{ID: id, Name: "Category " + id, ParentID: parent}
}

func TestBuild_ParentsChildrenAndOrphans(t *testing.T) {
	input := []domain.Category{
		cat("1", nil),
		cat("2", PtrTo("1")),
		cat("3", PtrTo("99")),
	}

	roots := Build(input)

	require.Len(t, roots, 2)
	assert.Equal(t, "1", roots[0].ID)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "2", roots[0].Children[0].ID)
	assert.Empty(t, roots[0].Children[0].Children)
	assert.Equal(t, "3", roots[1].ID)
	assert.NotNil(t, roots[1].Children, "children should be an empty slice, not nil")
	assert.Empty(t, roots[1].Children)
}

func TestBuild_ChildOrderFollowsInput(t *testing.T) {
	input := []domain.Category{
		cat("c", PtrTo("root")),
		cat("root", nil),
		cat("a", PtrTo("root")),
		cat("b", PtrTo("root")),
	}

	roots := Build(input)

	require.Len(t, roots, 1)
	var ids []string
	for _, c := range roots[0].Children {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestBuild_EveryNodeAppearsExactlyOnce(t *testing.T) {
	input := []domain.Category{
		cat("tiles", nil),
		cat("floor", PtrTo("tiles")),
		cat("wall", PtrTo("tiles")),
		cat("ceramic", PtrTo("floor")),
		cat("paint", nil),
		cat("lost", PtrTo("gone")),
		cat("emulsion", PtrTo("paint")),
	}

	roots := Build(input)

	seen := map[string]int{}
	visited := Walk(roots, 0, func(n *Node, _ int) bool {
		seen[n.ID]++
		return true
	})
	assert.Equal(t, len(input), visited)
	for _, c := range input {
		assert.Equal(t, 1, seen[c.ID], "category %s", c.ID)
	}
}

func TestBuild_SelfParentIsRoot(t *testing.T) {
	roots := Build([]domain.Category{cat("x", PtrTo("x"))})
	require.Len(t, roots, 1)
	assert.Equal(t, "x", roots[0].ID)
	assert.Empty(t, roots[0].Children)
}

func TestBuild_CycleTerminates(t *testing.T) {
	input := []domain.Category{
		cat("a", PtrTo("b")),
		cat("b", PtrTo("a")),
		cat("root", nil),
	}

	roots := Build(input)

	require.Len(t, roots, 1)
	assert.Equal(t, "root", roots[0].ID)
}

func TestWalk_GuardsAgainstCycles(t *testing.T) {
	a := &Node{Category: cat("a", nil)}
	b := &Node{Category: cat("b", PtrTo("a"))}
	a.Children = []*Node{b}
	b.Children = []*Node{a}

	var order []string
	n := Walk([]*Node{a}, 0, func(node *Node, _ int) bool {
		order = append(order, node.ID)
		return true
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestWalk_DepthLimit(t *testing.T) {
	input := []domain.Category{
		cat("0", nil),
		cat("1", PtrTo("0")),
		cat("2", PtrTo("1")),
		cat("3", PtrTo("2")),
	}
	roots := Build(input)

	var depths []int
	n := Walk(roots, 1, func(_ *Node, depth int) bool {
		depths = append(depths, depth)
		return true
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []int{0, 1}, depths)
}

func TestPath(t *testing.T) {
	input := []domain.Category{
		cat("tiles", nil),
		cat("floor", PtrTo("tiles")),
		cat("ceramic", PtrTo("floor")),
	}

	path := Path(input, "ceramic")
	require.Len(t, path, 3)
	assert.Equal(t, "tiles", path[0].ID)
	assert.Equal(t, "floor", path[1].ID)
	assert.Equal(t, "ceramic", path[2].ID)

	assert.Nil(t, Path(input, "missing"))
}

func TestPath_Cycle(t *testing.T) {
	input := []domain.Category{
		cat("a", PtrTo("b")),
		cat("b", PtrTo("a")),
	}
	path := Path(input, "a")
	assert.Len(t, path, 2)
}

func TestDescendants(t *testing.T) {
	roots := Build([]domain.Category{
		cat("tiles", nil),
		cat("floor", PtrTo("tiles")),
		cat("ceramic", PtrTo("floor")),
		cat("paint", nil),
	})

	assert.Equal(t, []string{"tiles", "floor", "ceramic"}, Descendants(roots, "tiles"))
	assert.Equal(t, []string{"floor", "ceramic"}, Descendants(roots, "floor"))
	assert.Equal(t, []string{"unknown"}, Descendants(roots, "unknown"))
	assert.Equal(t, 4, Count(roots))
}
