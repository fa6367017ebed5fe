package rptree

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/hupe1980/mrpt/distance"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoChild marks the child slots of a leaf.
const NoChild int32 = -1

// Node is one arena slot. Leaves have Left == Right == NoChild.
type Node struct {
	Projection []float64
	Threshold  float64
	Left       int32
	Right      int32
	Members    []uint32
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool {
	return n.Left == NoChild
}

// Tree is an immutable random projection tree.
type Tree struct {
	Nodes []Node
}

// Leaf routes query from the root to a leaf and returns the leaf's members.
func (t *Tree) Leaf(query []float64) []uint32 {
	if len(t.Nodes) == 0 {
		return nil
	}
	i := int32(0)
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Members
		}
		if distance.Dot(query, n.Projection) < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int32) int
	walk = func(i int32) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// Leaves returns the member lists of every leaf in arena order.
func (t *Tree) Leaves() [][]uint32 {
	var out [][]uint32
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			out = append(out, t.Nodes[i].Members)
		}
	}
	return out
}

type builder struct {
	ctx     context.Context
	vectors [][]float64
	depth   int
	normal  distuv.Normal
	nodes   []Node
	proj    []float64
}

// BuildTree builds one tree over vectors (indexed by ordinal) using src for
// every random draw.
func BuildTree(ctx context.Context, vectors [][]float64, depth int, src rand.Source) (*Tree, error) {
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}
	if depth < 1 {
		return nil, ErrInvalidParams
	}
	b := &builder{
		ctx:     ctx,
		vectors: vectors,
		depth:   depth,
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		nodes:   make([]Node, 0, 2<<min(depth, 16)),
		proj:    make([]float64, len(vectors)),
	}
	members := make([]uint32, len(vectors))
	for i := range members {
		members[i] = uint32(i)
	}
	if _, err := b.build(members, 0); err != nil {
		return nil, err
	}
	return &Tree{Nodes: slices.Clip(b.nodes)}, nil
}

func (b *builder) leaf(members []uint32) int32 {
	b.nodes = append(b.nodes, Node{Left: NoChild, Right: NoChild, Members: members})
	return int32(len(b.nodes) - 1)
}

func (b *builder) build(members []uint32, level int) (int32, error) {
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}
	if level == b.depth || len(members) <= 1 {
		return b.leaf(members), nil
	}

	dim := len(b.vectors[members[0]])
	direction := make([]float64, dim)
	for i := range direction {
		direction[i] = b.normal.Rand()
	}

	proj := b.proj[:len(members)]
	for i, m := range members {
		proj[i] = distance.Dot(b.vectors[m], direction)
	}
	threshold := median(proj)

	var left, right []uint32
	for i, m := range members {
		if proj[i] < threshold {
			left = append(left, m)
		} else {
			right = append(right, m)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(members), nil
	}

	self := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{Projection: direction, Threshold: threshold})

	l, err := b.build(left, level+1)
	if err != nil {
		return 0, err
	}
	r, err := b.build(right, level+1)
	if err != nil {
		return 0, err
	}
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self, nil
}

// median returns the middle value of xs, averaging the two middle values for
// even lengths. xs is not modified.
func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
