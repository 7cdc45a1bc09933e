package qtag

import (
	"strings"
)

// NoParent is the Parent index of a root node.
const NoParent = -1

// Node is one path segment of a tag. Nodes live in a Forest and refer to
// each other by index.
type Node struct {
	Label    string
	LocalID  uint32 // 1-based within the sibling group, 0 until enumerated
	Parent   int
	Children []int
}

// Forest is the tree form of a tag set. All nodes are stored in one slice;
// parent and child links are indexes into it.
type Forest struct {
	nodes []Node
	roots []int
	index map[siblingKey]int
}

type siblingKey struct {
	parent int
	label  string
}

// BuildForest splits every tag on '.' and inserts it into a new forest,
// reusing nodes for segments already seen at the same position. Tags are
// processed in the given order and siblings keep first-discovery order.
// Empty segments are skipped.
func BuildForest(tags []string) *Forest {
	f := &Forest{index: make(map[siblingKey]int)}
	for _, tag := range tags {
		f.insert(tag)
	}
	return f
}

func (f *Forest) insert(tag string) {
	segments := strings.Split(tag, ".")
	parent := NoParent
	for i, label := range segments {
		if label == "" {
			continue
		}
		if idx, ok := f.index[siblingKey{parent, label}]; ok {
			parent = idx
			continue
		}
		// Nothing below a new node exists yet, so the rest of the chain is
		// created without lookups.
		parent = f.addNode(parent, label)
		for _, rest := range segments[i+1:] {
			if rest == "" {
				continue
			}
			parent = f.addNode(parent, rest)
		}
		return
	}
}

func (f *Forest) addNode(parent int, label string) int {
	idx := len(f.nodes)
	f.nodes = append(f.nodes, Node{Label: label, Parent: parent})
	if parent == NoParent {
		f.roots = append(f.roots, idx)
	} else {
		f.nodes[parent].Children = append(f.nodes[parent].Children, idx)
	}
	f.index[siblingKey{parent, label}] = idx
	return idx
}

// Len returns the number of nodes.
func (f *Forest) Len() int { return len(f.nodes) }

// Roots returns the indexes of the top-level nodes in discovery order.
func (f *Forest) Roots() []int { return f.roots }

// Node returns the node at index i.
func (f *Forest) Node(i int) *Node { return &f.nodes[i] }

// Enumerate assigns LocalID 1..n to every sibling group in insertion order.
// Running it again on the same forest yields the same ids.
func (f *Forest) Enumerate() {
	f.enumerate(f.roots)
}

func (f *Forest) enumerate(group []int) {
	for i, idx := range group {
		f.nodes[idx].LocalID = uint32(i + 1)
		f.enumerate(f.nodes[idx].Children)
	}
}

// Walk visits every node in pre-order, parents before children and roots in
// order. The callback receives the node index and its depth (roots are 0).
func (f *Forest) Walk(fn func(idx, depth int)) {
	for _, root := range f.roots {
		f.walk(root, 0, fn)
	}
}

func (f *Forest) walk(idx, depth int, fn func(idx, depth int)) {
	fn(idx, depth)
	for _, child := range f.nodes[idx].Children {
		f.walk(child, depth+1, fn)
	}
}

// Depth returns the depth of node i; roots are at depth 0.
func (f *Forest) Depth(i int) int {
	d := 0
	for p := f.nodes[i].Parent; p != NoParent; p = f.nodes[p].Parent {
		d++
	}
	return d
}

// MaxDepth returns the number of levels in the forest.
func (f *Forest) MaxDepth() int {
	levels := 0
	f.Walk(func(_, depth int) {
		levels = max(levels, depth+1)
	})
	return levels
}

// Name rebuilds the dotted tag string of node i.
func (f *Forest) Name(i int) string {
	labels := getStringSlice(f.Depth(i) + 1)
	defer putStringSlice(labels)
	for j, p := len(labels)-1, i; j >= 0; j, p = j-1, f.nodes[p].Parent {
		labels[j] = f.nodes[p].Label
	}
	return strings.Join(labels, ".")
}

// IDPath appends the local ids from the root down to node i onto dst.
func (f *Forest) IDPath(i int, dst []uint64) []uint64 {
	start := len(dst)
	for p := i; p != NoParent; p = f.nodes[p].Parent {
		dst = append(dst, uint64(f.nodes[p].LocalID))
	}
	for l, r := start, len(dst)-1; l < r; l, r = l+1, r-1 {
		dst[l], dst[r] = dst[r], dst[l]
	}
	return dst
}
