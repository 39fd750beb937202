// Package containing the tree model used by orthoprune. Trees are stored as an
// arena: every node lives in one slice owned by the Tree, children are index
// lists, and the parent is a single index (NoNode for the root). Prune, kink
// repair and rerooting are index rewrites on that slice.
package graphs

import (
	"errors"
	"fmt"
	"iter"
)

var (
	ErrStructure    = errors.New("structural invariant violated")
	ErrRerootOnTip  = errors.New("cannot root on a tip")
	ErrUnknownLabel = errors.New("unknown tip label")
	ErrTooFewLabels = errors.New("at least two labels required")
)

// NodeID indexes a node in the arena of its Tree
type NodeID int

const NoNode NodeID = -1

// Order of a traversal
type Order int

const (
	PreOrder Order = iota
	PostOrder
)

type node struct {
	label     string
	length    float64
	hasLength bool // absent length is not the same as zero
	parent    NodeID
	children  []NodeID
}

// Tree exclusively owns its node graph. Pruned nodes stay in the arena but
// are unreachable from the root; Subtree and Clone compact them away.
type Tree struct {
	nodes []node
	root  NodeID
}

// New returns a tree containing a single unlabeled root node.
func New() *Tree {
	t := &Tree{}
	t.root = t.AddNode("")
	return t
}

// AddNode adds a detached node to the arena and returns its id.
func (t *Tree) AddNode(label string) NodeID {
	t.nodes = append(t.nodes, node{label: label, parent: NoNode})
	return NodeID(len(t.nodes) - 1)
}

// AddChild appends child to the children of parent. The child must be detached.
func (t *Tree) AddChild(parent, child NodeID) {
	if t.nodes[child].parent != NoNode {
		panic(fmt.Sprintf("node %d already has parent %d", child, t.nodes[child].parent))
	}
	t.nodes[parent].children = append(t.nodes[parent].children, child)
	t.nodes[child].parent = parent
}

func (t *Tree) removeChild(parent, child NodeID) {
	children := t.nodes[parent].children
	for i, c := range children {
		if c == child {
			t.nodes[parent].children = append(children[:i:i], children[i+1:]...)
			t.nodes[child].parent = NoNode
			return
		}
	}
	panic(fmt.Sprintf("node %d is not a child of %d", child, parent))
}

func (t *Tree) Root() NodeID { return t.root }

// SetRoot makes a detached node the root. The zero Tree is an empty arena
// that parsers fill with AddNode/AddChild before calling SetRoot.
func (t *Tree) SetRoot(n NodeID) {
	if t.nodes[n].parent != NoNode {
		panic(fmt.Sprintf("node %d is attached to %d and cannot be the root", n, t.nodes[n].parent))
	}
	t.root = n
}

func (t *Tree) Parent(n NodeID) NodeID { return t.nodes[n].parent }

// Children returns the ordered children of n. The slice belongs to the tree
// and must not be modified.
func (t *Tree) Children(n NodeID) []NodeID { return t.nodes[n].children }

func (t *Tree) NumChildren(n NodeID) int { return len(t.nodes[n].children) }

func (t *Tree) IsTip(n NodeID) bool { return len(t.nodes[n].children) == 0 }

func (t *Tree) Label(n NodeID) string { return t.nodes[n].label }

func (t *Tree) SetLabel(n NodeID, label string) { t.nodes[n].label = label }

// Length returns the branch length leading to n and whether one is set.
func (t *Tree) Length(n NodeID) (float64, bool) {
	return t.nodes[n].length, t.nodes[n].hasLength
}

func (t *Tree) SetLength(n NodeID, length float64) {
	t.nodes[n].length = length
	t.nodes[n].hasLength = true
}

func (t *Tree) ClearLength(n NodeID) {
	t.nodes[n].length = 0
	t.nodes[n].hasLength = false
}

// Siblings returns the other children of n's parent, in order.
func (t *Tree) Siblings(n NodeID) []NodeID {
	p := t.nodes[n].parent
	if p == NoNode {
		return nil
	}
	sibs := make([]NodeID, 0, len(t.nodes[p].children)-1)
	for _, c := range t.nodes[p].children {
		if c != n {
			sibs = append(sibs, c)
		}
	}
	return sibs
}

// Nodes lazily walks the subtree under n (n included) in the given order.
func (t *Tree) Nodes(n NodeID, order Order) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		t.walk(n, order, yield)
	}
}

func (t *Tree) walk(n NodeID, order Order, yield func(NodeID) bool) bool {
	if order == PreOrder && !yield(n) {
		return false
	}
	for _, c := range t.nodes[n].children {
		if !t.walk(c, order, yield) {
			return false
		}
	}
	if order == PostOrder && !yield(n) {
		return false
	}
	return true
}

// Leaves lazily yields the tips under n in traversal order.
func (t *Tree) Leaves(n NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for v := range t.Nodes(n, PreOrder) {
			if t.IsTip(v) && !yield(v) {
				return
			}
		}
	}
}

// NumTips counts tips reachable from the root.
func (t *Tree) NumTips() int {
	count := 0
	for range t.Leaves(t.root) {
		count++
	}
	return count
}

// Prune detaches n from its parent and returns the parent (NoNode for the
// root). Kinks left behind are not repaired; see RemoveKink.
func (t *Tree) Prune(n NodeID) NodeID {
	p := t.nodes[n].parent
	if p != NoNode {
		t.removeChild(p, n)
	}
	return p
}

// RemoveKink repairs n after a prune and returns the node now standing in its
// place. A non-root node with one child is spliced out, its length added to
// the child's. A root with one child hands the root to that child, which
// loses its branch length and, unless it is a tip, its label. A root with two
// children is unrooted by first rooting on a child that is not a tip. Any
// other node is returned unchanged.
func (t *Tree) RemoveKink(n NodeID) NodeID {
	children := t.nodes[n].children
	if n == t.root {
		switch len(children) {
		case 1:
			child := children[0]
			t.removeChild(n, child)
			t.ClearLength(child)
			if !t.IsTip(child) {
				t.nodes[child].label = ""
			}
			t.root = child
			return child
		case 2:
			newRoot := children[0]
			if t.IsTip(newRoot) {
				newRoot = children[1]
			}
			if t.IsTip(newRoot) {
				return n // two tips, nowhere to move the root
			}
			if err := t.Reroot(newRoot); err != nil {
				panic(err)
			}
		default:
			return n
		}
	}
	if len(t.nodes[n].children) != 1 {
		return n
	}
	child := t.nodes[n].children[0]
	parent := t.nodes[n].parent
	length, hasLength := t.nodes[n].length, t.nodes[n].hasLength
	if cl, ok := t.Length(child); ok {
		length += cl
		hasLength = true
	}
	t.removeChild(n, child)
	t.replaceChild(parent, n, child)
	t.nodes[child].length, t.nodes[child].hasLength = length, hasLength
	return child
}

// RemoveKinks splices out every single-child node reachable from the root,
// such as those read from "((A,B));", and returns how many were removed.
func (t *Tree) RemoveKinks() int {
	kinks := make([]NodeID, 0)
	for n := range t.Nodes(t.root, PostOrder) {
		if n != t.root && len(t.nodes[n].children) == 1 {
			kinks = append(kinks, n)
		}
	}
	for _, n := range kinks {
		t.RemoveKink(n)
	}
	removed := len(kinks)
	for len(t.nodes[t.root].children) == 1 {
		t.RemoveKink(t.root)
		removed++
	}
	return removed
}

// puts child in old's slot under parent, keeping child order
func (t *Tree) replaceChild(parent, old, child NodeID) {
	for i, c := range t.nodes[parent].children {
		if c == old {
			t.nodes[parent].children[i] = child
			t.nodes[child].parent = parent
			t.nodes[old].parent = NoNode
			return
		}
	}
	panic(fmt.Sprintf("node %d is not a child of %d", old, parent))
}

// Unroot turns a bifurcating root into a multifurcating one. Returns false if
// the root is not bifurcating or both root children are tips.
func (t *Tree) Unroot() bool {
	old := t.root
	if len(t.nodes[old].children) != 2 {
		return false
	}
	t.RemoveKink(old)
	return t.root != old
}

// Reroot makes newRoot the root by reversing every edge on the path from
// newRoot up to the current root. Each reversed edge keeps its length and
// label, which move to the node that is now the child on that edge.
func (t *Tree) Reroot(newRoot NodeID) error {
	if t.IsTip(newRoot) {
		return fmt.Errorf("%w (%s)", ErrRerootOnTip, t.nodes[newRoot].label)
	}
	if newRoot == t.root {
		return nil
	}
	path := []NodeID{newRoot}
	for n := t.nodes[newRoot].parent; n != NoNode; n = t.nodes[n].parent {
		path = append(path, n)
	}
	if path[len(path)-1] != t.root {
		return fmt.Errorf("%w, node %d is not attached to the root", ErrStructure, newRoot)
	}
	for i := len(path) - 1; i > 0; i-- {
		cp, n := path[i], path[i-1]
		t.removeChild(cp, n)
		t.AddChild(n, cp)
		t.nodes[cp].length, t.nodes[cp].hasLength = t.nodes[n].length, t.nodes[n].hasLength
		t.nodes[cp].label = t.nodes[n].label
	}
	t.ClearLength(newRoot)
	t.nodes[newRoot].label = ""
	t.root = newRoot
	return nil
}

// Clone returns a compacted deep copy of the tree.
func (t *Tree) Clone() *Tree {
	return t.Subtree(t.root)
}

// Subtree copies the subtree under n into a new tree rooted at the copy of n.
// The root keeps its branch length.
func (t *Tree) Subtree(n NodeID) *Tree {
	sub := &Tree{nodes: make([]node, 0, len(t.nodes))}
	var copyNode func(v, parent NodeID) NodeID
	copyNode = func(v, parent NodeID) NodeID {
		id := sub.AddNode(t.nodes[v].label)
		sub.nodes[id].length, sub.nodes[id].hasLength = t.nodes[v].length, t.nodes[v].hasLength
		if parent != NoNode {
			sub.AddChild(parent, id)
		}
		for _, c := range t.nodes[v].children {
			copyNode(c, id)
		}
		return id
	}
	sub.root = copyNode(n, NoNode)
	return sub
}

// Validate checks that parent and child references agree and that no node,
// the root included, has a single child.
func (t *Tree) Validate() error {
	if t.nodes[t.root].parent != NoNode {
		return fmt.Errorf("%w: root %d has parent %d", ErrStructure, t.root, t.nodes[t.root].parent)
	}
	seen := make(map[NodeID]bool)
	for n := range t.Nodes(t.root, PreOrder) {
		if seen[n] {
			return fmt.Errorf("%w: node %d reached twice", ErrStructure, n)
		}
		seen[n] = true
		for _, c := range t.nodes[n].children {
			if t.nodes[c].parent != n {
				return fmt.Errorf("%w: child %d of %d points to parent %d", ErrStructure, c, n, t.nodes[c].parent)
			}
		}
		if len(t.nodes[n].children) == 1 {
			return fmt.Errorf("%w: unrepaired kink at node %d", ErrStructure, n)
		}
	}
	return nil
}
