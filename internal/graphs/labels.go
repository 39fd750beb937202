package graphs

import (
	"fmt"
	"strings"
)

// Separates the taxon id from the sequence id in a tip label
const TaxonDelimiter = "@"

// TaxonName returns the part of a tip label before the first delimiter.
func TaxonName(label string) string {
	name, _, _ := strings.Cut(label, TaxonDelimiter)
	return name
}

// Tip labels under n, in traversal order (duplicates kept)
func (t *Tree) FrontLabels(n NodeID) []string {
	labels := make([]string, 0)
	for leaf := range t.Leaves(n) {
		labels = append(labels, t.nodes[leaf].label)
	}
	return labels
}

// Taxon names under n, in traversal order (duplicates kept)
func (t *Tree) FrontNames(n NodeID) []string {
	return names(t.FrontLabels(n))
}

// BackLabels returns the tip labels of the tree outside the subtree under n,
// in traversal order. Labels are assumed to be unique.
func (t *Tree) BackLabels(n NodeID) []string {
	front := make(map[string]bool)
	for _, l := range t.FrontLabels(n) {
		front[l] = true
	}
	back := make([]string, 0)
	for _, l := range t.FrontLabels(t.root) {
		if !front[l] {
			back = append(back, l)
		}
	}
	return back
}

func (t *Tree) BackNames(n NodeID) []string {
	return names(t.BackLabels(n))
}

func names(labels []string) []string {
	result := make([]string, len(labels))
	for i, l := range labels {
		result[i] = TaxonName(l)
	}
	return result
}

// CountTaxa returns the number of tips and of distinct taxa under n.
func (t *Tree) CountTaxa(n NodeID) (tips, taxa int) {
	seen := make(map[string]bool)
	for leaf := range t.Leaves(n) {
		tips++
		seen[TaxonName(t.nodes[leaf].label)] = true
	}
	return tips, len(seen)
}

// FindTip returns the first tip under the root carrying label.
func (t *Tree) FindTip(label string) (NodeID, error) {
	for leaf := range t.Leaves(t.root) {
		if t.nodes[leaf].label == label {
			return leaf, nil
		}
	}
	return NoNode, fmt.Errorf("%w %q", ErrUnknownLabel, label)
}

// MRCA returns the most recent common ancestor of the tips with the given
// labels. The root path of the first tip is computed once, then each other
// tip walks up until it meets that path; the meeting points are folded
// pairwise.
func (t *Tree) MRCA(labels []string) (NodeID, error) {
	if len(labels) < 2 {
		return NoNode, fmt.Errorf("%w, got %d", ErrTooFewLabels, len(labels))
	}
	tips := make([]NodeID, len(labels))
	for i, l := range labels {
		tip, err := t.FindTip(l)
		if err != nil {
			return NoNode, err
		}
		tips[i] = tip
	}
	mrca := tips[0]
	for _, tip := range tips[1:] {
		mrca = t.pairMRCA(mrca, tip)
	}
	return mrca, nil
}

func (t *Tree) pairMRCA(a, b NodeID) NodeID {
	path := make(map[NodeID]bool)
	for n := a; n != NoNode; n = t.nodes[n].parent {
		path[n] = true
	}
	for n := b; n != NoNode; n = t.nodes[n].parent {
		if path[n] {
			return n
		}
	}
	panic(fmt.Sprintf("nodes %d and %d do not share a root", a, b))
}
