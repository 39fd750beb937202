package ortho

import (
	"github.com/bits-and-blooms/bitset"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
)

// cutRepeat walks t from the root down and stops at the first node with two
// children sharing a taxon. The child with fewer distinct taxa (the earlier
// one on a tie) is detached and returned as its own tree, and a kink left at
// the node is repaired. Returns false if t has no taxon repeats.
func cutRepeat(t *gr.Tree) (*gr.Tree, bool) {
	sets := t.TaxonSets(gr.NewTaxonIndex(t))
	for n := range t.Nodes(t.Root(), gr.PreOrder) {
		children := t.Children(n)
		for i := range children {
			for j := i + 1; j < len(children); j++ {
				a, b := sets[children[i]], sets[children[j]]
				if a.IntersectionCardinality(b) == 0 {
					continue
				}
				cut := children[i]
				if a.Count() > b.Count() {
					cut = children[j]
				}
				piece := t.Subtree(cut)
				piece.ClearLength(piece.Root())
				t.Prune(cut)
				if t.NumChildren(n) == 1 {
					t.RemoveKink(n)
				}
				return piece, true
			}
		}
	}
	return nil, false
}

// repeatedTaxa names the taxa carried by more than one tip of t, sorted.
func repeatedTaxa(t *gr.Tree) []string {
	idx := gr.NewTaxonIndex(t)
	seen, repeated := bitset.New(uint(idx.Len())), bitset.New(uint(idx.Len()))
	for leaf := range t.Leaves(t.Root()) {
		set := t.TaxonSet(leaf, idx)
		repeated.InPlaceUnion(seen.Intersection(set))
		seen.InPlaceUnion(set)
	}
	return idx.Names(repeated)
}

// discardRepeats prunes paralogs from t until no taxon repeats. Cut subtrees
// are dropped.
func discardRepeats(t *gr.Tree) {
	for {
		if _, ok := cutRepeat(t); !ok {
			return
		}
	}
}

// splitRepeats breaks t into repeat-free subtrees, keeping both sides of
// every cut.
func splitRepeats(t *gr.Tree) []*gr.Tree {
	queue := []*gr.Tree{t}
	clean := make([]*gr.Tree, 0)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if piece, ok := cutRepeat(cur); ok {
			queue = append(queue, cur, piece)
			continue
		}
		clean = append(clean, cur)
	}
	return clean
}

// reroot roots t on n and splices out the old root if that leaves it with a
// single child.
func reroot(t *gr.Tree, n gr.NodeID) error {
	old := t.Root()
	if err := t.Reroot(n); err != nil {
		return err
	}
	if old != n && t.NumChildren(old) == 1 {
		t.RemoveKink(old)
	}
	return nil
}

// scores the tips on one side of an edge, negative disqualifies
type cladeScore func(labels []string) int

// extractClades repeatedly cuts the best scoring side of any edge out of t,
// while the best score is at least min. A front side is the subtree under a
// node. A back side is everything else, rooted where the cut was made, after
// which the search continues in the front side only.
func extractClades(t *gr.Tree, min int, score cladeScore) []*gr.Tree {
	clades := make([]*gr.Tree, 0)
	for {
		best, bestNode, front := -1, gr.NoNode, true
		for n := range t.Nodes(t.Root(), gr.PreOrder) {
			if s := score(t.FrontLabels(n)); s > best {
				best, bestNode, front = s, n, true
			}
			if n == t.Root() {
				continue
			}
			if s := score(t.BackLabels(n)); s > best {
				best, bestNode, front = s, n, false
			}
		}
		if bestNode == gr.NoNode || best < min {
			return clades
		}
		if bestNode == t.Root() {
			return append(clades, t.Clone())
		}
		parent := t.Parent(bestNode)
		if front {
			clade := t.Subtree(bestNode)
			clade.ClearLength(clade.Root())
			clades = append(clades, clade)
			t.Prune(bestNode)
			if t.NumChildren(parent) == 1 {
				t.RemoveKink(parent)
			}
			continue
		}
		rest := t.Subtree(bestNode)
		rest.ClearLength(rest.Root())
		t.Prune(bestNode)
		if parent == t.Root() {
			if t.NumChildren(parent) == 1 {
				t.RemoveKink(parent)
			}
		} else if err := reroot(t, parent); err != nil {
			panic(err) // parent still has a child, so it is not a tip
		}
		clades = append(clades, t.Clone())
		t = rest
	}
}

// number of distinct taxa, or -1 if any taxon repeats
func repeatFreeScore(labels []string) int {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		name := gr.TaxonName(l)
		if seen[name] {
			return -1
		}
		seen[name] = true
	}
	return len(seen)
}

// number of distinct in-group taxa, or -1 if any out-group taxon is present
func ingroupScore(p *Partition) cladeScore {
	return func(labels []string) int {
		seen := make(map[string]bool, len(labels))
		for _, l := range labels {
			name := gr.TaxonName(l)
			if p.isOut(name) {
				return -1
			}
			seen[name] = true
		}
		return len(seen)
	}
}
