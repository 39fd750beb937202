// Package mask collapses redundant same-taxon tips so that each taxon keeps
// at most one sequence in a clade. The sequence kept is the one with more
// informative (non-gap, non-ambiguous) aligned characters.
package mask

import (
	"errors"
	"fmt"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
)

var ErrMissingScore = errors.New("no informativeness score for tip")

// trees with fewer tips are left alone
const minMaskTips = 4

// Informativeness maps a full tip label to its number of informative aligned
// characters.
type Informativeness map[string]int

// Mask runs monophyletic masking and, if paraphyletic is set, paraphyletic
// masking afterwards. Returns the total number of tips removed.
func Mask(t *gr.Tree, scores Informativeness, paraphyletic bool) (int, error) {
	masked, err := Monophyletic(t, scores)
	if err != nil || !paraphyletic {
		return masked, err
	}
	more, err := Paraphyletic(t, scores)
	return masked + more, err
}

// Monophyletic removes tips that have a sibling tip of the same taxon, keeping
// the more informative of the two, until no such pair is left or fewer than
// four tips remain.
func Monophyletic(t *gr.Tree, scores Informativeness) (int, error) {
	return maskLoop(t, scores, func(tip gr.NodeID) []gr.NodeID {
		return t.Siblings(tip)
	})
}

// Paraphyletic is like Monophyletic but compares a tip against the tip
// siblings of its parent. Tips directly under the root are skipped.
func Paraphyletic(t *gr.Tree, scores Informativeness) (int, error) {
	return maskLoop(t, scores, func(tip gr.NodeID) []gr.NodeID {
		parent := t.Parent(tip)
		if parent == gr.NoNode || parent == t.Root() {
			return nil
		}
		return t.Siblings(parent)
	})
}

// maskLoop prunes the less informative tip of the first same-taxon pair it
// finds, rescanning after every prune, until no pair is left or the tree gets
// too small. candidates gives the nodes a tip may be collapsed with.
func maskLoop(t *gr.Tree, scores Informativeness, candidates func(gr.NodeID) []gr.NodeID) (int, error) {
	t.RemoveKinks()
	masked := 0
	for t.NumTips() >= minMaskTips {
		pair, found := findPair(t, candidates)
		if !found {
			break
		}
		loser, err := pickLoser(t, scores, pair[0], pair[1])
		if err != nil {
			return masked, err
		}
		parent := t.Prune(loser)
		repair(t, parent)
		masked++
	}
	return masked, nil
}

func findPair(t *gr.Tree, candidates func(gr.NodeID) []gr.NodeID) ([2]gr.NodeID, bool) {
	for tip := range t.Leaves(t.Root()) {
		name := gr.TaxonName(t.Label(tip))
		for _, other := range candidates(tip) {
			if t.IsTip(other) && gr.TaxonName(t.Label(other)) == name {
				return [2]gr.NodeID{tip, other}, true
			}
		}
	}
	return [2]gr.NodeID{}, false
}

// A strictly more informative tip wins; on a tie the scanned tip (first in
// traversal order for siblings) is kept.
func pickLoser(t *gr.Tree, scores Informativeness, first, second gr.NodeID) (gr.NodeID, error) {
	a, ok := scores[t.Label(first)]
	if !ok {
		return gr.NoNode, fmt.Errorf("%w %s", ErrMissingScore, t.Label(first))
	}
	b, ok := scores[t.Label(second)]
	if !ok {
		return gr.NoNode, fmt.Errorf("%w %s", ErrMissingScore, t.Label(second))
	}
	if b > a {
		return first, nil
	}
	return second, nil
}

func repair(t *gr.Tree, n gr.NodeID) {
	if n == gr.NoNode {
		return
	}
	kids := t.NumChildren(n)
	if (n == t.Root() && kids <= 2) || (n != t.Root() && kids == 1) {
		t.RemoveKink(n)
	}
}
