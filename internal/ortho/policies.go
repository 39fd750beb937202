package ortho

import (
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
)

func oneToOne(t *gr.Tree, opts Options) Result {
	var res Result
	tips, taxa := t.CountTaxa(t.Root())
	switch {
	case taxa < opts.MinTaxa:
		res.reject(ErrNotEnoughTaxa, "%d taxa, need %d", taxa, opts.MinTaxa)
	case tips != taxa:
		res.reject(ErrDuplicatedTaxa, "%d tips for %d taxa, repeated %s", tips, taxa, strings.Join(repeatedTaxa(t), ","))
	case opts.MinBootstrap > 0 && !passSupport(t, opts.MinBootstrap):
		res.reject(ErrLowSupport, "an internal node has support below %g", opts.MinBootstrap)
	default:
		res.emit(t.Clone(), Ortholog, "1to1ortho")
	}
	return res
}

// passSupport reports whether every numeric label on an internal, non-root
// node is at least min. Other labels are ignored.
func passSupport(t *gr.Tree, min float64) bool {
	for n := range t.Nodes(t.Root(), gr.PreOrder) {
		if n == t.Root() || t.IsTip(n) {
			continue
		}
		support, err := strconv.ParseFloat(t.Label(n), 64)
		if err == nil && support < min {
			return false
		}
	}
	return true
}

func monophyleticOutgroup(t *gr.Tree, opts Options) Result {
	var res Result
	tips, taxa := t.CountTaxa(t.Root())
	if taxa < opts.MinTaxa {
		res.reject(ErrNotEnoughTaxa, "%d taxa, need %d", taxa, opts.MinTaxa)
		return res
	}
	if tips == taxa {
		res.emit(t.Clone(), Ortholog, "1to1ortho")
		return res
	}
	outgroups := make([]string, 0)
	for _, name := range t.FrontNames(t.Root()) {
		if opts.Partition.isOut(name) {
			outgroups = append(outgroups, name)
		}
	}
	if len(outgroups) == 0 {
		res.reject(ErrNoOutgroup, "duplicated taxa %s in unrooted tree", strings.Join(repeatedTaxa(t), ","))
		return res
	}
	if repeatFreeScore(outgroups) < 0 {
		repeated := slices.DeleteFunc(repeatedTaxa(t), func(name string) bool { return !opts.Partition.isOut(name) })
		res.reject(ErrOutgroupRepeats, "%d out-group tips, repeated %s", len(outgroups), strings.Join(repeated, ","))
		return res
	}
	orthoFromOutgroup(t, opts.MinTaxa, opts.Partition, &res)
	return res
}

// orthoFromOutgroup roots t on the out-group, emits the rerooted tree, and
// prunes paralogs from the root down.
func orthoFromOutgroup(t *gr.Tree, min int, p *Partition, res *Result) {
	if t.NumChildren(t.Root()) == 2 {
		t.Unroot()
	}
	if !rerootOnOutgroup(t, p) {
		res.reject(ErrOutgroupNonMonophyletic, "no edge separates in-group from out-group")
		return
	}
	res.emit(t.Clone(), Rerooted, "reroot")
	discardRepeats(t)
	if _, taxa := t.CountTaxa(t.Root()); taxa < min {
		res.reject(ErrNotEnoughTaxaAfterPruning, "%d taxa, need %d", taxa, min)
		return
	}
	res.emit(t.Clone(), Ortholog, "ortho")
}

// A single out-group tip roots on its parent. Otherwise the first node (root
// excluded, preorder) whose subtree is all out-group with an all in-group
// remainder becomes the root; with the sides swapped, its parent does.
func rerootOnOutgroup(t *gr.Tree, p *Partition) bool {
	outTips := make([]gr.NodeID, 0)
	for leaf := range t.Leaves(t.Root()) {
		if p.isOut(gr.TaxonName(t.Label(leaf))) {
			outTips = append(outTips, leaf)
		}
	}
	if len(outTips) == 1 {
		return reroot(t, t.Parent(outTips[0])) == nil
	}
	type counts struct{ in, out int }
	front := make(map[gr.NodeID]counts)
	for n := range t.Nodes(t.Root(), gr.PostOrder) {
		var c counts
		if t.IsTip(n) {
			if p.isOut(gr.TaxonName(t.Label(n))) {
				c.out = 1
			} else {
				c.in = 1
			}
		}
		for _, child := range t.Children(n) {
			c.in += front[child].in
			c.out += front[child].out
		}
		front[n] = c
	}
	total := front[t.Root()]
	for n := range t.Nodes(t.Root(), gr.PreOrder) {
		if n == t.Root() {
			continue
		}
		f := front[n]
		backIn, backOut := total.in-f.in, total.out-f.out
		switch {
		case f.in == 0 && f.out > 0 && backIn > 0 && backOut == 0:
			return reroot(t, n) == nil
		case f.in > 0 && f.out == 0 && backIn == 0 && backOut > 0:
			return reroot(t, t.Parent(n)) == nil
		}
	}
	return false
}

func monophyleticIngroup(t *gr.Tree, opts Options) Result {
	var res Result
	tips, taxa := t.CountTaxa(t.Root())
	if taxa < opts.MinTaxa {
		res.reject(ErrNotEnoughTaxa, "%d taxa, need %d", taxa, opts.MinTaxa)
		return res
	}
	if tips == taxa {
		res.emit(t.Clone(), Ortholog, "1to1ortho")
		return res
	}
	if anchor, ok := findAnchor(t, opts.AbsoluteTipCutoff, opts.RelativeTipCutoff); ok {
		p := OutgroupPartition([]string{gr.TaxonName(t.Label(anchor))})
		orthoFromOutgroup(t, opts.MinTaxa, p, &res)
		return res
	}
	for i, clade := range extractClades(t, opts.MinTaxa, repeatFreeScore) {
		clade.Unroot()
		res.emit(clade, Ortholog, "ortho%d", i+1)
	}
	if len(res.Outputs) == 0 {
		res.reject(ErrNoIngroupClade, "no repeat-free clade with %d taxa", opts.MinTaxa)
	}
	return res
}

// findAnchor returns the longest tip whose branch is longer than both abs and
// rel, and more than siblingFactor times the mean length of its siblings'
// branches (absent lengths count as 0). Tips of taxa that occur more than once
// are never anchors.
func findAnchor(t *gr.Tree, abs, rel float64) (gr.NodeID, bool) {
	counts := make(map[string]int)
	for _, name := range t.FrontNames(t.Root()) {
		counts[name]++
	}
	anchor, longest := gr.NoNode, 0.0
	for leaf := range t.Leaves(t.Root()) {
		length, ok := t.Length(leaf)
		if !ok || length <= abs || counts[gr.TaxonName(t.Label(leaf))] != 1 {
			continue
		}
		sibs := t.Siblings(leaf)
		if len(sibs) == 0 {
			continue
		}
		lengths := make([]float64, len(sibs))
		for i, s := range sibs {
			lengths[i], _ = t.Length(s)
		}
		if length > rel && length > siblingFactor*stat.Mean(lengths, nil) && length > longest {
			anchor, longest = leaf, length
		}
	}
	return anchor, anchor != gr.NoNode
}

func rootedTaxonomy(t *gr.Tree, opts Options) Result {
	var res Result
	ingroups, outgroups := make(map[string]bool), 0
	for _, name := range t.FrontNames(t.Root()) {
		if opts.Partition.isOut(name) {
			outgroups++
		} else {
			ingroups[name] = true
		}
	}
	if len(ingroups) < opts.MinTaxa {
		res.reject(ErrNotEnoughTaxa, "%d in-group taxa, need %d", len(ingroups), opts.MinTaxa)
		return res
	}
	if outgroups == 0 {
		if tips, taxa := t.CountTaxa(t.Root()); tips != taxa {
			res.reject(ErrDuplicatedUnrooted, "%d tips for %d taxa, repeated %s", tips, taxa, strings.Join(repeatedTaxa(t), ","))
			return res
		}
		res.emit(t.Clone(), Ortholog, "unrooted-ortho")
		return res
	}
	found := 0
	for i, inclade := range extractClades(t, opts.MinTaxa, ingroupScore(opts.Partition)) {
		res.emit(inclade, Inclade, "inclade%d", i+1)
		j := 0
		for _, ortho := range splitRepeats(inclade.Clone()) {
			if ortho.NumTips() >= opts.MinTaxa {
				j++
				res.emit(ortho, Ortholog, "inclade%d.ortho%d", i+1, j)
			}
		}
		found += j
	}
	if found == 0 {
		res.reject(ErrNoIngroupClade, "no in-group clade with %d taxa", opts.MinTaxa)
	}
	return res
}
