package graphs

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// TaxonIndex assigns a bit to every taxon name seen in a tree
type TaxonIndex struct {
	bits  map[string]uint
	names []string
}

// NewTaxonIndex indexes the taxa under the root of tre, in order of first
// appearance.
func NewTaxonIndex(tre *Tree) *TaxonIndex {
	idx := &TaxonIndex{bits: make(map[string]uint)}
	for _, name := range tre.FrontNames(tre.Root()) {
		if _, ok := idx.bits[name]; !ok {
			idx.bits[name] = uint(len(idx.names))
			idx.names = append(idx.names, name)
		}
	}
	return idx
}

func (idx *TaxonIndex) Len() int { return len(idx.names) }

// Bit returns the bit for a taxon, or false if it was never indexed.
func (idx *TaxonIndex) Bit(name string) (uint, bool) {
	b, ok := idx.bits[name]
	return b, ok
}

// Names returns the taxa whose bits are set in s, sorted.
func (idx *TaxonIndex) Names(s *bitset.BitSet) []string {
	result := make([]string, 0, s.Count())
	for i, ok := s.NextSet(0); ok; i, ok = s.NextSet(i + 1) {
		result = append(result, idx.names[i])
	}
	slices.Sort(result)
	return result
}

// TaxonSets calculates the set of taxa under every node reachable from the
// root (map key = node id). Tips whose taxon is not in idx are ignored.
func (t *Tree) TaxonSets(idx *TaxonIndex) map[NodeID]*bitset.BitSet {
	return t.taxonSetsFrom(t.root, idx)
}

func (t *Tree) taxonSetsFrom(n NodeID, idx *TaxonIndex) map[NodeID]*bitset.BitSet {
	sets := make(map[NodeID]*bitset.BitSet)
	for cur := range t.Nodes(n, PostOrder) {
		if t.IsTip(cur) {
			s := bitset.New(uint(idx.Len()))
			if b, ok := idx.Bit(TaxonName(t.nodes[cur].label)); ok {
				s.Set(b)
			}
			sets[cur] = s
			continue
		}
		children := t.nodes[cur].children
		s := sets[children[0]].Clone()
		for _, c := range children[1:] {
			s.InPlaceUnion(sets[c])
		}
		sets[cur] = s
	}
	return sets
}

// TaxonSet returns the set of taxa under n.
func (t *Tree) TaxonSet(n NodeID, idx *TaxonIndex) *bitset.BitSet {
	return t.taxonSetsFrom(n, idx)[n]
}
