package ortho

import (
	"errors"
	"fmt"
	"slices"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
)

var ErrPartition = errors.New("invalid taxon partition")

// PartitionError names the taxon that makes a partition unusable. It stops a
// whole batch, since the partition is shared by every tree.
type PartitionError struct {
	Taxon  string
	Reason string
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("%s, taxon %s %s", ErrPartition, e.Taxon, e.Reason)
}

func (e *PartitionError) Unwrap() error { return ErrPartition }

type Group int

const (
	Ingroup Group = iota
	Outgroup
)

func (g Group) String() string {
	if g == Outgroup {
		return "OUT"
	}
	return "IN"
}

// Partition classifies taxa as in-group or out-group
type Partition struct {
	groups     map[string]Group
	implicitIn bool // taxa not listed are in-group
}

// NewPartition builds a total partition from explicit in-group and out-group
// lists. A taxon listed in both is an error.
func NewPartition(in, out []string) (*Partition, error) {
	p := &Partition{groups: make(map[string]Group, len(in)+len(out))}
	for _, taxon := range in {
		p.groups[taxon] = Ingroup
	}
	for _, taxon := range out {
		if g, ok := p.groups[taxon]; ok && g == Ingroup {
			return nil, &PartitionError{Taxon: taxon, Reason: "is in both in-group and out-group"}
		}
		p.groups[taxon] = Outgroup
	}
	return p, nil
}

// OutgroupPartition treats every taxon not in out as in-group.
func OutgroupPartition(out []string) *Partition {
	p := &Partition{groups: make(map[string]Group, len(out)), implicitIn: true}
	for _, taxon := range out {
		p.groups[taxon] = Outgroup
	}
	return p
}

func (p *Partition) Group(taxon string) (Group, error) {
	if g, ok := p.groups[taxon]; ok {
		return g, nil
	}
	if p.implicitIn {
		return Ingroup, nil
	}
	return Ingroup, &PartitionError{Taxon: taxon, Reason: "is in neither in-group nor out-group"}
}

// only valid once the tree has been validated
func (p *Partition) isOut(taxon string) bool {
	return p.groups[taxon] == Outgroup
}

// Validate checks that every tip taxon of t belongs to a group.
func (p *Partition) Validate(t *gr.Tree) error {
	for _, name := range t.FrontNames(t.Root()) {
		if _, err := p.Group(name); err != nil {
			return err
		}
	}
	return nil
}

// Taxa returns the listed taxa of group g, sorted.
func (p *Partition) Taxa(g Group) []string {
	taxa := make([]string, 0)
	for taxon, group := range p.groups {
		if group == g {
			taxa = append(taxa, taxon)
		}
	}
	slices.Sort(taxa)
	return taxa
}
