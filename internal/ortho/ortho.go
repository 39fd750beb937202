// Package ortho decides which parts of a gene family tree are single-copy
// orthologs. Four policies are supported: OneToOne accepts only trees without
// taxon repeats, MO roots on a monophyletic out-group and prunes paralogs from
// the root down, MI does the same from a branch-length outlier anchor, and RT
// extracts rooted in-group clades and splits each into orthologs.
//
// Classify works on the tree it is given and returns copies as outputs. A tree
// that fails a policy requirement is not an error: the reason is reported in
// Result.Rejection and processing should carry on with the next tree.
package ortho

import (
	"errors"
	"fmt"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
)

var (
	ErrNotEnoughTaxa             = errors.New("not enough taxa")
	ErrDuplicatedTaxa            = errors.New("duplicated taxa")
	ErrLowSupport                = errors.New("support below threshold")
	ErrNoOutgroup                = errors.New("no out-group present")
	ErrOutgroupRepeats           = errors.New("outgroup contains taxon repeats")
	ErrOutgroupNonMonophyletic   = errors.New("out-group non-monophyletic")
	ErrNotEnoughTaxaAfterPruning = errors.New("not enough taxa after pruning")
	ErrNoIngroupClade            = errors.New("no in-group clade with enough taxa")
	ErrDuplicatedUnrooted        = errors.New("duplicated taxa in unrooted tree")

	rejections = []error{
		ErrNotEnoughTaxa, ErrDuplicatedTaxa, ErrLowSupport, ErrNoOutgroup, ErrOutgroupRepeats,
		ErrOutgroupNonMonophyletic, ErrNotEnoughTaxaAfterPruning, ErrNoIngroupClade, ErrDuplicatedUnrooted,
	}
)

type Policy int

const (
	OneToOne Policy = iota
	MonophyleticIngroup
	MonophyleticOutgroup
	RootedTaxonomy
)

var ParsePolicy = map[string]Policy{
	"1to1": OneToOne,
	"mi":   MonophyleticIngroup,
	"mo":   MonophyleticOutgroup,
	"rt":   RootedTaxonomy,
}

func (p *Policy) Set(s string) error {
	if policy, ok := ParsePolicy[s]; ok {
		*p = policy
		return nil
	}
	return fmt.Errorf("\"%s\" is not a valid pruning policy", s)
}

func (p Policy) String() string {
	for s, pl := range ParsePolicy {
		if pl == p {
			return s
		}
	}
	panic(fmt.Sprintf("policy (%d) does not exist", p))
}

func (p Policy) Type() string { return "policy" }

// Options for classification
type Options struct {
	Policy            Policy
	MinTaxa           int        // minimum distinct taxa in an output
	MinBootstrap      float64    // OneToOne support filter (off when <= 0)
	Partition         *Partition // required by MO and RT
	AbsoluteTipCutoff float64    // MI anchor branch length floor
	RelativeTipCutoff float64    // MI anchor floor for the comparison with siblings
}

// an MI anchor is more than this many times longer than its siblings' mean
const siblingFactor = 10

func DefaultOptions() Options {
	return Options{
		Policy:            OneToOne,
		MinTaxa:           2,
		AbsoluteTipCutoff: 0.02,
		RelativeTipCutoff: 0.02,
	}
}

type Kind int

const (
	Ortholog Kind = iota
	Rerooted
	Inclade
)

func (k Kind) String() string {
	switch k {
	case Ortholog:
		return "ortholog"
	case Rerooted:
		return "reroot"
	case Inclade:
		return "inclade"
	default:
		panic(fmt.Sprintf("kind (%d) does not exist", k))
	}
}

// Output is one tree produced by a policy, with the qualifier used to name it
// (e.g. "1to1ortho", "reroot", "inclade2.ortho1").
type Output struct {
	Tree      *gr.Tree
	Qualifier string
	Kind      Kind
}

// Result of classifying one tree. Outputs may be non-empty even when the tree
// is rejected (MO emits the rerooted tree before pruning).
type Result struct {
	Outputs   []Output
	Rejection error
}

func (r *Result) emit(t *gr.Tree, kind Kind, format string, v ...any) {
	r.Outputs = append(r.Outputs, Output{Tree: t, Qualifier: fmt.Sprintf(format, v...), Kind: kind})
}

func (r *Result) reject(err error, format string, v ...any) {
	r.Rejection = fmt.Errorf("%w, %s", err, fmt.Sprintf(format, v...))
}

// Orthologs returns only the ortholog outputs.
func (r Result) Orthologs() []Output {
	orthologs := make([]Output, 0, len(r.Outputs))
	for _, out := range r.Outputs {
		if out.Kind == Ortholog {
			orthologs = append(orthologs, out)
		}
	}
	return orthologs
}

// RejectionReason returns the short reason a tree was rejected, or "" if err
// is not a rejection.
func RejectionReason(err error) string {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return r.Error()
		}
	}
	return ""
}

// Classify applies the policy in opts to t. The tree is modified in place,
// starting with the repair of any single-child nodes. The returned error is
// only non-nil for an invalid configuration or taxon partition, which affects
// every tree of a batch.
func Classify(t *gr.Tree, opts Options) (Result, error) {
	t.RemoveKinks()
	switch opts.Policy {
	case OneToOne:
		return oneToOne(t, opts), nil
	case MonophyleticIngroup:
		return monophyleticIngroup(t, opts), nil
	case MonophyleticOutgroup, RootedTaxonomy:
		if opts.Partition == nil {
			return Result{}, fmt.Errorf("%w, policy %s requires in-group/out-group taxa", ErrPartition, opts.Policy)
		}
		if err := opts.Partition.Validate(t); err != nil {
			return Result{}, err
		}
		if opts.Policy == MonophyleticOutgroup {
			return monophyleticOutgroup(t, opts), nil
		}
		return rootedTaxonomy(t, opts), nil
	default:
		panic(fmt.Sprintf("policy (%d) does not exist", opts.Policy))
	}
}
