/*
orthoprune extracts orthologous subtrees from homolog gene trees that contain
paralogs. Every tree file in a directory is pruned with one policy and the
resulting trees are written next to each other in the output directory.

usage: orthoprune [flags] <tree_dir>

policies:

	1to1	keep only trees where every taxon appears once
	mi	cut out monophyletic in-group clades free of taxon repeats
	mo	root on a monophyletic out-group and prune paralogs top down
	rt	extract in-group clades and split them at every duplication

examples:

	orthoprune -p mo -g Beta,Spol -o pruned/ trees/ 2> log.txt
	orthoprune -p rt -c taxa.txt --align-dir aligns/ --mask --fasta -o pruned/ trees/
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jsdoublel/orthoprune/internal/ortho"
	"github.com/jsdoublel/orthoprune/internal/prep"
	"github.com/jsdoublel/orthoprune/internal/prune"
)

const (
	Version    = "v0.1.0"
	ErrMessage = "orthoprune encountered an error ::"
)

var ErrMissingPartition = errors.New("policy needs out-group taxa")

type args struct {
	treeDir      string
	pattern      string        // tree file glob
	outgroups    string        // comma separated out-group taxa
	taxonCodes   string        // IN/OUT taxon code file
	alignDir     string        // aligned fasta per tree
	alignExt     string        // aligned fasta extension
	summary      string        // summary csv file
	plot         string        // summary plot prefix
	nprocs       int           // number of parallel processes
	format       prep.Format   // tree file format
	orthoOpts    ortho.Options // pruning policy options
	mask         bool
	paraphyletic bool
	fasta        bool
	outDir       string
}

func setNProcs(nprocs int) int {
	maxProcs := runtime.GOMAXPROCS(0)
	switch {
	case nprocs > maxProcs:
		log.Printf("%d is greater than available processes (%d); limit set to %d\n", nprocs, maxProcs, maxProcs)
		return maxProcs
	case nprocs <= 0:
		log.Printf("number of processes not set; defaulting to %d processes\n", maxProcs)
		return maxProcs
	default:
		return nprocs
	}
}

// buildPartition reads the taxon code file, or failing that the out-group
// list. Returns nil when neither is given.
func buildPartition(outgroups, taxonCodes string) (*ortho.Partition, error) {
	switch {
	case taxonCodes != "" && outgroups != "":
		return nil, fmt.Errorf("%w, give either out-group taxa or a taxon code file, not both", ortho.ErrPartition)
	case taxonCodes != "":
		return prep.ReadTaxonCodes(taxonCodes)
	case outgroups != "":
		taxa := prep.ParseOutgroups(outgroups)
		if len(taxa) == 0 {
			return nil, fmt.Errorf("%w, empty out-group list \"%s\"", ErrMissingPartition, outgroups)
		}
		return ortho.OutgroupPartition(taxa), nil
	default:
		return nil, nil
	}
}

func newCommand() *cobra.Command {
	a := args{format: prep.Newick, orthoOpts: ortho.DefaultOptions()}
	cmd := &cobra.Command{
		Use:     "orthoprune [flags] <tree_dir>",
		Short:   "Prune paralogs from homolog gene trees",
		Version: Version,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, pos []string) error {
			a.treeDir = pos[0]
			p, err := buildPartition(a.outgroups, a.taxonCodes)
			if err != nil {
				return err
			}
			policy := a.orthoOpts.Policy
			if p == nil && (policy == ortho.MonophyleticOutgroup || policy == ortho.RootedTaxonomy) {
				return fmt.Errorf("%w, policy %s requires --outgroups or --taxon-codes", ErrMissingPartition, policy)
			}
			if (a.mask || a.fasta) && a.alignDir == "" {
				return errors.New("--mask and --fasta require --align-dir")
			}
			if a.orthoOpts.MinTaxa < 1 {
				return fmt.Errorf("--min-taxa must be positive, got %d", a.orthoOpts.MinTaxa)
			}
			a.orthoOpts.Partition = p
			a.nprocs = setNProcs(a.nprocs)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), a)
		},
	}
	flags := cmd.Flags()
	flags.VarP(&a.orthoOpts.Policy, "policy", "p", "pruning `policy` [ 1to1 | mi | mo | rt ]")
	flags.VarP(&a.format, "format", "f", "tree file `format` [ newick | nexus ]")
	flags.StringVar(&a.pattern, "pattern", "*."+prep.TreeExt, "glob matching tree files in <tree_dir>")
	flags.StringVarP(&a.outgroups, "outgroups", "g", "", "comma separated out-group taxa (mo)")
	flags.StringVarP(&a.taxonCodes, "taxon-codes", "c", "", "file of IN/OUT taxon codes (mo, rt)")
	flags.IntVarP(&a.orthoOpts.MinTaxa, "min-taxa", "m", a.orthoOpts.MinTaxa, "minimum number of taxa in an ortholog")
	flags.Float64VarP(&a.orthoOpts.MinBootstrap, "min-bootstrap", "b", 0, "minimum internal node support (1to1, off when 0)")
	flags.Float64VarP(&a.orthoOpts.AbsoluteTipCutoff, "absolute-tip-cutoff", "a", a.orthoOpts.AbsoluteTipCutoff, "anchor tips must be longer than this (mi)")
	flags.Float64VarP(&a.orthoOpts.RelativeTipCutoff, "relative-tip-cutoff", "r", a.orthoOpts.RelativeTipCutoff, "anchor tips must also beat this floor and 10x their siblings' mean (mi)")
	flags.StringVar(&a.alignDir, "align-dir", "", "directory of aligned fasta files named after the trees")
	flags.StringVar(&a.alignExt, "align-ext", "."+prep.FastaExt, "aligned fasta file extension")
	flags.BoolVar(&a.mask, "mask", false, "mask same-taxon sibling tips before pruning")
	flags.BoolVar(&a.paraphyletic, "paraphyletic", false, "also mask paraphyletic tips (with --mask)")
	flags.BoolVar(&a.fasta, "fasta", false, "write a fasta file for every ortholog")
	flags.StringVarP(&a.outDir, "out-dir", "o", ".", "output directory")
	flags.IntVarP(&a.nprocs, "nprocs", "n", 0, "number of parallel processes")
	flags.StringVar(&a.summary, "summary", "", "write per-tree summary csv to this file")
	flags.StringVar(&a.plot, "plot", "", "save a bar chart of outcomes to <prefix>.png")
	return cmd
}

func run(ctx context.Context, a args) error {
	jobs, err := prune.Jobs(a.treeDir, a.pattern)
	if err != nil {
		return err
	}
	if a.alignDir != "" {
		if missing := prune.AttachAlignments(jobs, a.alignDir, a.alignExt); missing > 0 {
			log.Printf("WARNING: %d of %d trees have no alignment in %s", missing, len(jobs), a.alignDir)
		}
	}
	if err := os.MkdirAll(a.outDir, 0o755); err != nil {
		return fmt.Errorf("%w, %s", prep.ErrWritingFile, err)
	}
	rows, err := prune.Run(ctx, jobs, prune.Options{
		Ortho:        a.orthoOpts,
		Format:       a.format,
		OutDir:       a.outDir,
		Mask:         a.mask,
		Paraphyletic: a.paraphyletic,
		WriteFasta:   a.fasta,
		NProcs:       a.nprocs,
	})
	if err != nil {
		return err
	}
	accepted := 0
	for _, row := range rows {
		if row.Rejection == "" {
			accepted++
		}
	}
	log.Printf("%d of %d trees produced orthologs", accepted, len(rows))
	if a.summary != "" {
		if err := writeSummary(a.summary, rows); err != nil {
			return err
		}
	}
	if a.plot != "" {
		return prep.WriteSummaryPlot(rows, a.plot)
	}
	return nil
}

func writeSummary(path string, rows []prep.SummaryRow) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w, %s", prep.ErrWritingFile, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w, %s", prep.ErrWritingFile, cerr)
		}
	}()
	return prep.WriteSummaryCSV(rows, file)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("orthoprune version %s", Version)
	cmd := newCommand()
	cmd.SilenceErrors = true
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("%s %s\n", color.RedString(ErrMessage), err)
	}
}
