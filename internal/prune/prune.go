// Package prune runs paralog pruning over a batch of gene family trees. Each
// tree is handled by one worker from reading to writing its outputs; only a
// bad taxon partition or a failed write stops the batch.
package prune

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evolbioinfo/goalign/align"
	"golang.org/x/sync/errgroup"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
	"github.com/jsdoublel/orthoprune/internal/mask"
	"github.com/jsdoublel/orthoprune/internal/ortho"
	"github.com/jsdoublel/orthoprune/internal/prep"
)

const MaskedQualifier = "mm"

var (
	ErrNoTrees       = errors.New("no tree files found")
	ErrDuplicateName = errors.New("tree files share a name")
)

// Job is one gene family: its tree and, optionally, its aligned fasta
type Job struct {
	Name      string
	TreeFile  string
	Alignment string
}

type Options struct {
	Ortho        ortho.Options
	Format       prep.Format
	OutDir       string
	Mask         bool // mask same-taxon tips before pruning (needs alignments)
	Paraphyletic bool // also mask paraphyletic tips
	WriteFasta   bool // write a fasta file per ortholog (needs alignments)
	NProcs       int
}

// Jobs lists the tree files in dir matching the glob pattern, sorted. A job
// is named after its file name without the last extension. Two files with
// the same name (e.g. c1.tre and c1.nex) are an error since their outputs
// would overwrite each other.
func Jobs(dir, pattern string) ([]Job, error) {
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q, %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s matching %q", ErrNoTrees, dir, pattern)
	}
	slices.Sort(paths)
	jobs := make([]Job, len(paths))
	seen := make(map[string]string, len(paths))
	for i, path := range paths {
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if other, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w %q: %s and %s", ErrDuplicateName, name, other, path)
		}
		seen[name] = path
		jobs[i] = Job{Name: name, TreeFile: path}
	}
	return jobs, nil
}

// AttachAlignments sets the alignment of every job that has a file
// "<dir>/<name><ext>". Returns the number of jobs without one.
func AttachAlignments(jobs []Job, dir, ext string) int {
	missing := 0
	for i := range jobs {
		path := filepath.Join(dir, jobs[i].Name+ext)
		if _, err := os.Stat(path); err != nil {
			missing++
			continue
		}
		jobs[i].Alignment = path
	}
	return missing
}

// Run prunes every job and returns one summary row per job, in job order.
func Run(ctx context.Context, jobs []Job, opts Options) ([]prep.SummaryRow, error) {
	log.Printf("reading %d trees", len(jobs))
	paths := make([]string, len(jobs))
	for i, job := range jobs {
		paths[i] = job.TreeFile
	}
	trees, readErrs := prep.ReadTreeFiles(paths, opts.Format)
	log.Printf("pruning with policy %s", opts.Ortho.Policy)
	rows := make([]prep.SummaryRow, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if opts.NProcs > 0 {
		g.SetLimit(opts.NProcs)
	}
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows[i] = prep.SummaryRow{Tree: job.Name, Policy: opts.Ortho.Policy.String()}
			if readErrs[i] != nil {
				log.Printf("%s: skipped, %s", job.Name, readErrs[i])
				rows[i].Rejection = "unreadable tree"
				return nil
			}
			return pruneOne(job, trees[i], opts, &rows[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func pruneOne(job Job, tre *gr.Tree, opts Options, row *prep.SummaryRow) error {
	row.Tips, row.Taxa = tre.CountTaxa(tre.Root())
	var al align.Alignment
	if job.Alignment != "" && (opts.Mask || opts.WriteFasta) {
		var err error
		if al, err = prep.ReadAlignment(job.Alignment); err != nil {
			log.Printf("%s: skipped, %s", job.Name, err)
			row.Rejection = "unreadable alignment"
			return nil
		}
	}
	if opts.Mask && al != nil {
		masked, err := mask.Mask(tre, prep.Informativeness(al), opts.Paraphyletic)
		if err != nil {
			log.Printf("%s: skipped, %s", job.Name, err)
			row.Rejection = "masking failed"
			return nil
		}
		row.Masked = masked
		if err := prep.WriteTree(prep.OutputPath(opts.OutDir, job.Name, MaskedQualifier, prep.TreeExt), tre); err != nil {
			return err
		}
	}
	res, err := ortho.Classify(tre, opts.Ortho)
	if err != nil {
		return fmt.Errorf("%s: %w", job.Name, err)
	}
	if _, err := prep.WriteOutputs(opts.OutDir, job.Name, res.Outputs); err != nil {
		return err
	}
	orthologs := res.Orthologs()
	row.Outputs = len(orthologs)
	if opts.WriteFasta && al != nil {
		for _, out := range orthologs {
			if err := writeFasta(opts.OutDir, job.Name, out, al, opts.Ortho.MinTaxa); err != nil {
				return err
			}
		}
	}
	if res.Rejection != nil {
		row.Rejection = ortho.RejectionReason(res.Rejection)
		log.Printf("%s: %d tips, %d taxa, rejected, %s", job.Name, row.Tips, row.Taxa, res.Rejection)
		return nil
	}
	log.Printf("%s: %d tips, %d taxa, %d orthologs", job.Name, row.Tips, row.Taxa, row.Outputs)
	return nil
}

func writeFasta(dir, name string, out ortho.Output, al align.Alignment, minTaxa int) (err error) {
	path := prep.OutputPath(dir, name, out.Qualifier, prep.FastaExt)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w, %s", prep.ErrWritingFile, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w, %s", prep.ErrWritingFile, cerr)
		}
	}()
	written, err := prep.WriteOrthologFasta(file, out.Tree, al, minTaxa)
	if err != nil {
		return err
	}
	if !written {
		return os.Remove(path)
	}
	return nil
}
