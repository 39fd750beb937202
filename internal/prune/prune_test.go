package prune

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsdoublel/orthoprune/internal/ortho"
	"github.com/jsdoublel/orthoprune/internal/prep"
)

func testJobs(t *testing.T) []Job {
	jobs, err := Jobs("testdata/trees", "*.tre")
	require.NoError(t, err)
	return jobs
}

func moOptions(outDir string) Options {
	orthoOpts := ortho.DefaultOptions()
	orthoOpts.Policy = ortho.MonophyleticOutgroup
	orthoOpts.Partition = ortho.OutgroupPartition([]string{"Z"})
	return Options{Ortho: orthoOpts, Format: prep.Newick, OutDir: outDir, NProcs: 2}
}

func readOutput(t *testing.T, dir, name string) string {
	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(content)
}

func TestJobs(t *testing.T) {
	jobs := testJobs(t)
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.Name
	}
	assert.Equal(t, []string{"cluster1", "cluster2", "cluster3"}, names)
	assert.Equal(t, filepath.Join("testdata", "trees", "cluster2.tre"), jobs[1].TreeFile)

	_, err := Jobs("testdata/trees", "*.nex")
	assert.True(t, errors.Is(err, ErrNoTrees))
}

func TestJobsNames(t *testing.T) {
	testCases := []struct {
		name        string
		files       []string
		pattern     string
		expected    []string
		expectedErr error
	}{
		{
			name:     "only last extension dropped",
			files:    []string{"c1.tre", "c1.raxml.tre"},
			pattern:  "*.tre",
			expected: []string{"c1.raxml", "c1"},
		},
		{
			name:     "earlier outputs",
			files:    []string{"c1.tre", "c1.1to1ortho.tre"},
			pattern:  "*.tre",
			expected: []string{"c1.1to1ortho", "c1"},
		},
		{
			name:        "same name",
			files:       []string{"c1.tre", "c1.nex"},
			pattern:     "c1.*",
			expectedErr: ErrDuplicateName,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, file := range test.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte("(A@1,B@1,C@1);"), 0o644))
			}
			jobs, err := Jobs(dir, test.pattern)
			if test.expectedErr != nil {
				assert.True(t, errors.Is(err, test.expectedErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			names := make([]string, len(jobs))
			for i, job := range jobs {
				names[i] = job.Name
			}
			assert.Equal(t, test.expected, names)
		})
	}
}

func TestRunKeepsOutputsOfSimilarNames(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "c1.tre"), []byte("(A@1,B@1,C@1);"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "c1.raxml.tre"), []byte("(X@1,Y@1,W@1);"), 0o644))
	jobs, err := Jobs(in, "*.tre")
	require.NoError(t, err)
	opts := Options{Ortho: ortho.DefaultOptions(), Format: prep.Newick, OutDir: out, NProcs: 2}
	rows, err := Run(context.Background(), jobs, opts)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "(A@1,B@1,C@1);\n", readOutput(t, out, "c1.1to1ortho.tre"))
	assert.Equal(t, "(X@1,Y@1,W@1);\n", readOutput(t, out, "c1.raxml.1to1ortho.tre"))
}

func TestAttachAlignments(t *testing.T) {
	jobs := testJobs(t)
	missing := AttachAlignments(jobs, "testdata/aligns", ".fa")
	assert.Equal(t, 2, missing)
	assert.Equal(t, filepath.Join("testdata", "aligns", "cluster1.fa"), jobs[0].Alignment)
	assert.Empty(t, jobs[1].Alignment)
}

func TestRun(t *testing.T) {
	testCases := []struct {
		name     string
		mask     bool
		fasta    bool
		expected []prep.SummaryRow
		files    map[string]string
	}{
		{
			name: "prune only",
			expected: []prep.SummaryRow{
				{Tree: "cluster1", Tips: 5, Taxa: 4, Outputs: 1},
				{Tree: "cluster2", Tips: 5, Taxa: 3, Rejection: ortho.ErrOutgroupRepeats.Error()},
				{Tree: "cluster3", Rejection: "unreadable tree"},
			},
			files: map[string]string{
				"cluster1.reroot.tre": "((A@1:0.5,A@2:0.25):0.5,(B@1:1,C@1:1):1,Z@1:2);\n",
				"cluster1.ortho.tre":  "(A@2:0.75,(B@1:1,C@1:1):1,Z@1:2);\n",
			},
		},
		{
			name:  "mask and fasta",
			mask:  true,
			fasta: true,
			expected: []prep.SummaryRow{
				{Tree: "cluster1", Tips: 5, Taxa: 4, Masked: 1, Outputs: 1},
				{Tree: "cluster2", Tips: 5, Taxa: 3, Rejection: ortho.ErrOutgroupRepeats.Error()},
				{Tree: "cluster3", Rejection: "unreadable tree"},
			},
			files: map[string]string{
				"cluster1.mm.tre":        "(A@2:0.75,(B@1:1,C@1:1):1,Z@1:2);\n",
				"cluster1.1to1ortho.tre": "(A@2:0.75,(B@1:1,C@1:1):1,Z@1:2);\n",
			},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			jobs := testJobs(t)
			AttachAlignments(jobs, "testdata/aligns", ".fa")
			opts := moOptions(dir)
			opts.Mask, opts.WriteFasta = test.mask, test.fasta
			rows, err := Run(context.Background(), jobs, opts)
			require.NoError(t, err)
			for i := range test.expected {
				test.expected[i].Policy = ortho.MonophyleticOutgroup.String()
			}
			assert.Equal(t, test.expected, rows)
			for name, content := range test.files {
				assert.Equal(t, content, readOutput(t, dir, name), name)
			}
			fastaPath := filepath.Join(dir, "cluster1.1to1ortho.fa")
			_, statErr := os.Stat(fastaPath)
			if test.fasta {
				require.NoError(t, statErr)
				al, err := prep.ReadAlignment(fastaPath)
				require.NoError(t, err)
				assert.Equal(t, 4, al.NbSequences())
			} else {
				assert.True(t, errors.Is(statErr, os.ErrNotExist))
			}
		})
	}
}

func TestRunPartitionErrorStopsBatch(t *testing.T) {
	opts := moOptions(t.TempDir())
	opts.Ortho.Policy = ortho.RootedTaxonomy
	p, err := ortho.NewPartition([]string{"A", "B"}, []string{"Z"})
	require.NoError(t, err)
	opts.Ortho.Partition = p
	_, err = Run(context.Background(), testJobs(t), opts)
	var perr *ortho.PartitionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "C", perr.Taxon)
}

func TestRunWriteErrorStopsBatch(t *testing.T) {
	opts := moOptions(filepath.Join(t.TempDir(), "missing"))
	_, err := Run(context.Background(), testJobs(t), opts)
	assert.True(t, errors.Is(err, prep.ErrWritingFile))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testJobs(t), moOptions(t.TempDir()))
	assert.True(t, errors.Is(err, context.Canceled))
}
