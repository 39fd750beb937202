package prep

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/evolbioinfo/gotree/io/nexus"
	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
	"github.com/jsdoublel/orthoprune/internal/newick"
	"github.com/jsdoublel/orthoprune/internal/ortho"
)

var (
	ErrInvalidFile   = errors.New("invalid file")
	ErrInvalidFormat = errors.New("invalid format")
	ErrWritingFile   = errors.New("error writing file")
)

type Format int

const (
	Newick Format = iota
	Nexus
)

const TreeExt = "tre"

var ParseFormat = map[string]Format{
	"newick": Newick,
	"nexus":  Nexus,
}

func (f *Format) Set(s string) error {
	if format, ok := ParseFormat[s]; ok {
		*f = format
		return nil
	}
	return fmt.Errorf("\"%s\" is not a valid tree file format", s)
}

func (f Format) String() string {
	for s, fr := range ParseFormat {
		if fr == f {
			return s
		}
	}
	panic(fmt.Sprintf("format (%d) does not exist", f))
}

func (f Format) Type() string { return "format" }

// Reads in the tree files in order. A file that cannot be read or parsed gets
// an error in the matching slot of the returned errors; its tree is nil.
func ReadTreeFiles(paths []string, format Format) ([]*gr.Tree, []error) {
	flags := log.Flags()
	lout := log.Writer()
	log.SetOutput(io.Discard) // gotree can be noisy and lead to thousands of log messages
	defer func() {
		log.SetOutput(lout)
		log.SetFlags(flags)
	}()
	trees := make([]*gr.Tree, len(paths))
	errs := make([]error, len(paths))
	for i, path := range paths {
		trees[i], errs[i] = ReadTreeFile(path, format)
	}
	return trees, errs
}

// ReadTreeFile reads the first tree in a newick or nexus file. Returns an
// error if the file is empty or the tree is malformed.
func ReadTreeFile(path string, format Format) (*gr.Tree, error) {
	switch format {
	case Newick:
		return readNewickFile(path)
	case Nexus:
		return readNexusFile(path)
	default:
		return nil, fmt.Errorf("%w, not a valid file format", ErrInvalidFile)
	}
}

func readNewickFile(path string) (*gr.Tree, error) {
	treBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading tree file: %w", err)
	}
	treBytes = bytes.TrimSpace(treBytes)
	if len(treBytes) == 0 {
		return nil, fmt.Errorf("%w, empty tree file %s", ErrInvalidFile, path)
	}
	tre, err := newick.NewParser(bytes.NewReader(treBytes)).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w, error parsing tree newick string from %s: %w", ErrInvalidFormat, path, err)
	}
	return tre, nil
}

func readNexusFile(path string) (*gr.Tree, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s, %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(fmt.Sprintf("could not close file %s, %s", path, err))
		}
	}()
	nex, err := nexus.NewParser(file).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w, error reading nexus file %s: %s", ErrInvalidFormat, path, err.Error())
	}
	var first *tree.Tree
	nex.IterateTrees(func(_ string, t *tree.Tree) {
		if first == nil {
			first = t
		}
	})
	if first == nil {
		return nil, fmt.Errorf("%w, no trees in nexus file %s", ErrInvalidFile, path)
	}
	return gr.FromGotree(first), nil
}

// ReadTaxonCodes reads a tab separated file of "IN<tab>taxon" and
// "OUT<tab>taxon" lines. Lines too short to hold both fields are skipped.
func ReadTaxonCodes(path string) (*ortho.Partition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s, %w", path, err)
	}
	defer file.Close()
	in, out := make([]string, 0), make([]string, 0)
	scanner := bufio.NewScanner(file)
	for i := 1; scanner.Scan(); i++ {
		fields := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(fields) < 2 {
			continue
		}
		taxon := strings.TrimSpace(fields[1])
		switch strings.TrimSpace(fields[0]) {
		case "IN":
			in = append(in, taxon)
		case "OUT":
			out = append(out, taxon)
		default:
			return nil, fmt.Errorf("%w, line %d of %s should start with IN or OUT", ErrInvalidFormat, i, path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s, %w", path, err)
	}
	if len(in) == 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w, no taxa in %s", ErrInvalidFile, path)
	}
	return ortho.NewPartition(in, out)
}

// ParseOutgroups splits a comma separated list of out-group taxa, dropping
// quotes and blanks.
func ParseOutgroups(s string) []string {
	taxa := make([]string, 0)
	for _, field := range strings.Split(s, ",") {
		taxon := strings.Trim(field, " \t\n'\"")
		if taxon != "" {
			taxa = append(taxa, taxon)
		}
	}
	return taxa
}

// OutputPath names the file for a tree output, "<dir>/<name>.<qualifier>.<ext>"
func OutputPath(dir, name, qualifier, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.%s", name, qualifier, ext))
}

func WriteTree(path string, t *gr.Tree) error {
	if err := os.WriteFile(path, []byte(newick.String(t)), 0o644); err != nil {
		return fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return nil
}

// WriteOutputs writes every output tree to dir and returns the paths written.
func WriteOutputs(dir, name string, outputs []ortho.Output) ([]string, error) {
	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := OutputPath(dir, name, out.Qualifier, TreeExt)
		if err := WriteTree(path, out.Tree); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
