package prep

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evolbioinfo/goalign/align"
	"github.com/evolbioinfo/goalign/io/fasta"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
	"github.com/jsdoublel/orthoprune/internal/mask"
)

const FastaExt = "fa"

// wildcard and gap characters do not count towards informativeness
const uninformative = "xX*?-"

// ReadAlignment reads an aligned fasta file.
func ReadAlignment(path string) (align.Alignment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s, %w", path, err)
	}
	defer file.Close()
	al, err := fasta.NewParser(file).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w, error reading fasta file %s: %s", ErrInvalidFormat, path, err.Error())
	}
	return al, nil
}

// Informativeness counts, for every sequence, the aligned characters that are
// neither gaps nor wildcards.
func Informativeness(al align.Alignment) mask.Informativeness {
	scores := make(mask.Informativeness, al.NbSequences())
	for i := range al.NbSequences() {
		name, _ := al.GetSequenceNameById(i)
		seq, _ := al.GetSequenceById(i)
		count := 0
		for _, c := range seq {
			if !strings.ContainsRune(uninformative, c) {
				count++
			}
		}
		scores[name] = count
	}
	return scores
}

func ReadInformativeness(path string) (mask.Informativeness, error) {
	al, err := ReadAlignment(path)
	if err != nil {
		return nil, err
	}
	return Informativeness(al), nil
}

// WriteOrthologFasta writes the sequences of the tips of t to w, in tip order.
// Nothing is written, and false returned, when t has fewer than minTaxa taxa.
func WriteOrthologFasta(w io.Writer, t *gr.Tree, al align.Alignment, minTaxa int) (bool, error) {
	if _, taxa := t.CountTaxa(t.Root()); taxa < minTaxa {
		return false, nil
	}
	sub := align.NewAlign(al.Alphabet())
	for _, label := range t.FrontLabels(t.Root()) {
		seq, ok := al.GetSequence(label)
		if !ok {
			return false, fmt.Errorf("%w, no sequence for tip %s", ErrInvalidFile, label)
		}
		if err := sub.AddSequence(label, seq, ""); err != nil {
			return false, fmt.Errorf("%w, %s", ErrWritingFile, err)
		}
	}
	if _, err := io.WriteString(w, fasta.WriteAlignment(sub)); err != nil {
		return false, fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return true, nil
}
