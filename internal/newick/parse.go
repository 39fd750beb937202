// Package newick reads and writes the bracket-and-branch-length tree format.
// Bracketed comments (nestable) are skipped and single-quoted labels are kept
// as opaque tokens, quotes included.
package newick

import (
	"fmt"
	"io"
	"strconv"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
)

// ParseError reports malformed newick input
type ParseError struct {
	Offset int    // byte offset of the offending token
	Msg    string // what went wrong
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("newick: %s (offset %d)", e.Msg, e.Offset)
}

func errorf(offset int, format string, v ...any) *ParseError {
	return &ParseError{Offset: offset, Msg: fmt.Sprintf(format, v...)}
}

// Parser reads a single newick tree
type Parser struct {
	r io.Reader
}

func NewParser(r io.Reader) *Parser {
	return &Parser{r: r}
}

// Parse reads the whole input and parses the first tree in it. Anything after
// the terminating ';' is ignored.
func (p *Parser) Parse() (*gr.Tree, error) {
	b, err := io.ReadAll(p.r)
	if err != nil {
		return nil, err
	}
	return Parse(string(b))
}

// Parse parses one tree from a newick string.
func Parse(s string) (*gr.Tree, error) {
	lx := newLexer(s)
	t := &gr.Tree{}
	root, err := parseSubtree(lx, t)
	if err != nil {
		return nil, err
	}
	tok, err := lx.nextToken()
	if err != nil {
		return nil, err
	}
	switch tok.typ {
	case tokTerminal:
	case tokEOF:
		return nil, errorf(tok.pos, "missing terminating ';'")
	case tokClose:
		return nil, errorf(tok.pos, "unbalanced parentheses")
	default:
		return nil, errorf(tok.pos, "unexpected %s, expected ';'", tok.typ)
	}
	t.SetRoot(root)
	return t, nil
}

func parseSubtree(lx *lexer, t *gr.Tree) (gr.NodeID, error) {
	tok, err := lx.peek()
	if err != nil {
		return gr.NoNode, err
	}
	var n gr.NodeID
	switch tok.typ {
	case tokOpen:
		lx.nextToken()
		n = t.AddNode("")
		if err := parseDescendants(lx, t, n); err != nil {
			return gr.NoNode, err
		}
	case tokEOF:
		return gr.NoNode, errorf(tok.pos, "unexpected end of input")
	default:
		n = t.AddNode("") // leaves may be unlabeled, e.g. "(,);"
	}
	if err := parseLabelLength(lx, t, n); err != nil {
		return gr.NoNode, err
	}
	return n, nil
}

func parseDescendants(lx *lexer, t *gr.Tree, parent gr.NodeID) error {
	for {
		child, err := parseSubtree(lx, t)
		if err != nil {
			return err
		}
		t.AddChild(parent, child)
		tok, err := lx.nextToken()
		if err != nil {
			return err
		}
		switch tok.typ {
		case tokComma:
			continue
		case tokClose:
			return nil
		case tokEOF, tokTerminal:
			return errorf(tok.pos, "unbalanced parentheses")
		default:
			return errorf(tok.pos, "unexpected %s in descendant list", tok.typ)
		}
	}
}

// optional label followed by an optional ":length"
func parseLabelLength(lx *lexer, t *gr.Tree, n gr.NodeID) error {
	tok, err := lx.peek()
	if err != nil {
		return err
	}
	if tok.typ == tokLabel {
		lx.nextToken()
		t.SetLabel(n, tok.val)
		if tok, err = lx.peek(); err != nil {
			return err
		}
	}
	if tok.typ != tokColon {
		return nil
	}
	lx.nextToken()
	tok, err = lx.nextToken()
	if err != nil {
		return err
	}
	if tok.typ != tokLabel {
		return errorf(tok.pos, "expected branch length, got %s", tok.typ)
	}
	length, err := strconv.ParseFloat(tok.val, 64)
	if err != nil {
		return errorf(tok.pos, "invalid branch length %q", tok.val)
	}
	t.SetLength(n, length)
	return nil
}
