package newick

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokOpen
	tokClose
	tokComma
	tokColon
	tokTerminal
	tokLabel
)

const (
	eof          = 0
	terminal     = ';'
	delimiter    = ','
	descStart    = '('
	descEnd      = ')'
	lengthStart  = ':'
	commentStart = '['
	commentEnd   = ']'
	quote        = '\''
)

const unquoteBanned = " \t\r\n()[]':;,"

type token struct {
	typ tokenType
	val string
	pos int
}

// lexer splits newick text into tokens, skipping whitespace and (nested)
// bracketed comments. Quoted labels are returned verbatim, quotes included.
type lexer struct {
	input  string
	pos    int
	width  int
	peeked *token
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (lx *lexer) next() rune {
	if lx.pos >= len(lx.input) {
		lx.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(lx.input[lx.pos:])
	lx.width = w
	lx.pos += w
	return r
}

// backup steps back one rune. Can be called only once per call of next.
func (lx *lexer) backup() {
	lx.pos -= lx.width
}

// peek returns but does not consume the next token.
func (lx *lexer) peek() (token, error) {
	if lx.peeked == nil {
		tok, err := lx.scan()
		if err != nil {
			return token{}, err
		}
		lx.peeked = &tok
	}
	return *lx.peeked, nil
}

func (lx *lexer) nextToken() (token, error) {
	if lx.peeked != nil {
		tok := *lx.peeked
		lx.peeked = nil
		return tok, nil
	}
	return lx.scan()
}

func (lx *lexer) scan() (token, error) {
	for {
		start := lx.pos
		r := lx.next()
		switch {
		case r == eof && lx.width == 0:
			return token{typ: tokEOF, pos: start}, nil
		case isBlank(r):
			continue
		case r == commentStart:
			if err := lx.skipComment(start); err != nil {
				return token{}, err
			}
			continue
		case r == descStart:
			return token{tokOpen, "(", start}, nil
		case r == descEnd:
			return token{tokClose, ")", start}, nil
		case r == delimiter:
			return token{tokComma, ",", start}, nil
		case r == lengthStart:
			return token{tokColon, ":", start}, nil
		case r == terminal:
			return token{tokTerminal, ";", start}, nil
		case r == commentEnd:
			return token{}, errorf(start, "unexpected '%c' outside of a comment", r)
		case r == quote:
			return lx.quoted(start)
		default:
			lx.backup()
			return lx.label(start), nil
		}
	}
}

func (lx *lexer) skipComment(start int) error {
	depth := 1
	for depth > 0 {
		switch r := lx.next(); {
		case r == eof && lx.width == 0:
			return errorf(start, "unterminated comment")
		case r == commentStart:
			depth++
		case r == commentEnd:
			depth--
		}
	}
	return nil
}

// quoted labels end at the first lone quote; '' is an escaped quote
func (lx *lexer) quoted(start int) (token, error) {
	for {
		r := lx.next()
		if r == eof && lx.width == 0 {
			return token{}, errorf(start, "unterminated quoted label")
		}
		if r != quote {
			continue
		}
		if lx.next() == quote {
			continue
		}
		lx.backup()
		return token{tokLabel, lx.input[start:lx.pos], start}, nil
	}
}

func (lx *lexer) label(start int) token {
	for {
		r := lx.next()
		if (r == eof && lx.width == 0) || strings.ContainsRune(unquoteBanned, r) {
			lx.backup()
			return token{tokLabel, lx.input[start:lx.pos], start}
		}
	}
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func (typ tokenType) String() string {
	switch typ {
	case tokEOF:
		return "end of input"
	case tokOpen:
		return "'('"
	case tokClose:
		return "')'"
	case tokComma:
		return "','"
	case tokColon:
		return "':'"
	case tokTerminal:
		return "';'"
	case tokLabel:
		return "label"
	}
	panic(fmt.Sprintf("BUG: unknown token type %d", int(typ)))
}
