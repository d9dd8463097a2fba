// Package reader parses Mania source text into the s-expression values the
// compiler consumes (spec.md §6.2's source surface; "module discovery and
// CLI are external" per §6.3, but something has to turn bytes into forms).
// Structured after the teacher's own sxreader: a rune reader driving a
// per-character macro dispatch table, rather than a generated lexer/parser.
package reader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"asc.im/mania"
)

// Reader consumes runes from a stream and parses them into Mania values.
type Reader struct {
	rr      io.RuneReader
	err     error
	name    string
	buf     []rune
	line    int
	col     int
	prevCol int
	macros  macroMap

	maxDepth, curDepth uint
}

type macroFn func(*Reader, rune) (mania.Object, error)
type macroMap map[rune]macroFn

// Position locates a read error within its source.
type Position struct {
	Name string
	Line int
	Col  int
}

func (p Position) String() string {
	name := p.Name
	if name == "" {
		name = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Col)
}

// ErrSkip is returned internally by macros (comments) that produce no value.
var ErrSkip = errors.New("reader: skip")

// DefaultNestingLimit bounds how deep nested lists may go before Read gives
// up (a malformed or adversarial input should not blow the Go call stack).
const DefaultNestingLimit = 1000

// Option configures a Reader at construction.
type Option func(*Reader)

// WithNestingLimit overrides DefaultNestingLimit.
func WithNestingLimit(depth uint) Option {
	return func(rd *Reader) { rd.maxDepth = depth }
}

// New creates a Reader over r.
func New(r io.Reader, opts ...Option) *Reader {
	rd := &Reader{
		rr:       bufio.NewReader(r),
		name:     inferName(r),
		maxDepth: DefaultNestingLimit,
		macros: macroMap{
			'"':  readString,
			'\'': readQuote,
			'(':  readList(')'),
			')':  unmatchedDelimiter,
			',':  readUnquote,
			'.':  readDot,
			';':  readComment,
			'`':  readQuasiquote,
		},
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

func inferName(r io.Reader) string {
	switch r.(type) {
	case *strings.Reader:
		return "<string>"
	case *bytes.Reader:
		return "<bytes>"
	default:
		return fmt.Sprintf("<%T>", r)
	}
}

// Name reports the stream's inferred name, used in error positions.
func (rd *Reader) Name() string { return rd.name }

func (rd *Reader) nextRune() (rune, error) {
	if rd.err != nil {
		return 0, rd.err
	}
	var ch rune
	if len(rd.buf) > 0 {
		ch = rd.buf[0]
		rd.buf = rd.buf[1:]
	} else {
		var err error
		ch, _, err = rd.rr.ReadRune()
		if err != nil {
			rd.err = err
			return 0, err
		}
	}
	if ch == '\n' {
		rd.line++
		rd.prevCol = rd.col
		rd.col = 0
	} else {
		rd.col++
	}
	return ch, nil
}

func (rd *Reader) unreadRune(ch rune) {
	if ch == '\n' {
		rd.line--
		rd.col = rd.prevCol
	} else {
		rd.col--
	}
	rd.buf = append([]rune{ch}, rd.buf...)
}

// Position reports the reader's current line/column, 1-based.
func (rd *Reader) Position() Position {
	return Position{Name: rd.name, Line: rd.line + 1, Col: rd.col}
}

func (rd *Reader) skipSpace() (rune, error) {
	for {
		ch, err := rd.nextRune()
		if err != nil {
			return 0, err
		}
		if !isSpace(ch) {
			return ch, nil
		}
	}
}

func isSpace(ch rune) bool { return ch <= ' ' || unicode.IsSpace(ch) }

func (rd *Reader) isTerminal(ch rune) bool {
	if ch == '(' || ch == ')' || ch == '"' || ch == ';' || ch == '\'' || ch == '`' || ch == ',' {
		return true
	}
	return unicode.In(ch, unicode.C, unicode.Z)
}

// Read parses and returns the next value, or io.EOF at end of input.
func (rd *Reader) Read() (mania.Object, error) {
	if rd.curDepth > rd.maxDepth {
		return nil, fmt.Errorf("reader: too deeply nested")
	}
	rd.curDepth++
	defer func() { rd.curDepth-- }()
	for {
		val, err := rd.readValue()
		if err == nil {
			return val, nil
		}
		if !errors.Is(err, ErrSkip) {
			return nil, err
		}
	}
}

// ReadAll reads every top-level form until EOF.
func (rd *Reader) ReadAll() ([]mania.Object, error) {
	var forms []mania.Object
	for {
		val, err := rd.Read()
		if err != nil {
			if err == io.EOF {
				return forms, nil
			}
			return forms, err
		}
		forms = append(forms, val)
	}
}

func (rd *Reader) readValue() (mania.Object, error) {
	ch, err := rd.skipSpace()
	if err != nil {
		return nil, err
	}
	if m, found := rd.macros[ch]; found {
		return m(rd, ch)
	}
	return readAtom(rd, ch)
}

func (rd *Reader) readToken(firstCh rune) (string, error) {
	var sb strings.Builder
	sb.WriteRune(firstCh)
	for {
		ch, err := rd.nextRune()
		if err != nil {
			if err == io.EOF {
				return sb.String(), nil
			}
			return sb.String(), err
		}
		if rd.isTerminal(ch) {
			rd.unreadRune(ch)
			return sb.String(), nil
		}
		sb.WriteRune(ch)
	}
}

func readAtom(rd *Reader, firstCh rune) (mania.Object, error) {
	tok, err := rd.readToken(firstCh)
	if err != nil {
		return nil, err
	}
	return parseAtom(tok), nil
}

func parseAtom(tok string) mania.Object {
	if tok == "..." {
		return mania.TheEllipsis
	}
	if n, ok := mania.ParseInteger(tok); ok {
		return n
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil && looksNumeric(tok) {
		return mania.Float(f)
	}
	return mania.MakeSymbol(tok)
}

// looksNumeric keeps bare symbols like "a.b" or "+" from being misparsed as
// floats just because strconv.ParseFloat happens to accept a prefix of them.
func looksNumeric(tok string) bool {
	for i, ch := range tok {
		switch {
		case ch >= '0' && ch <= '9':
		case ch == '.' || ch == 'e' || ch == 'E':
		case (ch == '+' || ch == '-') && i == 0:
		default:
			return false
		}
	}
	return strings.ContainsAny(tok, "0123456789")
}
