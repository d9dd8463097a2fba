package reader

import (
	"fmt"
	"io"
	"strings"

	"asc.im/mania"
)

func unmatchedDelimiter(rd *Reader, ch rune) (mania.Object, error) {
	return nil, fmt.Errorf("%s: unmatched %q", rd.Position(), ch)
}

func readDot(rd *Reader, ch rune) (mania.Object, error) {
	return readAtom(rd, ch)
}

func readComment(rd *Reader, _ rune) (mania.Object, error) {
	for {
		ch, err := rd.nextRune()
		if err != nil {
			if err == io.EOF {
				return nil, ErrSkip
			}
			return nil, err
		}
		if ch == '\n' {
			return nil, ErrSkip
		}
	}
}

func readString(rd *Reader, _ rune) (mania.Object, error) {
	var sb strings.Builder
	for {
		ch, err := rd.nextRune()
		if err != nil {
			return nil, fmt.Errorf("%s: unterminated string", rd.Position())
		}
		if ch == '\\' {
			ch, err = rd.nextRune()
			if err != nil {
				return nil, fmt.Errorf("%s: unterminated string escape", rd.Position())
			}
			switch ch {
			case 'n':
				ch = '\n'
			case 'r':
				ch = '\r'
			case 't':
				ch = '\t'
			}
			sb.WriteRune(ch)
			continue
		}
		if ch == '"' {
			return mania.MakeString(sb.String()), nil
		}
		sb.WriteRune(ch)
	}
}

func readQuote(rd *Reader, _ rune) (mania.Object, error) {
	v, err := rd.Read()
	if err != nil {
		return nil, err
	}
	return mania.Quoted{Value: v}, nil
}

func readQuasiquote(rd *Reader, _ rune) (mania.Object, error) {
	v, err := rd.Read()
	if err != nil {
		return nil, err
	}
	return mania.Quasiquoted{Value: v}, nil
}

func readUnquote(rd *Reader, _ rune) (mania.Object, error) {
	ch, err := rd.nextRune()
	if err == nil && ch == '@' {
		return nil, fmt.Errorf("%s: unquote-splicing (,@) is not supported; use a trailing ellipsis in the template instead", rd.Position())
	}
	if err == nil {
		rd.unreadRune(ch)
	}
	v, err := rd.Read()
	if err != nil {
		return nil, err
	}
	return mania.Unquoted{Value: v}, nil
}

func readList(endCh rune) macroFn {
	return func(rd *Reader, _ rune) (mania.Object, error) {
		return rd.readList(endCh)
	}
}

func (rd *Reader) readList(endCh rune) (mania.Object, error) {
	var objs []mania.Object
	var dotObj mania.Object
	hasDot := false

	for {
		ch, err := rd.skipListSpace()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%s: unterminated list", rd.Position())
			}
			return nil, err
		}
		if ch == endCh {
			break
		}
		if ch == '.' {
			ch2, err2 := rd.nextRune()
			if err2 == nil && isSpace(ch2) {
				dotObj, err2 = rd.Read()
				if err2 != nil {
					return nil, err2
				}
				hasDot = true
				ch3, err3 := rd.skipSpace()
				if err3 != nil || ch3 != endCh {
					return nil, fmt.Errorf("%s: expected %q to close dotted list", rd.Position(), endCh)
				}
				break
			}
			if err2 == nil {
				rd.unreadRune(ch2)
			}
		}
		rd.unreadRune(ch)
		val, err := rd.Read()
		if err != nil {
			return nil, err
		}
		objs = append(objs, val)
	}

	if hasDot {
		result := dotObj
		for i := len(objs) - 1; i >= 0; i-- {
			result = mania.Cons(objs[i], result)
		}
		return result, nil
	}
	return mania.FromSlice(objs), nil
}

func (rd *Reader) skipListSpace() (rune, error) {
	for {
		ch, err := rd.nextRune()
		if err != nil {
			return 0, err
		}
		if isSpace(ch) {
			continue
		}
		if ch != ';' {
			return ch, nil
		}
		if _, err := readComment(rd, ch); err != nil && err != ErrSkip {
			return 0, err
		}
	}
}
