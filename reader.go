package pscore

import (
	"io"
	"math"
	"strings"
	"unicode"
)

// Reader is the character-at-a-time recursive-descent reader (spec
// §4.6). It owns a small local pushback stack so callers can peek
// arbitrarily many characters ahead of whatever single-character
// guarantee the underlying Stream makes; unreading never touches the
// Stream itself once at least one character has been buffered here.
type Reader struct {
	heap   *Heap
	stream Stream

	pending []rune
	line    int
	column  int
	offset  int

	pathExprs       bool
	hashmapLiterals bool
}

// NewReader wraps a Stream with reader state, gating the `{...}`
// hashmap-literal and `/`/`$` path-expression dispatch characters
// behind config the way the rest of this interpreter's ambient
// behaviour is tunable.
func NewReader(h *Heap, s Stream, cfg *Config) *Reader {
	return &Reader{
		heap:            h,
		stream:          s,
		line:            1,
		column:          1,
		pathExprs:       cfg.PathExpressionsEnabled(),
		hashmapLiterals: cfg.HashmapLiteralsEnabled(),
	}
}

func (r *Reader) getc() (rune, bool, error) {
	var c rune
	var ok bool
	var err error
	if n := len(r.pending); n > 0 {
		c, ok = r.pending[n-1], true
		r.pending = r.pending[:n-1]
	} else {
		c, ok, err = r.stream.Getwc()
		if err != nil || !ok {
			return 0, false, err
		}
	}
	r.offset++
	if c == '\n' {
		r.line++
		r.column = 1
	} else {
		r.column++
	}
	return c, true, nil
}

func (r *Reader) ungetc(c rune) {
	r.pending = append(r.pending, c)
	r.offset--
	if r.column > 1 {
		r.column--
	}
}

func isDelimiter(c rune) bool {
	switch c {
	case '(', ')', '{', '}', '"', '\'':
		return true
	}
	return unicode.IsSpace(c)
}

func (r *Reader) skipWhitespaceAndComments() {
	for {
		c, ok, _ := r.getc()
		if !ok {
			return
		}
		if c == ';' {
			for {
				c2, ok2, _ := r.getc()
				if !ok2 || c2 == '\n' {
					break
				}
			}
			continue
		}
		if unicode.IsSpace(c) || c == ',' {
			continue
		}
		r.ungetc(c)
		return
	}
}

// ReadForm reads and returns exactly one form, or io.EOF if the
// stream held nothing but whitespace/comments.
func (r *Reader) ReadForm() (CellPtr, error) {
	r.skipWhitespaceAndComments()
	c, ok, err := r.getc()
	if err != nil {
		return NilPtr, err
	}
	if !ok {
		return NilPtr, io.EOF
	}

	switch {
	case c == '(':
		return r.readList()
	case c == '{' && r.hashmapLiterals:
		return r.readHashMap()
	case c == '"':
		return r.readString()
	case c == '\'':
		inner, err := r.ReadForm()
		if err != nil {
			return NilPtr, err
		}
		quoteSym := r.heap.NewSymbolFrom("quote")
		result := r.heap.SliceToList([]CellPtr{quoteSym, inner})
		r.heap.Dec(quoteSym)
		r.heap.Dec(inner)
		return result, nil
	case c == ':':
		return r.readKeyword()
	case c == '-':
		c2, ok2, _ := r.getc()
		if ok2 {
			r.ungetc(c2)
		}
		if ok2 && unicode.IsDigit(c2) {
			return r.readNumber(true)
		}
		r.ungetc('-')
		return r.readSymbol()
	case unicode.IsDigit(c):
		r.ungetc(c)
		return r.readNumber(false)
	case c == '.':
		c2, ok2, _ := r.getc()
		if ok2 {
			r.ungetc(c2)
		}
		r.ungetc('.')
		if ok2 && unicode.IsDigit(c2) {
			return r.readNumber(false)
		}
		return r.readSymbol()
	case (c == '/' || c == '$') && r.pathExprs:
		c2, ok2, _ := r.getc()
		if ok2 {
			r.ungetc(c2)
		}
		r.ungetc(c)
		if !ok2 || isDelimiter(c2) {
			// a lone '/' or '$' is an ordinary symbol, e.g. division
			return r.readSymbol()
		}
		return r.readPathExpression()
	default:
		r.ungetc(c)
		return r.readSymbol()
	}
}

// readList reads forms until the matching ')', recognising a lone '.'
// immediately followed by a delimiter as the dotted-tail marker (spec
// §4.6, "Lists").
func (r *Reader) readList() (CellPtr, error) {
	var items []CellPtr
	tail := NilPtr
	release := func() {
		for _, it := range items {
			r.heap.Dec(it)
		}
	}
	for {
		r.skipWhitespaceAndComments()
		c, ok, err := r.getc()
		if err != nil {
			release()
			return NilPtr, err
		}
		if !ok {
			release()
			return NilPtr, newReaderError(r, "unexpected end of input in list")
		}
		if c == ')' {
			break
		}
		if c == '.' {
			c2, ok2, _ := r.getc()
			if ok2 {
				r.ungetc(c2)
			}
			if !ok2 || isDelimiter(c2) {
				form, err := r.ReadForm()
				if err != nil {
					release()
					return NilPtr, err
				}
				tail = form
				r.skipWhitespaceAndComments()
				cc, okc, _ := r.getc()
				if !okc || cc != ')' {
					r.heap.Dec(tail)
					release()
					return NilPtr, newReaderError(r, "malformed dotted list: expected ')'")
				}
				break
			}
			r.ungetc('.')
		} else {
			r.ungetc(c)
		}
		form, err := r.ReadForm()
		if err != nil {
			release()
			return NilPtr, err
		}
		items = append(items, form)
	}
	result := tail
	for i := len(items) - 1; i >= 0; i-- {
		next := r.heap.NewCons(items[i], result)
		r.heap.Dec(items[i])
		if !result.IsNil() {
			r.heap.Dec(result)
		}
		result = next
	}
	return result, nil
}

// readHashMap reads alternating key/value forms until '}'; commas are
// whitespace inside a hashmap literal (spec §4.6).
func (r *Reader) readHashMap() (CellPtr, error) {
	m := r.heap.NewHashMap()
	for {
		r.skipWhitespaceAndComments()
		c, ok, err := r.getc()
		if err != nil {
			r.heap.Dec(m)
			return NilPtr, err
		}
		if !ok {
			r.heap.Dec(m)
			return NilPtr, newReaderError(r, "unexpected end of input in hashmap")
		}
		if c == '}' {
			break
		}
		r.ungetc(c)
		key, err := r.ReadForm()
		if err != nil {
			r.heap.Dec(m)
			return NilPtr, err
		}
		r.skipWhitespaceAndComments()
		val, err := r.ReadForm()
		if err != nil {
			r.heap.Dec(key)
			r.heap.Dec(m)
			return NilPtr, err
		}
		next := r.heap.HashMapPut(m, key, val)
		r.heap.Dec(key)
		r.heap.Dec(val)
		r.heap.Dec(m)
		m = next
	}
	return m, nil
}

// readString reads until the closing '"', supporting the usual
// backslash escapes; an empty string still yields the single
// sentinel-character cell value.go's newCharChain builds.
func (r *Reader) readString() (CellPtr, error) {
	var sb []rune
	for {
		c, ok, err := r.getc()
		if err != nil {
			return NilPtr, err
		}
		if !ok {
			return NilPtr, newReaderError(r, "unterminated string")
		}
		if c == '"' {
			break
		}
		if c == '\\' {
			c2, ok2, err2 := r.getc()
			if err2 != nil {
				return NilPtr, err2
			}
			if !ok2 {
				return NilPtr, newReaderError(r, "unterminated string escape")
			}
			switch c2 {
			case 'n':
				sb = append(sb, '\n')
			case 't':
				sb = append(sb, '\t')
			default:
				sb = append(sb, c2)
			}
			continue
		}
		sb = append(sb, c)
	}
	return r.heap.NewStringFrom(string(sb)), nil
}

func (r *Reader) readSymbol() (CellPtr, error) {
	var sb []rune
	for {
		c, ok, _ := r.getc()
		if !ok {
			break
		}
		if isDelimiter(c) {
			r.ungetc(c)
			break
		}
		sb = append(sb, c)
	}
	if len(sb) == 0 {
		return NilPtr, newReaderError(r, "unrecognized start character")
	}
	if string(sb) == "T" {
		// the canonical T singleton, not a fresh symbol cell, so
		// read(print(T)) round-trips to the same pinned cell.
		return TPtr, nil
	}
	return r.heap.NewSymbolFrom(string(sb)), nil
}

func (r *Reader) readKeyword() (CellPtr, error) {
	var sb []rune
	for {
		c, ok, _ := r.getc()
		if !ok {
			break
		}
		if isDelimiter(c) {
			r.ungetc(c)
			break
		}
		sb = append(sb, c)
	}
	return r.heap.NewKeywordFrom(string(sb)), nil
}

// readPathExpression reads a `/`- or `$`-delimited token and expands
// it to `(-> seg1 seg2 ...)` (spec §4.6's path expression dispatch;
// the exact segment grammar is left to the implementation beyond "it
// dispatches on / or $").
func (r *Reader) readPathExpression() (CellPtr, error) {
	var raw []rune
	for {
		c, ok, _ := r.getc()
		if !ok {
			break
		}
		if isDelimiter(c) {
			r.ungetc(c)
			break
		}
		raw = append(raw, c)
	}
	segments := strings.FieldsFunc(string(raw), func(c rune) bool { return c == '/' || c == '$' })
	syms := make([]CellPtr, 0, len(segments)+1)
	syms = append(syms, r.heap.NewSymbolFrom("->"))
	for _, seg := range segments {
		syms = append(syms, r.heap.NewSymbolFrom(seg))
	}
	result := r.heap.SliceToList(syms)
	for _, s := range syms {
		r.heap.Dec(s)
	}
	return result, nil
}

// readNumber consumes digits, thousands-comma separators, and at most
// one of '.'/'/ ' to build an INTR, REAL, or RTIO cell (spec §4.6,
// "Numbers"). neg applies to the leading sign already consumed by the
// caller.
func (r *Reader) readNumber(neg bool) (CellPtr, error) {
	var whole, frac, divisor []byte
	dotSeen, slashSeen := false, false
	state := 0 // 0 = whole part, 1 = fractional part, 2 = divisor part

numLoop:
	for {
		c, ok, _ := r.getc()
		if !ok {
			break numLoop
		}
		switch {
		case unicode.IsDigit(c):
			d := byte(c)
			switch state {
			case 0:
				whole = append(whole, d)
			case 1:
				frac = append(frac, d)
			case 2:
				divisor = append(divisor, d)
			}
		case c == ',':
			// thousands separator: silently discarded (spec §4.6)
		case c == '.':
			if dotSeen || slashSeen {
				return NilPtr, newReaderError(r, "malformed number: unexpected '.'")
			}
			dotSeen = true
			state = 1
		case c == '/':
			if dotSeen || slashSeen {
				return NilPtr, newReaderError(r, "malformed number: unexpected '/'")
			}
			slashSeen = true
			state = 2
		default:
			r.ungetc(c)
			break numLoop
		}
	}

	if dotSeen {
		if len(frac) == 0 {
			return NilPtr, newReaderError(r, "malformed number: missing digits after '.'")
		}
		wholeStr := string(whole)
		if wholeStr == "" {
			wholeStr = "0"
		}
		mantissa := magFromDecimalString(wholeStr + string(frac))
		val := mantissa.Float64() / math.Pow10(len(frac))
		if neg {
			val = -val
		}
		return r.heap.NewRealFrom(val), nil
	}
	if slashSeen {
		if len(whole) == 0 || len(divisor) == 0 {
			return NilPtr, newReaderError(r, "malformed ratio: missing integer part")
		}
		dividend := r.heap.NewIntegerFromDecimal(neg, string(whole))
		divisorCell := r.heap.NewIntegerFromDecimal(false, string(divisor))
		if r.heap.IntegerIsZero(divisorCell) {
			return NilPtr, newReaderError(r, "malformed ratio: zero divisor")
		}
		return r.heap.NewRatio(dividend, divisorCell), nil
	}
	if len(whole) == 0 {
		whole = []byte("0")
	}
	return r.heap.NewIntegerFromDecimal(neg, string(whole)), nil
}

// ---- in-memory string stream, for read-from-string ----

type stringStream struct {
	runes []rune
	pos   int
}

// NewStringStream adapts a Go string into a Stream, for read-from-string
// and similar in-memory parsing that has no business reaching for the
// streams package's file/URL machinery.
func NewStringStream(s string) Stream { return &stringStream{runes: []rune(s)} }

func (s *stringStream) Getwc() (rune, bool, error) {
	if s.pos >= len(s.runes) {
		return 0, false, nil
	}
	c := s.runes[s.pos]
	s.pos++
	return c, true, nil
}

func (s *stringStream) Ungetwc(r rune) {
	if s.pos > 0 {
		s.pos--
	}
}

func (s *stringStream) Feof() bool  { return s.pos >= len(s.runes) }
func (s *stringStream) Close() error { return nil }
