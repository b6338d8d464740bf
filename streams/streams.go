// Package streams adapts local files and HTTP(S) URLs to the
// pscore.Stream collaborator contract (spec §6): getwc/ungetwc/feof/
// close over a wide-character source. Apart from the cmd/pscore
// command, it is the only package in this module that imports
// net/http or os, keeping the core evaluation
// substrate free of I/O concerns the way pscore/stream.go's doc
// comment requires.
package streams

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/simon-brooke/post-scarcity-sub000"
)

// fileStream wraps an *os.File (or any io.ReadCloser) as a
// pscore.Stream, decoding UTF-8 a rune at a time and guaranteeing
// one-character pushback via a local buffer.
type fileStream struct {
	r       *bufio.Reader
	closer  io.Closer
	pending []rune
	eof     bool
}

// OpenFile opens path for reading and wraps it as a pscore.Stream.
func OpenFile(path string) (pscore.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileStream{r: bufio.NewReader(f), closer: f}, nil
}

// Stdin wraps os.Stdin as a pscore.Stream for the REPL; Close is a
// no-op so closing the resulting stream cell doesn't take stdin with
// it.
func Stdin() pscore.Stream {
	return &fileStream{r: bufio.NewReader(os.Stdin), closer: io.NopCloser(os.Stdin)}
}

func (s *fileStream) Getwc() (rune, bool, error) {
	if n := len(s.pending); n > 0 {
		c := s.pending[n-1]
		s.pending = s.pending[:n-1]
		return c, true, nil
	}
	c, _, err := s.r.ReadRune()
	if err == io.EOF {
		s.eof = true
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return c, true, nil
}

func (s *fileStream) Ungetwc(r rune) {
	s.pending = append(s.pending, r)
	s.eof = false
}

func (s *fileStream) Feof() bool { return s.eof && len(s.pending) == 0 }

func (s *fileStream) Close() error { return s.closer.Close() }

// urlStream wraps an HTTP(S) response body the same way fileStream
// wraps a file, additionally exposing a metadata hashmap carrying
// {:url, :status-code} (spec §6, "Opening a URL stream").
type urlStream struct {
	fileStream
	Meta pscore.CellPtr
}

// httpClient has a bounded timeout: a Lisp reader blocking forever on
// a dead URL would hang the whole REPL (spec §6 treats this
// collaborator as external, but an unbounded client is not a
// reasonable default for an interactive tool).
var httpClient = &http.Client{Timeout: 30 * time.Second}

// OpenURL fetches url and wraps the body as a pscore.Stream, building
// the {:url <string>, :status-code <int>} metadata hashmap that
// OpenSource attaches to the resulting READ cell.
func OpenURL(h *pscore.Heap, url string) (pscore.Stream, pscore.CellPtr, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, pscore.NilPtr, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, pscore.NilPtr, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	meta := h.NewHashMap()
	urlKey := h.NewKeywordFrom("url")
	urlVal := h.NewStringFrom(url)
	next := h.HashMapPut(meta, urlKey, urlVal)
	h.Dec(meta)
	h.Dec(urlKey)
	h.Dec(urlVal)
	meta = next

	codeKey := h.NewKeywordFrom("status-code")
	codeVal := h.NewIntegerFromInt64(int64(resp.StatusCode))
	next = h.HashMapPut(meta, codeKey, codeVal)
	h.Dec(meta)
	h.Dec(codeKey)
	h.Dec(codeVal)
	meta = next

	return &urlStream{fileStream: fileStream{r: bufio.NewReader(resp.Body), closer: resp.Body}, Meta: meta}, meta, nil
}

// OpenSource opens either a URL (if source looks like one) or a local
// file, and wraps the result as a READ cell with attached metadata —
// the reader treats both uniformly per spec §6.
func OpenSource(h *pscore.Heap, source string) (pscore.CellPtr, error) {
	if isURL(source) {
		s, meta, err := OpenURL(h, source)
		if err != nil {
			return pscore.NilPtr, err
		}
		return h.NewReadStream(s, meta), nil
	}
	s, err := OpenFile(source)
	if err != nil {
		return pscore.NilPtr, err
	}
	return h.NewReadStream(s, pscore.NilPtr), nil
}

func isURL(s string) bool {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == ':' && s[i+1] == '/' && s[i+2] == '/' {
			return true
		}
	}
	return false
}
