package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is used when a caller passes an empty charset hint. It is a
// fixed choice, never the platform default.
const DefaultCharset = "UTF-8"

// LookupEncoding resolves a charset name (WHATWG label or IANA name, case
// insensitive) to an encoding. An empty name selects DefaultCharset.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultCharset
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}

// NewReader returns a reader that transcodes r from charset to UTF-8. A
// leading byte order mark overrides the hint and is stripped.
func NewReader(r io.Reader, charset string) (io.Reader, error) {
	enc, err := LookupEncoding(charset)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// Report is an open report file decoded to UTF-8.
type Report struct {
	io.Reader
	file *os.File
}

// Close closes the underlying file.
func (r *Report) Close() error {
	return r.file.Close()
}

// OpenReport opens path and decodes it from charset to UTF-8.
func OpenReport(path, charset string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, charset)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Report{Reader: r, file: f}, nil
}
