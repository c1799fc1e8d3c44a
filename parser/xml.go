package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// ErrUnexpectedRoot is returned by StreamXML when the document root is not
// the expected element.
var ErrUnexpectedRoot = errors.New("unexpected root element")

// ParseXML parses XML output into a structured type using generics
func ParseXML[T any](data []byte) (*T, error) {
	var result T
	if err := xml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return &result, nil
}

// NewXMLDecoder returns a decoder for UTF-8 input. Readers from NewReader are
// already transcoded, so the encoding named in the XML declaration is ignored.
func NewXMLDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return d
}

// StreamXML checks that the document root is named root and calls visit for
// every start element below it, in document order. visit may consume the
// element with DecodeElement or Skip; if it does not, the element's children
// are visited as well. Errors returned by visit abort the stream.
func StreamXML(r io.Reader, root string, visit func(d *xml.Decoder, start xml.StartElement) error) error {
	d := NewXMLDecoder(r)

	seenRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			if !seenRoot {
				return fmt.Errorf("%w: document is empty, want <%s>", ErrUnexpectedRoot, root)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse XML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !seenRoot {
			if start.Name.Local != root {
				return fmt.Errorf("%w: got <%s>, want <%s>", ErrUnexpectedRoot, start.Name.Local, root)
			}
			seenRoot = true
			continue
		}
		if err := visit(d, start); err != nil {
			return err
		}
	}
}

// Attr returns the value of the named attribute, ignoring namespaces.
func Attr(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
