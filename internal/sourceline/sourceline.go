// Package sourceline loads XML documents with source positions attached.
//
// The document model carries no positions, so Load records the line of every
// element and inserts a <?ln file:line?> processing instruction immediately
// before it. Lookup recovers the position from the marker. The markers travel
// with the document when it is re-serialized, so positions reported against
// the serialized form can be mapped back with FromSerialized.
package sourceline

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/roach88/candle/internal/ir"
)

// Target is the processing-instruction target of a line marker.
const Target = "ln"

// Load parses data and marks every element with its source line.
func Load(data []byte, file string) (*etree.Document, error) {
	lines, err := elementLines(data)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", file)
	}
	if doc.Root() == nil {
		return nil, errors.Newf("parsing %s: no root element", file)
	}

	var elements []*etree.Element
	collect(doc.Root(), &elements)
	if len(elements) != len(lines) {
		return nil, errors.AssertionFailedf("%s: %d elements but %d start tags", file, len(elements), len(lines))
	}

	for i, el := range elements {
		Mark(el, ir.SourceLine{File: file, Line: lines[i]})
	}
	return doc, nil
}

// Mark inserts a line marker immediately before el.
func Mark(el *etree.Element, loc ir.SourceLine) {
	parent := el.Parent()
	if parent == nil {
		return
	}
	pi := etree.NewProcInst(Target, loc.File+":"+strconv.Itoa(loc.Line))
	parent.InsertChildAt(el.Index(), pi)
}

// Lookup returns the position recorded for el, or the zero SourceLine when
// el carries no marker.
func Lookup(el *etree.Element) ir.SourceLine {
	if el == nil || el.Parent() == nil {
		return ir.SourceLine{}
	}
	siblings := el.Parent().Child
	for i := el.Index() - 1; i >= 0; i-- {
		switch tok := siblings[i].(type) {
		case *etree.ProcInst:
			if tok.Target == Target {
				return parse(tok.Inst)
			}
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return ir.SourceLine{}
			}
		case *etree.Comment:
		default:
			return ir.SourceLine{}
		}
	}
	return ir.SourceLine{}
}

// FromSerialized returns the position of the nearest marker at or before the
// given 1-based line of a serialized document.
func FromSerialized(data []byte, line int) ir.SourceLine {
	end := len(data)
	for i, n := 0, 0; i < len(data); i++ {
		if data[i] == '\n' {
			n++
			if n == line {
				end = i
				break
			}
		}
	}

	prefix := data[:end]
	start := bytes.LastIndex(prefix, []byte("<?"+Target+" "))
	if start < 0 {
		return ir.SourceLine{}
	}
	rest := prefix[start+len(Target)+3:]
	stop := bytes.Index(rest, []byte("?>"))
	if stop < 0 {
		return ir.SourceLine{}
	}
	return parse(string(rest[:stop]))
}

func parse(inst string) ir.SourceLine {
	inst = strings.TrimSpace(inst)
	colon := strings.LastIndexByte(inst, ':')
	if colon < 0 {
		return ir.SourceLine{File: inst}
	}
	line, err := strconv.Atoi(inst[colon+1:])
	if err != nil {
		return ir.SourceLine{File: inst}
	}
	return ir.SourceLine{File: inst[:colon], Line: line}
}

func collect(el *etree.Element, out *[]*etree.Element) {
	*out = append(*out, el)
	for _, child := range el.ChildElements() {
		collect(child, out)
	}
}

// elementLines returns the starting line of every start tag in document order.
func elementLines(data []byte) ([]int, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charsetReader
	var lines []int
	for {
		line, _ := d.InputPos()
		tok, err := d.RawToken()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		if _, ok := tok.(xml.StartElement); ok {
			lines = append(lines, line)
		}
	}
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, errors.Newf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
