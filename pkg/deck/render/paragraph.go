package render

import (
	"strings"

	"github.com/beevik/etree"
)

const drawingNamespace = "http://schemas.openxmlformats.org/drawingml/2006/main"

// IsDrawingElement reports whether el is the DrawingML element with the given local name
func IsDrawingElement(el *etree.Element, tag string) bool {
	if el == nil || el.Tag != tag {
		return false
	}
	if uri := el.NamespaceURI(); uri != "" {
		return uri == drawingNamespace
	}
	return el.Space == "a"
}

// DrawingChild returns the first DrawingML child of el with the given local name
func DrawingChild(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if IsDrawingElement(child, tag) {
			return child
		}
	}
	return nil
}

// DrawingChildren returns the DrawingML children of el with the given local name
func DrawingChildren(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if IsDrawingElement(child, tag) {
			out = append(out, child)
		}
	}
	return out
}

// Paragraphs returns every a:p under root in document order
func Paragraphs(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if IsDrawingElement(child, "p") {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// ParagraphText returns the visible text of a paragraph: runs and fields in
// document order, line breaks as "\n".
func ParagraphText(p *etree.Element) string {
	var b strings.Builder
	for _, child := range p.ChildElements() {
		switch {
		case IsDrawingElement(child, "r"), IsDrawingElement(child, "fld"):
			if t := DrawingChild(child, "t"); t != nil {
				b.WriteString(t.Text())
			}
		case IsDrawingElement(child, "br"):
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// runSegments splits the runs of a paragraph at line breaks, fields and any
// other non-run content.
func runSegments(p *etree.Element) [][]*etree.Element {
	var segments [][]*etree.Element
	var current []*etree.Element
	flush := func() {
		if len(current) > 0 {
			segments = append(segments, current)
			current = nil
		}
	}
	for _, child := range p.ChildElements() {
		switch {
		case IsDrawingElement(child, "r"):
			current = append(current, child)
		case IsDrawingElement(child, "pPr"), IsDrawingElement(child, "endParaRPr"):
		default:
			flush()
		}
	}
	flush()
	return segments
}

func segmentText(runs []*etree.Element) string {
	var b strings.Builder
	for _, r := range runs {
		if t := DrawingChild(r, "t"); t != nil {
			b.WriteString(t.Text())
		}
	}
	return b.String()
}

// SubstituteParagraph substitutes the placeholders of every run segment that
// contains one and collapses that segment into its first run. It reports
// whether the paragraph was rewritten.
//
// A segment is a maximal sequence of runs between a:br and a:fld elements, so
// collapsing happens per segment rather than per paragraph: a paragraph with
// a line break keeps one run on each side of it, and the break stays in place.
// Placeholders cannot span a break or a field.
func SubstituteParagraph(p *etree.Element, lookup Lookup) bool {
	changed := false
	for _, segment := range runSegments(p) {
		text := segmentText(segment)
		if !HasPlaceholder(text) {
			continue
		}
		collapseRuns(segment, Substitute(text, lookup))
		changed = true
	}
	return changed
}

// SubstituteTree applies SubstituteParagraph to every paragraph under root
// and returns the number of rewritten paragraphs.
func SubstituteTree(root *etree.Element, lookup Lookup) int {
	n := 0
	for _, p := range Paragraphs(root) {
		if SubstituteParagraph(p, lookup) {
			n++
		}
	}
	return n
}

// collapseRuns writes text into the first run and removes the others
func collapseRuns(runs []*etree.Element, text string) {
	first := runs[0]
	setRunText(first, text)
	for _, r := range runs[1:] {
		if parent := r.Parent(); parent != nil {
			parent.RemoveChild(r)
		}
	}
}

func setRunText(run *etree.Element, text string) {
	t := DrawingChild(run, "t")
	if t == nil {
		t = run.CreateElement(prefixed(run, "t"))
	}
	t.SetText(text)
}

// SetParagraphText replaces the whole content of a paragraph with text. The
// first run keeps its formatting; when the paragraph has no run, one is
// created from the end-of-paragraph properties.
func SetParagraphText(p *etree.Element, text string) {
	var first *etree.Element
	for _, child := range p.ChildElements() {
		switch {
		case IsDrawingElement(child, "r") && first == nil:
			first = child
		case IsDrawingElement(child, "r"), IsDrawingElement(child, "br"), IsDrawingElement(child, "fld"):
			p.RemoveChild(child)
		}
	}
	if first == nil {
		first = etree.NewElement(prefixed(p, "r"))
		if end := DrawingChild(p, "endParaRPr"); end != nil {
			rPr := end.Copy()
			rPr.Tag = "rPr"
			first.AddChild(rPr)
			p.InsertChildAt(end.Index(), first)
		} else {
			p.AddChild(first)
		}
	}
	setRunText(first, Sanitize(text))
}

// RunCount returns the number of a:r children of a paragraph
func RunCount(p *etree.Element) int {
	n := 0
	for _, child := range p.ChildElements() {
		if IsDrawingElement(child, "r") {
			n++
		}
	}
	return n
}

func prefixed(el *etree.Element, tag string) string {
	if el.Space == "" {
		return tag
	}
	return el.Space + ":" + tag
}
