package deck

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-deck/pkg/deck/render"
)

// Table auto-fit geometry. Lengths are EMU, font sizes hundredths of a point.
const (
	emuPerInch        = 914400
	tableBottomMargin = 274320 // 0.3in
	minRowHeight      = 457200 // 0.5in
	defaultFontSize   = 1100
	minFontSize       = 850
	cellPaddingPt     = 12.0
	lineSpacing       = 1.3
	// charWidthPerPt is the average glyph width in inches per point of font
	// size for mixed Hangul and Latin text
	charWidthPerPt = 0.012
)

var defaultDenseColumns = []int{2, 3}

func injectTable(f *Fragment, pres *presentation, roots []*etree.Element, lookup render.Lookup) error {
	payload := f.Table
	frame, tbl := locateTable(roots, payload.Target)
	if tbl == nil {
		return NewFragmentError(f.label(), "inject table", describeTarget(payload.Target), ErrTableTargetNotFound, nil)
	}

	rows := render.DrawingChildren(tbl, "tr")
	if len(rows) == 0 {
		return NewFragmentError(f.label(), "inject table", "table has no rows", ErrTableTargetNotFound, nil)
	}
	body := rows[1:]
	if len(payload.Rows) > 0 && len(body) == 0 {
		return NewFragmentError(f.label(), "inject table", "table has only a header row", ErrTableTargetNotFound, nil)
	}

	body = resizeBody(tbl, body, len(payload.Rows))
	for i, tr := range body {
		fillRow(tr, payload.Rows[i], payload.Columns, lookup)
	}

	if payload.AutoFit && len(body) > 0 {
		dense := payload.DenseColumns
		if len(dense) == 0 {
			dense = defaultDenseColumns
		}
		autoFitTable(pres, frame, tbl, dense)
	}
	return nil
}

func describeTarget(target TableTarget) string {
	var parts []string
	if target.Shape != "" {
		parts = append(parts, fmt.Sprintf("shape %q", target.Shape))
	}
	if target.Slide > 0 {
		parts = append(parts, fmt.Sprintf("slide %d", target.Slide))
	}
	if len(parts) == 0 {
		return "no table in fragment"
	}
	return "no table at " + strings.Join(parts, " on ")
}

// locateTable returns the graphic frame and a:tbl designated by target
func locateTable(roots []*etree.Element, target TableTarget) (frame, tbl *etree.Element) {
	for i, root := range roots {
		if target.Slide > 0 && i != target.Slide-1 {
			continue
		}
		frames := findAll(root, func(el *etree.Element) bool { return isPML(el, "graphicFrame") })
		for _, frame := range frames {
			if target.Shape != "" && shapeName(frame) != target.Shape {
				continue
			}
			tables := findAll(frame, func(el *etree.Element) bool { return render.IsDrawingElement(el, "tbl") })
			if len(tables) > 0 {
				return frame, tables[0]
			}
		}
	}
	return nil, nil
}

// shapeName returns the p:cNvPr name of a shape, picture or graphic frame
func shapeName(shape *etree.Element) string {
	for _, child := range shape.ChildElements() {
		if !strings.HasPrefix(child.Tag, "nv") {
			continue
		}
		if cNvPr := pmlChild(child, "cNvPr"); cNvPr != nil {
			return cNvPr.SelectAttrValue("name", "")
		}
	}
	return ""
}

// resizeBody makes the table hold exactly n body rows. Extra rows are deep
// copies of the last template row taken before any substitution.
func resizeBody(tbl *etree.Element, body []*etree.Element, n int) []*etree.Element {
	switch {
	case n > len(body):
		template := body[len(body)-1]
		last := template
		for len(body) < n {
			clone := template.Copy()
			tbl.InsertChildAt(last.Index()+1, clone)
			body = append(body, clone)
			last = clone
		}
	case n < len(body):
		for _, tr := range body[n:] {
			tbl.RemoveChild(tr)
		}
		body = body[:n]
	}
	return body
}

func fillRow(tr *etree.Element, record Row, columns []string, lookup render.Lookup) {
	if len(columns) > 0 {
		cells := render.DrawingChildren(tr, "tc")
		for j, column := range columns {
			if j >= len(cells) {
				break
			}
			setCellText(cells[j], record[column])
		}
		return
	}
	render.SubstituteTree(tr, render.Chain(render.MapLookup(record), lookup))
}

// setCellText overwrites a cell: the first paragraph keeps its first run's
// formatting and receives the text, other paragraphs are removed.
func setCellText(tc *etree.Element, text string) {
	txBody := render.DrawingChild(tc, "txBody")
	if txBody == nil {
		return
	}
	paragraphs := render.DrawingChildren(txBody, "p")
	if len(paragraphs) == 0 {
		return
	}
	render.SetParagraphText(paragraphs[0], text)
	for _, p := range paragraphs[1:] {
		txBody.RemoveChild(p)
	}
}

// autoFitTable spreads the body rows over the height left on the slide and
// shrinks the dense columns when their estimated text overflows a row.
func autoFitTable(pres *presentation, frame, tbl *etree.Element, dense []int) {
	_, slideHeight, ok := pres.slideSize()
	if !ok {
		return
	}
	rows := render.DrawingChildren(tbl, "tr")
	if len(rows) < 2 {
		return
	}
	body := rows[1:]

	available := slideHeight - frameTop(frame) - tableBottomMargin - attrInt(rows[0], "h")
	rowHeight := available / int64(len(body))
	if rowHeight < minRowHeight {
		rowHeight = minRowHeight
	}
	for _, tr := range body {
		tr.CreateAttr("h", strconv.FormatInt(rowHeight, 10))
	}

	shrinkDenseColumns(tbl, body, rowHeight, dense)
}

func frameTop(frame *etree.Element) int64 {
	xfrm := pmlChild(frame, "xfrm")
	if xfrm == nil {
		return 0
	}
	off := render.DrawingChild(xfrm, "off")
	if off == nil {
		return 0
	}
	return attrInt(off, "y")
}

func attrInt(el *etree.Element, key string) int64 {
	n, err := strconv.ParseInt(el.SelectAttrValue(key, "0"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func shrinkDenseColumns(tbl *etree.Element, body []*etree.Element, rowHeight int64, dense []int) {
	var widths []int64
	if grid := render.DrawingChild(tbl, "tblGrid"); grid != nil {
		for _, col := range render.DrawingChildren(grid, "gridCol") {
			widths = append(widths, attrInt(col, "w"))
		}
	}
	isDense := make(map[int]bool, len(dense))
	for _, c := range dense {
		isDense[c] = true
	}

	baseSize := firstFontSize(body[0])
	fontPt := float64(baseSize) / 100

	worst := 0
	for _, tr := range body {
		for j, tc := range render.DrawingChildren(tr, "tc") {
			if !isDense[j] {
				continue
			}
			if j >= len(widths) {
				break
			}
			text := cellText(tc)
			if text == "" {
				continue
			}
			worst = max(worst, estimateLines(text, widths[j], fontPt))
		}
	}
	if worst <= 0 {
		return
	}

	usablePt := float64(rowHeight)*72/emuPerInch - cellPaddingPt
	neededPt := float64(worst) * fontPt * lineSpacing
	if neededPt <= usablePt {
		return
	}

	size := max(int(float64(baseSize)*usablePt/neededPt), minFontSize)
	for _, tr := range body {
		for j, tc := range render.DrawingChildren(tr, "tc") {
			if isDense[j] {
				setCellFontSize(tc, size)
			}
		}
	}
}

// firstFontSize reads the run size of the first paragraph of the first cell
// carrying a text body.
func firstFontSize(tr *etree.Element) int {
	for _, tc := range render.DrawingChildren(tr, "tc") {
		txBody := render.DrawingChild(tc, "txBody")
		if txBody == nil {
			continue
		}
		p := render.DrawingChild(txBody, "p")
		if p == nil {
			break
		}
		for _, r := range render.DrawingChildren(p, "r") {
			rPr := render.DrawingChild(r, "rPr")
			if rPr == nil {
				continue
			}
			if sz, err := strconv.Atoi(rPr.SelectAttrValue("sz", "")); err == nil {
				return sz
			}
		}
		break
	}
	return defaultFontSize
}

func cellText(tc *etree.Element) string {
	txBody := render.DrawingChild(tc, "txBody")
	if txBody == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range render.DrawingChildren(txBody, "p") {
		for _, r := range render.DrawingChildren(p, "r") {
			if t := render.DrawingChild(r, "t"); t != nil {
				b.WriteString(t.Text())
			}
		}
	}
	return b.String()
}

// estimateLines guesses how many lines text wraps to in a column of the given
// width. Blank lines count as half a line.
func estimateLines(text string, widthEMU int64, fontPt float64) int {
	usable := math.Max(float64(widthEMU)/emuPerInch-0.2, 0.5)
	perLine := max(1, int(usable/(fontPt*charWidthPerPt)))

	total := 0.0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			total += 0.5
			continue
		}
		total += math.Ceil(float64(utf8.RuneCountInString(line)) / float64(perLine))
	}
	return int(math.Ceil(total))
}

func setCellFontSize(tc *etree.Element, size int) {
	txBody := render.DrawingChild(tc, "txBody")
	if txBody == nil {
		return
	}
	for _, p := range render.DrawingChildren(txBody, "p") {
		for _, r := range render.DrawingChildren(p, "r") {
			if rPr := render.DrawingChild(r, "rPr"); rPr != nil {
				rPr.CreateAttr("sz", strconv.Itoa(size))
			}
		}
	}
}
