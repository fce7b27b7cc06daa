// Package decktest builds small but complete presentation containers for
// tests of packages that consume decks.
package decktest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
	"github.com/benjaminschreck/go-deck/pkg/deck/render"
)

// NS declares the a, r and p prefixes for hand-written parts
const NS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const (
	relNS   = `http://schemas.openxmlformats.org/package/2006/relationships`
	relType = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/`
)

// Default 16:9 slide size in EMU
const (
	Width  = 12192000
	Height = 6858000
)

// Media is a binary part linked from a slide
type Media struct {
	Name string
	Data []byte
}

// Font is an embedded font
type Font struct {
	Typeface string
	Data     []byte
}

// Slide describes one slide
type Slide struct {
	// Shapes is the XML placed inside p:spTree
	Shapes string
	// Media are linked as rId2, rId3, ... in order
	Media []Media
	Notes bool
}

// Deck describes a presentation with one master, one layout and one theme
type Deck struct {
	Slides []Slide
	Width  int64
	Height int64
	Theme  string
	Fonts  []Font
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Run returns a text run
func Run(text string) string {
	return `<a:r><a:rPr lang="ko-KR" dirty="0"/><a:t>` + xmlEscaper.Replace(text) + `</a:t></a:r>`
}

// TextShape returns a shape with one paragraph per argument
func TextShape(name string, paragraphs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>`, name)
	for _, p := range paragraphs {
		b.WriteString(`<a:p>` + p + `</a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp>`)
	return b.String()
}

// PictureShape returns a picture showing the image linked as rID
func PictureShape(name, rID string, cx, cy int64) string {
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="3" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		name, rID, cx, cy)
}

// TableShape returns a graphic frame holding a table; rows[0] is the header
func TableShape(name string, top int64, widths []int64, rowHeight int64, rows [][]string) string {
	var b strings.Builder
	var total int64
	for _, w := range widths {
		total += w
	}
	fmt.Fprintf(&b, `<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="4" name="%s"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`, name)
	fmt.Fprintf(&b, `<p:xfrm><a:off x="0" y="%d"/><a:ext cx="%d" cy="%d"/></p:xfrm>`, top, total, rowHeight*int64(len(rows)))
	b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl><a:tblPr firstRow="1"/><a:tblGrid>`)
	for _, w := range widths {
		fmt.Fprintf(&b, `<a:gridCol w="%d"/>`, w)
	}
	b.WriteString(`</a:tblGrid>`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<a:tr h="%d">`, rowHeight)
		for _, cell := range row {
			b.WriteString(`<a:tc><a:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="ko-KR" sz="1100"/><a:t>` +
				xmlEscaper.Replace(cell) + `</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc>`)
		}
		b.WriteString(`</a:tr>`)
	}
	b.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	return b.String()
}

// Rel returns a Relationship element of the office-document relationship type
func Rel(id, typ, target string) string {
	return fmt.Sprintf(`<Relationship Id="%s" Type="%s%s" Target="%s"/>`, id, relType, typ, target)
}

// Rels returns a complete .rels part
func Rels(rels ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<Relationships xmlns="` + relNS + `">` + strings.Join(rels, "") + `</Relationships>`
}

// Text returns a deck with one title shape per slide
func Text(texts ...string) Deck {
	d := Deck{}
	for _, text := range texts {
		d.Slides = append(d.Slides, Slide{Shapes: TextShape("Title 1", Run(text))})
	}
	return d
}

// Build writes the container bytes of d
func Build(t testing.TB, d Deck) []byte {
	t.Helper()
	if d.Width == 0 {
		d.Width, d.Height = Width, Height
	}
	if d.Theme == "" {
		d.Theme = "Office Theme"
	}
	hasNotes := false
	for _, s := range d.Slides {
		hasNotes = hasNotes || s.Notes
	}

	entries := map[string]string{}
	overrides := []string{
		`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`,
		`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`,
		`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`,
		`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`,
		`<Override PartName="/ppt/presProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"/>`,
		`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`,
	}

	entries["_rels/.rels"] = Rels(
		Rel("rId1", "officeDocument", "ppt/presentation.xml"),
		Rel("rId2", "extended-properties", "docProps/app.xml"),
	)
	entries["docProps/app.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">` +
		`<Application>Microsoft Office PowerPoint</Application>` +
		fmt.Sprintf(`<Slides>%d</Slides>`, len(d.Slides)) +
		`<HeadingPairs><vt:vector size="2" baseType="variant"><vt:variant><vt:lpstr>Theme</vt:lpstr></vt:variant><vt:variant><vt:i4>1</vt:i4></vt:variant></vt:vector></HeadingPairs>` +
		`<TitlesOfParts><vt:vector size="1" baseType="lpstr"><vt:lpstr>Office Theme</vt:lpstr></vt:vector></TitlesOfParts>` +
		`</Properties>`

	presRels := []string{
		Rel("rId1", "slideMaster", "slideMasters/slideMaster1.xml"),
		Rel("rId2", "theme", "theme/theme1.xml"),
		Rel("rId3", "presProps", "presProps.xml"),
	}
	var sldIDs, fonts strings.Builder
	for i, s := range d.Slides {
		n := i + 1
		rID := fmt.Sprintf("rId%d", 10+i)
		presRels = append(presRels, Rel(rID, "slide", fmt.Sprintf("slides/slide%d.xml", n)))
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rID)
		overrides = append(overrides, fmt.Sprintf(`<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, n))

		slideRels := []string{Rel("rId1", "slideLayout", "../slideLayouts/slideLayout1.xml")}
		for j, m := range s.Media {
			slideRels = append(slideRels, Rel(fmt.Sprintf("rId%d", 2+j), "image", "../media/"+m.Name))
			entries["ppt/media/"+m.Name] = string(m.Data)
		}
		if s.Notes {
			slideRels = append(slideRels, Rel("rId90", "notesSlide", fmt.Sprintf("../notesSlides/notesSlide%d.xml", n)))
			entries[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = `<p:notes ` + NS + `><p:cSld><p:spTree/></p:cSld></p:notes>`
			entries[fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", n)] = Rels(
				Rel("rId1", "notesMaster", "../notesMasters/notesMaster1.xml"),
				Rel("rId2", "slide", fmt.Sprintf("../slides/slide%d.xml", n)),
			)
			overrides = append(overrides, fmt.Sprintf(`<Override PartName="/ppt/notesSlides/notesSlide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"/>`, n))
		}
		entries[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = Rels(slideRels...)
		entries[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = `<p:sld ` + NS + `><p:cSld><p:spTree>` +
			`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
			s.Shapes + `</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
	}

	notesMasterList := ""
	if hasNotes {
		presRels = append(presRels, Rel("rId4", "notesMaster", "notesMasters/notesMaster1.xml"))
		notesMasterList = `<p:notesMasterIdLst><p:notesMasterId r:id="rId4"/></p:notesMasterIdLst>`
		entries["ppt/notesMasters/notesMaster1.xml"] = `<p:notesMaster ` + NS + `><p:cSld><p:spTree/></p:cSld></p:notesMaster>`
		entries["ppt/notesMasters/_rels/notesMaster1.xml.rels"] = Rels(Rel("rId1", "theme", "../theme/theme2.xml"))
		entries["ppt/theme/theme2.xml"] = `<a:theme ` + NS + ` name="Notes Theme"><a:themeElements/></a:theme>`
		overrides = append(overrides,
			`<Override PartName="/ppt/notesMasters/notesMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"/>`,
			`<Override PartName="/ppt/theme/theme2.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`,
		)
	}

	for i, font := range d.Fonts {
		rID := fmt.Sprintf("rId%d", 100+i)
		name := fmt.Sprintf("fonts/font%d.fntdata", i+1)
		presRels = append(presRels, Rel(rID, "font", name))
		entries["ppt/"+name] = string(font.Data)
		fmt.Fprintf(&fonts, `<p:embeddedFont><p:font typeface="%s"/><p:regular r:id="%s"/></p:embeddedFont>`, font.Typeface, rID)
	}
	fontList := ""
	if fonts.Len() > 0 {
		fontList = `<p:embeddedFontLst>` + fonts.String() + `</p:embeddedFontLst>`
	}

	entries["ppt/presentation.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<p:presentation ` + NS + ` saveSubsetFonts="1">` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
		notesMasterList +
		`<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>` +
		fmt.Sprintf(`<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, d.Width, d.Height) +
		fontList +
		`<p:defaultTextStyle/></p:presentation>`
	entries["ppt/_rels/presentation.xml.rels"] = Rels(presRels...)
	entries["ppt/presProps.xml"] = `<p:presentationPr ` + NS + `/>`
	entries["ppt/slideMasters/slideMaster1.xml"] = `<p:sldMaster ` + NS + `><p:cSld><p:spTree/></p:cSld>` +
		`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst></p:sldMaster>`
	entries["ppt/slideMasters/_rels/slideMaster1.xml.rels"] = Rels(
		Rel("rId1", "slideLayout", "../slideLayouts/slideLayout1.xml"),
		Rel("rId2", "theme", "../theme/theme1.xml"),
	)
	entries["ppt/slideLayouts/slideLayout1.xml"] = `<p:sldLayout ` + NS + `><p:cSld name="Title"><p:spTree/></p:cSld></p:sldLayout>`
	entries["ppt/slideLayouts/_rels/slideLayout1.xml.rels"] = Rels(Rel("rId1", "slideMaster", "../slideMasters/slideMaster1.xml"))
	entries["ppt/theme/theme1.xml"] = `<a:theme ` + NS + ` name="` + xmlEscaper.Replace(d.Theme) + `"><a:themeElements/></a:theme>`

	entries["[Content_Types].xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`<Default Extension="jpeg" ContentType="image/jpeg"/>` +
		`<Default Extension="fntdata" ContentType="application/x-fontdata"/>` +
		strings.Join(overrides, "") + `</Types>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// Load builds d and parses it
func Load(t testing.TB, d Deck) *opc.Package {
	t.Helper()
	pkg, err := opc.Load(Build(t, d))
	require.NoError(t, err)
	return pkg
}

// Write builds d into dir/name and returns the path
func Write(t testing.TB, dir, name string, d Deck) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, Build(t, d), 0o644))
	return path
}

// SlideTexts returns the visible text of every slide in presentation order,
// paragraphs joined by newlines
func SlideTexts(t testing.TB, pkg *opc.Package) []string {
	t.Helper()
	slides := slideParts(t, pkg)
	texts := make([]string, 0, len(slides))
	for _, name := range slides {
		root, err := pkg.XML(name)
		require.NoError(t, err)
		var parts []string
		for _, p := range render.Paragraphs(root) {
			parts = append(parts, render.ParagraphText(p))
		}
		texts = append(texts, strings.Join(parts, "\n"))
	}
	return texts
}

// slideParts follows p:sldIdLst of the main presentation part
func slideParts(t testing.TB, pkg *opc.Package) []string {
	t.Helper()
	presName, err := pkg.MainDocument()
	require.NoError(t, err)
	root, err := pkg.XML(presName)
	require.NoError(t, err)

	var slides []string
	for _, id := range root.FindElements("./p:sldIdLst/p:sldId") {
		rID := id.SelectAttrValue("r:id", "")
		name, ok := pkg.Target(presName, rID)
		require.True(t, ok, "slide id %s has no relationship", rID)
		slides = append(slides, name)
	}
	return slides
}

// SolidPNG encodes a 2x2 image of one color
func SolidPNG(t testing.TB, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(2, c)))
	return buf.Bytes()
}

// SolidJPEG encodes a 4x4 image of one color
func SolidJPEG(t testing.TB, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(4, c), nil))
	return buf.Bytes()
}

func solid(size int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}
