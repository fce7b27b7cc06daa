package deck

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

func composeAll(t *testing.T, opts []ComposerOption, fragments ...*Fragment) *opc.Package {
	t.Helper()
	c := NewComposer(opts...)
	for _, f := range fragments {
		require.NoError(t, c.Append(f))
	}
	doc, err := c.Document()
	require.NoError(t, err)
	return doc
}

func presentationRoot(t *testing.T, doc *opc.Package) *etree.Element {
	t.Helper()
	root, err := doc.XML("ppt/presentation.xml")
	require.NoError(t, err)
	return root
}

func sectionExt(t *testing.T, doc *opc.Package) *etree.Element {
	t.Helper()
	for _, ext := range presentationRoot(t, doc).FindElements("./p:extLst/p:ext") {
		if ext.SelectAttrValue("uri", "") == sectionListURI {
			return ext
		}
	}
	return nil
}

func TestCompose_PriorityOrder(t *testing.T) {
	var fragments []*Fragment
	for _, priority := range []int{30, 10, 20} {
		fragments = append(fragments, newTestFragment(t, "p"+strconv.Itoa(priority), priority,
			textDeck(fmt.Sprintf("page %d", priority))))
	}

	doc := composeAll(t, nil, fragments...)

	assert.Equal(t, []string{"page 10", "page 20", "page 30"}, slideTexts(t, doc))
	for _, f := range fragments {
		assert.True(t, f.Consumed())
	}
}

func TestCompose_EqualPrioritiesKeepAppendOrder(t *testing.T) {
	doc := composeAll(t, nil,
		newTestFragment(t, "a", 100, textDeck("a1", "a2")),
		newTestFragment(t, "b", 50, textDeck("b1")),
		newTestFragment(t, "c", 100, textDeck("c1")),
	)

	assert.Equal(t, []string{"b1", "a1", "a2", "c1"}, slideTexts(t, doc))
}

func TestCompose_NoCollisions(t *testing.T) {
	var fragments []*Fragment
	for i := 0; i < 3; i++ {
		d := textDeck(fmt.Sprintf("deck %d", i))
		d.theme = fmt.Sprintf("Design %d", i)
		fragments = append(fragments, newTestFragment(t, fmt.Sprintf("f%d", i), i, d))
	}

	doc := composeAll(t, nil, fragments...)

	require.NoError(t, doc.Validate())
	assert.Len(t, doc.PartsOfType(opc.ContentTypeSlide), 3)
	assert.Len(t, doc.PartsOfType(opc.ContentTypeSlideMaster), 3)
	assert.Len(t, doc.PartsOfType(opc.ContentTypeSlideLayout), 3)
	assert.Len(t, doc.PartsOfType(opc.ContentTypeTheme), 3)

	// masters and layouts share one id space
	seen := make(map[uint64]bool)
	collect := func(id string) {
		n, err := strconv.ParseUint(id, 10, 32)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, uint64(firstMasterID))
		assert.False(t, seen[n], "duplicate id %d", n)
		seen[n] = true
	}
	pres := presentationRoot(t, doc)
	masters := pres.FindElements("./p:sldMasterIdLst/p:sldMasterId")
	require.Len(t, masters, 3)
	for _, m := range masters {
		collect(m.SelectAttrValue("id", ""))
	}
	for _, name := range doc.PartsOfType(opc.ContentTypeSlideMaster) {
		root, err := doc.XML(name)
		require.NoError(t, err)
		for _, layout := range root.FindElements("./p:sldLayoutIdLst/p:sldLayoutId") {
			collect(layout.SelectAttrValue("id", ""))
		}
	}
	assert.Len(t, seen, 6)

	slideIDs := pres.FindElements("./p:sldIdLst/p:sldId")
	require.Len(t, slideIDs, 3)
	for i, el := range slideIDs {
		assert.Equal(t, strconv.Itoa(firstSlideID+i), el.SelectAttrValue("id", ""))
	}
}

func TestCompose_EachFragmentKeepsItsDesign(t *testing.T) {
	a := textDeck("a")
	a.theme = "Spartan Blue"
	b := textDeck("b")
	b.theme = "Gamma Dark"

	doc := composeAll(t, nil, newTestFragment(t, "a", 1, a), newTestFragment(t, "b", 2, b))

	slides, err := SlideParts(doc)
	require.NoError(t, err)
	var themes []string
	for _, slide := range slides {
		layout := doc.Relationships(slide).ByType(opc.RelTypeSlideLayout)
		require.Len(t, layout, 1)
		layoutName := opc.ResolveTarget(slide, layout[0].Target)
		master := doc.Relationships(layoutName).ByType(opc.RelTypeSlideMaster)
		require.Len(t, master, 1)
		masterName := opc.ResolveTarget(layoutName, master[0].Target)
		theme := doc.Relationships(masterName).ByType(opc.RelTypeTheme)
		require.Len(t, theme, 1)
		root, err := doc.XML(opc.ResolveTarget(masterName, theme[0].Target))
		require.NoError(t, err)
		themes = append(themes, root.SelectAttrValue("name", ""))
	}
	assert.Equal(t, []string{"Spartan Blue", "Gamma Dark"}, themes)

	// the presentation theme follows the first master
	presTheme := doc.Relationships("ppt/presentation.xml").ByType(opc.RelTypeTheme)
	require.Len(t, presTheme, 1)
	root, err := doc.XML(opc.ResolveTarget("ppt/presentation.xml", presTheme[0].Target))
	require.NoError(t, err)
	assert.Equal(t, "Spartan Blue", root.SelectAttrValue("name", ""))
}

func TestCompose_MediaDeduplicated(t *testing.T) {
	logo := solidPNG(t, color.RGBA{R: 200, A: 255})
	photo := solidPNG(t, color.RGBA{B: 200, A: 255})
	slide := func(media ...testMedia) testSlide {
		shapes := ""
		for i := range media {
			shapes += pictureShape(fmt.Sprintf("Picture %d", i+1), fmt.Sprintf("rId%d", i+2), 100, 100)
		}
		return testSlide{shapes: shapes, media: media}
	}

	doc := composeAll(t, nil,
		newTestFragment(t, "a", 1, testDeck{slides: []testSlide{slide(testMedia{"image1.png", logo})}}),
		newTestFragment(t, "b", 2, testDeck{slides: []testSlide{slide(testMedia{"image1.png", logo}, testMedia{"image2.png", photo})}}),
		newTestFragment(t, "c", 3, testDeck{slides: []testSlide{slide(testMedia{"logo.png", logo})}}),
	)

	require.NoError(t, doc.Validate())
	counts := map[string]int{}
	for _, name := range doc.PartNames() {
		part, _ := doc.Part(name)
		switch {
		case bytes.Equal(part.Data, logo):
			counts["logo"]++
		case bytes.Equal(part.Data, photo):
			counts["photo"]++
		}
	}
	assert.Equal(t, map[string]int{"logo": 1, "photo": 1}, counts)
}

func TestCompose_MediaNotSharedWithThumbnail(t *testing.T) {
	photo := solidJPEG(t, color.RGBA{G: 200, A: 255})
	withThumbnail := loadDeck(t, textDeck("cover"))
	withThumbnail.SetPart(opc.NewBinaryPart("docProps/thumbnail.jpeg", photo))
	withThumbnail.ContentTypes().Register("docProps/thumbnail.jpeg", "image/jpeg")
	withThumbnail.Relationships("").Add(
		"http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail",
		"docProps/thumbnail.jpeg")
	cover := NewFragment("cover", withThumbnail)
	cover.Priority = 1

	picture := newTestFragment(t, "picture", 2, testDeck{slides: []testSlide{{
		shapes: pictureShape("Picture 1", "rId2", 100, 100),
		media:  []testMedia{{"image1.jpeg", photo}},
	}}})

	doc := composeAll(t, nil, cover, picture)
	require.NoError(t, doc.Validate())

	slides, err := SlideParts(doc)
	require.NoError(t, err)
	require.Len(t, slides, 2)
	images := doc.Relationships(slides[1]).ByType(opc.RelTypeImage)
	require.Len(t, images, 1)
	target := opc.ResolveTarget(slides[1], images[0].Target)
	assert.True(t, strings.HasPrefix(target, "ppt/media/"), target)
	part, ok := doc.Part(target)
	require.True(t, ok)
	assert.Equal(t, photo, part.Data)
}

func TestCompose_DropsNotes(t *testing.T) {
	d := textDeck("with notes")
	d.slides[0].notes = true

	doc := composeAll(t, nil, newTestFragment(t, "a", 1, d), newTestFragment(t, "b", 2, d))

	require.NoError(t, doc.Validate())
	assert.Empty(t, doc.PartsOfType(opc.ContentTypeNotesSlide))
	assert.Empty(t, doc.PartsOfType(opc.ContentTypeNotesMaster))
	assert.Nil(t, presentationRoot(t, doc).FindElement("./p:notesMasterIdLst"))
}

func TestCompose_EmbeddedFontsUnion(t *testing.T) {
	pretendard := []byte("pretendard font data")
	a := textDeck("a")
	a.fonts = []testFont{{"Pretendard", pretendard}}
	b := textDeck("b")
	b.fonts = []testFont{{"Pretendard", pretendard}, {"Noto Sans KR", []byte("noto font data")}}

	doc := composeAll(t, nil, newTestFragment(t, "a", 1, a), newTestFragment(t, "b", 2, b))

	require.NoError(t, doc.Validate())
	var faces []string
	for _, el := range presentationRoot(t, doc).FindElements("./p:embeddedFontLst/p:embeddedFont/p:font") {
		faces = append(faces, el.SelectAttrValue("typeface", ""))
	}
	assert.Equal(t, []string{"Pretendard", "Noto Sans KR"}, faces)
	assert.Len(t, doc.Relationships("ppt/presentation.xml").ByType(opc.RelTypeFont), 2)
}

func TestCompose_SlideSize(t *testing.T) {
	wide := textDeck("wide")
	tall := textDeck("tall")
	tall.width, tall.height = 9144000, 7000000

	t.Run("harmonized", func(t *testing.T) {
		doc := composeAll(t, []ComposerOption{WithSizeHarmonization(true)},
			newTestFragment(t, "wide", 1, wide), newTestFragment(t, "tall", 2, tall))
		sz := presentationRoot(t, doc).FindElement("./p:sldSz")
		require.NotNil(t, sz)
		assert.Equal(t, "12192000", sz.SelectAttrValue("cx", ""))
		assert.Equal(t, "7000000", sz.SelectAttrValue("cy", ""))
	})

	t.Run("first fragment wins", func(t *testing.T) {
		doc := composeAll(t, []ComposerOption{WithSizeHarmonization(false)},
			newTestFragment(t, "tall", 1, tall), newTestFragment(t, "wide", 2, wide))
		sz := presentationRoot(t, doc).FindElement("./p:sldSz")
		require.NotNil(t, sz)
		assert.Equal(t, "9144000", sz.SelectAttrValue("cx", ""))
		assert.Equal(t, "7000000", sz.SelectAttrValue("cy", ""))
	})
}

func TestCompose_Sections(t *testing.T) {
	c := NewComposer(WithSections(true))
	require.NoError(t, c.Append(newTestFragment(t, "ending", 990, textDeck("thanks"))))
	require.NoError(t, c.Append(newTestFragment(t, "cover", 10, textDeck("cover", "toc"))))
	doc, err := c.Document()
	require.NoError(t, err)

	sections := c.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, Section{Name: "cover", Priority: 10, SlideIDs: []int{256, 257}}, sections[0])
	assert.Equal(t, Section{Name: "ending", Priority: 990, SlideIDs: []int{258}}, sections[1])

	ext := sectionExt(t, doc)
	require.NotNil(t, ext)
	var names []string
	for _, s := range ext.FindElements(".//p14:section") {
		names = append(names, s.SelectAttrValue("name", ""))
		assert.Regexp(t, `^\{[0-9A-F-]{36}\}$`, s.SelectAttrValue("id", ""))
	}
	assert.Equal(t, []string{"cover", "ending"}, names)

	t.Run("disabled", func(t *testing.T) {
		doc := composeAll(t, []ComposerOption{WithSections(false)}, newTestFragment(t, "a", 1, textDeck("a")))
		assert.Nil(t, sectionExt(t, doc))
	})
}

func TestCompose_AppProperties(t *testing.T) {
	a := textDeck("a1", "a2")
	a.theme = "Cover Design"
	b := textDeck("b1")
	b.theme = "Body Design"

	doc := composeAll(t, nil, newTestFragment(t, "a", 1, a), newTestFragment(t, "b", 2, b))

	root, err := doc.XML("docProps/app.xml")
	require.NoError(t, err)
	assert.Equal(t, "3", root.FindElement("./Slides").Text())

	var headings []string
	for _, el := range root.FindElements("./HeadingPairs/vt:vector/vt:variant/*") {
		headings = append(headings, el.Text())
	}
	assert.Equal(t, []string{"Theme", "2", "Slide Titles", "3"}, headings)

	var titles []string
	for _, el := range root.FindElements("./TitlesOfParts/vt:vector/vt:lpstr") {
		titles = append(titles, el.Text())
	}
	require.Len(t, titles, 5)
	assert.ElementsMatch(t, []string{"Cover Design", "Body Design"}, titles[:2])
	assert.Equal(t, []string{"Slide 1", "Slide 2", "Slide 3"}, titles[2:])
	assert.Equal(t, "5", root.FindElement("./TitlesOfParts/vt:vector").SelectAttrValue("size", ""))
}

func TestCompose_FragmentConsumed(t *testing.T) {
	f := newTestFragment(t, "cover", 10, textDeck("cover"))
	c := NewComposer()
	require.NoError(t, c.Append(f))

	err := c.Append(f)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFragmentConsumed))
	assert.Equal(t, 1, c.Pages())
}

func TestCompose_AppendAfterFinalize(t *testing.T) {
	c := NewComposer()
	require.NoError(t, c.Append(newTestFragment(t, "a", 1, textDeck("a"))))
	_, err := c.Document()
	require.NoError(t, err)

	err = c.Append(newTestFragment(t, "b", 2, textDeck("b")))

	assert.True(t, errors.Is(err, ErrCompositionInvariantViolation))
}

func TestCompose_SelfCheckRejectsDanglingReference(t *testing.T) {
	broken := testDeck{slides: []testSlide{{
		shapes: textShape("Title 1", `<a:r><a:rPr lang="ko-KR"><a:hlinkClick r:id="rId77"/></a:rPr><a:t>link</a:t></a:r>`),
	}}}
	dest := filepath.Join(t.TempDir(), "out.pptx")

	err := Compose([]*Fragment{
		newTestFragment(t, "ok", 1, textDeck("ok")),
		newTestFragment(t, "broken", 2, broken),
	}, dest)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompositionInvariantViolation))
	assert.Contains(t, err.Error(), "rId77")
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
}

func TestComposer_EmptyDocument(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "empty.pptx")

	err := NewComposer().WriteFile(dest)

	assert.True(t, errors.Is(err, ErrCompositionInvariantViolation))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestComposer_WriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out", "[팀스파르타] ACME 제안서.pptx")
	logo := solidPNG(t, color.RGBA{G: 128, A: 255})
	withPicture := testDeck{slides: []testSlide{{
		shapes: textShape("Title 1", runXML("{{고객명}}")) + pictureShape("Logo", "rId2", 100, 100),
		media:  []testMedia{{"image1.png", logo}},
	}}}

	cover := newTestFragment(t, "cover", 10, withPicture)
	body := newTestFragment(t, "body", 20, textDeck("body 1", "body 2"))
	sub := NewSubstituter(map[string]string{"고객명": "ACME"})
	require.NoError(t, sub.Apply(cover))
	require.NoError(t, sub.Apply(body))

	require.NoError(t, Compose([]*Fragment{body, cover}, dest))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary and lock files are removed")
	assert.Equal(t, filepath.Base(dest), entries[0].Name())

	loaded, err := opc.LoadFile(dest)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())
	assert.Equal(t, []string{"ACME", "body 1", "body 2"}, slideTexts(t, loaded))

	first, err := loaded.Save()
	require.NoError(t, err)
	reloaded, err := opc.Load(first)
	require.NoError(t, err)
	second, err := reloaded.Save()
	require.NoError(t, err)
	assert.Equal(t, first, second, "save is stable across a load cycle")
	assert.Equal(t, loaded.PartNames(), reloaded.PartNames())
}

func TestWriteArchive_RejectsUnreadableData(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "bad.pptx")

	err := WriteArchive(dest, []byte("not a zip"))

	assert.True(t, errors.Is(err, ErrCompositionInvariantViolation))
	entries, readErr := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
