package deck

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSlides(t *testing.T) {
	shared := solidPNG(t, color.RGBA{R: 1, A: 255})
	d := testDeck{slides: []testSlide{
		{shapes: textShape("T", runXML("one")) + pictureShape("P", "rId2", 10, 10), media: []testMedia{{"image1.png", shared}}},
		{shapes: textShape("T", runXML("two")) + pictureShape("P", "rId2", 10, 10), media: []testMedia{{"image2.png", solidPNG(t, color.Black)}}},
		{shapes: textShape("T", runXML("three")), notes: true},
	}}
	pkg := loadDeck(t, d)

	removed, err := ExtractSlides(pkg, []int{2, 0})

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, slideTexts(t, pkg), "original order is kept")
	assert.Contains(t, removed, "ppt/slides/slide2.xml")
	assert.Contains(t, removed, "ppt/media/image2.png")
	assert.True(t, pkg.HasPart("ppt/media/image1.png"))
	assert.True(t, pkg.HasPart("ppt/notesSlides/notesSlide3.xml"), "notes of kept slides stay")
	require.NoError(t, pkg.Validate())

	app, err := pkg.XML("docProps/app.xml")
	require.NoError(t, err)
	assert.Equal(t, "2", app.FindElement("./Slides").Text())

	// the result is a valid fragment
	f := NewFragment("extracted", pkg)
	doc := composeAll(t, nil, f)
	assert.Equal(t, []string{"one", "three"}, slideTexts(t, doc))
}

func TestExtractSlides_OutOfRange(t *testing.T) {
	pkg := loadDeck(t, textDeck("only"))

	_, err := ExtractSlides(pkg, []int{1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
	assert.Equal(t, []string{"only"}, slideTexts(t, pkg), "package untouched on error")
}
