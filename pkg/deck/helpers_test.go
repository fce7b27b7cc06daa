package deck

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-deck/pkg/deck/decktest"
	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

type testMedia struct {
	name string
	data []byte
}

type testFont struct {
	typeface string
	data     []byte
}

type testSlide struct {
	// shapes is the XML placed inside p:spTree
	shapes string
	// media are linked as rId2, rId3, ... in order
	media []testMedia
	notes bool
}

type testDeck struct {
	slides []testSlide
	width  int64
	height int64
	theme  string
	fonts  []testFont
}

func runXML(text string) string { return decktest.Run(text) }

func textShape(name string, paragraphs ...string) string {
	return decktest.TextShape(name, paragraphs...)
}

func pictureShape(name, rID string, cx, cy int64) string {
	return decktest.PictureShape(name, rID, cx, cy)
}

// tableShape builds a graphic frame holding a table; rows[0] is the header
func tableShape(name string, top int64, widths []int64, rowHeight int64, rows [][]string) string {
	return decktest.TableShape(name, top, widths, rowHeight, rows)
}

// buildDeck writes a minimal but complete presentation container
func buildDeck(t *testing.T, d testDeck) []byte {
	t.Helper()
	spec := decktest.Deck{Width: d.width, Height: d.height, Theme: d.theme}
	for _, s := range d.slides {
		slide := decktest.Slide{Shapes: s.shapes, Notes: s.notes}
		for _, m := range s.media {
			slide.Media = append(slide.Media, decktest.Media{Name: m.name, Data: m.data})
		}
		spec.Slides = append(spec.Slides, slide)
	}
	for _, f := range d.fonts {
		spec.Fonts = append(spec.Fonts, decktest.Font{Typeface: f.typeface, Data: f.data})
	}
	return decktest.Build(t, spec)
}

func loadDeck(t *testing.T, d testDeck) *opc.Package {
	t.Helper()
	pkg, err := opc.Load(buildDeck(t, d))
	require.NoError(t, err)
	return pkg
}

func newTestFragment(t *testing.T, name string, priority int, d testDeck) *Fragment {
	t.Helper()
	f := NewFragment(name, loadDeck(t, d))
	f.Priority = priority
	return f
}

func writeDeck(t *testing.T, dir, name string, d testDeck) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buildDeck(t, d), 0o644))
	return path
}

// slideTexts returns the visible text of every slide in presentation order
func slideTexts(t *testing.T, pkg *opc.Package) []string {
	t.Helper()
	return decktest.SlideTexts(t, pkg)
}

func solidPNG(t *testing.T, c color.Color) []byte { return decktest.SolidPNG(t, c) }

func solidJPEG(t *testing.T, c color.Color) []byte { return decktest.SolidJPEG(t, c) }

func textDeck(texts ...string) testDeck {
	d := testDeck{}
	for _, text := range texts {
		d.slides = append(d.slides, testSlide{shapes: textShape("Title 1", runXML(text))})
	}
	return d
}
