package deck

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceImage_LargestArea(t *testing.T) {
	small := solidPNG(t, color.RGBA{R: 255, A: 255})
	large := solidPNG(t, color.RGBA{G: 255, A: 255})
	medium := solidPNG(t, color.RGBA{B: 255, A: 255})
	f := newTestFragment(t, "visual", 30, testDeck{slides: []testSlide{
		{
			shapes: pictureShape("Picture 1", "rId2", 10, 10) + pictureShape("Picture 2", "rId3", 20, 20),
			media:  []testMedia{{"image1.png", small}, {"image2.png", large}},
		},
		{
			shapes: pictureShape("Picture 3", "rId2", 25, 10),
			media:  []testMedia{{"image3.png", medium}},
		},
	}})
	payload := solidJPEG(t, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	f.Image = &ImagePayload{Data: payload}

	require.NoError(t, NewSubstituter(nil).Apply(f))

	replaced, ok := f.Package.Part("ppt/media/image2.png")
	require.True(t, ok)
	assert.Equal(t, payload, replaced.Data)
	assert.Equal(t, "image/jpeg", f.Package.ContentTypes().TypeOf("ppt/media/image2.png"))

	for name, want := range map[string][]byte{"ppt/media/image1.png": small, "ppt/media/image3.png": medium} {
		part, ok := f.Package.Part(name)
		require.True(t, ok)
		assert.Equal(t, want, part.Data, name)
		assert.Equal(t, "image/png", f.Package.ContentTypes().TypeOf(name))
	}

	// the picture keeps its geometry and relationship
	root, err := f.Package.XML("ppt/slides/slide1.xml")
	require.NoError(t, err)
	pic := root.FindElement(".//p:pic[2]")
	require.NotNil(t, pic)
	assert.Equal(t, "rId3", pic.FindElement(".//a:blip").SelectAttrValue("r:embed", ""))
	assert.Equal(t, "20", pic.FindElement(".//a:ext").SelectAttrValue("cx", ""))
	assert.NoError(t, f.Package.Validate())
}

func TestReplaceImage_TieGoesToFirstPicture(t *testing.T) {
	first := solidPNG(t, color.White)
	second := solidPNG(t, color.Black)
	f := newTestFragment(t, "visual", 30, testDeck{slides: []testSlide{{
		shapes: pictureShape("Picture 1", "rId2", 30, 20) + pictureShape("Picture 2", "rId3", 20, 30),
		media:  []testMedia{{"image1.png", first}, {"image2.png", second}},
	}}})
	payload := solidPNG(t, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	f.Image = &ImagePayload{Data: payload}

	require.NoError(t, NewSubstituter(nil).Apply(f))

	part, _ := f.Package.Part("ppt/media/image1.png")
	assert.Equal(t, payload, part.Data)
	part, _ = f.Package.Part("ppt/media/image2.png")
	assert.Equal(t, second, part.Data)
}

func TestReplaceImage_Errors(t *testing.T) {
	t.Run("no picture", func(t *testing.T) {
		f := newTestFragment(t, "visual", 30, textDeck("text only"))
		f.Image = &ImagePayload{Data: solidPNG(t, color.White)}

		err := NewSubstituter(nil).Apply(f)

		assert.True(t, errors.Is(err, ErrNoPictureShapeFound))
		assert.Equal(t, ErrNoPictureShapeFound, KindOf(err))
	})

	t.Run("empty payload", func(t *testing.T) {
		f := newTestFragment(t, "visual", 30, testDeck{slides: []testSlide{{
			shapes: pictureShape("Picture 1", "rId2", 10, 10),
			media:  []testMedia{{"image1.png", solidPNG(t, color.White)}},
		}}})
		f.Image = &ImagePayload{}

		err := NewSubstituter(nil).Apply(f)

		assert.True(t, errors.Is(err, ErrRenderFailure))
	})
}

func TestSniffImageType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "png", data: solidPNG(t, color.White), want: "image/png"},
		{name: "jpeg", data: solidJPEG(t, color.White), want: "image/jpeg"},
		{name: "gif", data: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), want: "image/gif"},
		{name: "svg", data: []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"/>`), want: "image/svg+xml"},
		{name: "svg with prolog", data: []byte("<?xml version=\"1.0\"?>\n<svg/>"), want: "image/svg+xml"},
		{name: "unknown", data: []byte("plain text"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffImageType(tt.data))
		})
	}
}
