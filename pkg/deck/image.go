package deck

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"github.com/beevik/etree"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
	"github.com/benjaminschreck/go-deck/pkg/deck/render"
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// picture is a p:pic candidate for image replacement
type picture struct {
	slide string
	el    *etree.Element
	area  int64
}

// largestPicture returns the picture with the largest a:ext area across the
// slides; ties go to the first in document order.
func largestPicture(slides []string, roots []*etree.Element) *picture {
	var best *picture
	for i, root := range roots {
		for _, pic := range findAll(root, func(el *etree.Element) bool { return isPML(el, "pic") }) {
			area := pictureArea(pic)
			if best == nil || area > best.area {
				best = &picture{slide: slides[i], el: pic, area: area}
			}
		}
	}
	return best
}

func pictureArea(pic *etree.Element) int64 {
	spPr := pmlChild(pic, "spPr")
	if spPr == nil {
		return 0
	}
	xfrm := render.DrawingChild(spPr, "xfrm")
	if xfrm == nil {
		return 0
	}
	ext := render.DrawingChild(xfrm, "ext")
	if ext == nil {
		return 0
	}
	return attrInt(ext, "cx") * attrInt(ext, "cy")
}

// replaceImage swaps the bytes of the media part behind the largest picture.
// The part keeps its name and relationships; only its content type follows
// the new payload.
func replaceImage(f *Fragment, slides []string, roots []*etree.Element) (string, error) {
	if len(f.Image.Data) == 0 {
		return "", NewFragmentError(f.label(), "replace image", "empty image payload", ErrRenderFailure, nil)
	}
	pic := largestPicture(slides, roots)
	if pic == nil {
		return "", NewFragmentError(f.label(), "replace image", "no p:pic on any slide", ErrNoPictureShapeFound, nil)
	}

	blips := findAll(pic.el, func(el *etree.Element) bool { return render.IsDrawingElement(el, "blip") })
	var embed *etree.Attr
	if len(blips) > 0 {
		embed = relAttr(blips[0], "embed")
	}
	if embed == nil {
		return "", NewFragmentError(f.label(), "replace image", "picture "+strconv.Quote(shapeName(pic.el))+" has no embedded image", ErrNoPictureShapeFound, nil)
	}
	target, ok := f.Package.Target(pic.slide, embed.Value)
	if !ok || !f.Package.HasPart(target) {
		return "", NewFragmentError(f.label(), "replace image", pic.slide+" "+embed.Value+" does not resolve", ErrArchiveCorrupt, nil)
	}

	f.Package.SetPart(opc.NewBinaryPart(target, append([]byte(nil), f.Image.Data...)))
	if ct := sniffImageType(f.Image.Data); ct != "" {
		f.Package.ContentTypes().Register(target, ct)
	}
	return target, nil
}

// sniffImageType infers the content type of an image payload, or "" when unknown
func sniffImageType(data []byte) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if ct, ok := imageContentTypes[format]; ok {
			return ct
		}
	}
	if isSVG(data) {
		return "image/svg+xml"
	}
	if ct := http.DetectContentType(data); bytes.HasPrefix([]byte(ct), []byte("image/")) {
		return ct
	}
	return ""
}

func isSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = bytes.TrimSpace(head)
	return bytes.HasPrefix(head, []byte("<svg")) ||
		(bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg")))
}
