package deck

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// sectionNamespace seeds the name-based section ids so that composing the
// same input twice yields the same bytes.
var sectionNamespace = uuid.MustParse("6f1c1d1e-5a4b-4c1f-9a51-3b0e4d8c2a77")

// Section describes the pages one fragment contributed to the document
type Section struct {
	Name     string
	Priority int
	SlideIDs []int
}

// Sections returns the fragments in final order. Slide ids are known once the
// document is finalized.
func (c *Composer) Sections() []Section {
	out := make([]Section, 0, len(c.fragments))
	for _, frag := range c.fragments {
		out = append(out, Section{
			Name:     frag.name,
			Priority: frag.priority,
			SlideIDs: append([]int(nil), frag.slideIDs...),
		})
	}
	return out
}

func sectionID(index int, name string) string {
	id := uuid.NewSHA1(sectionNamespace, []byte(strconv.Itoa(index)+"/"+name))
	return "{" + strings.ToUpper(id.String()) + "}"
}

// removeSectionList drops the PowerPoint 2010 section list extension
func removeSectionList(pres *presentation) {
	extLst := pmlChild(pres.root, "extLst")
	if extLst == nil {
		return
	}
	for _, ext := range pmlChildren(extLst, "ext") {
		if ext.SelectAttrValue("uri", "") == sectionListURI {
			extLst.RemoveChild(ext)
		}
	}
	if len(extLst.ChildElements()) == 0 {
		pres.root.RemoveChild(extLst)
	}
}

// writeSections writes one section per fragment holding its slide ids
func (c *Composer) writeSections() {
	removeSectionList(c.pres)
	space := c.pres.root.Space

	ext := c.pres.list("extLst", true).CreateElement(qualified(space, "ext"))
	ext.CreateAttr("uri", sectionListURI)
	list := ext.CreateElement("p14:sectionLst")
	list.CreateAttr("xmlns:p14", opc.NamespacePowerPoint14)
	for i, frag := range c.fragments {
		section := list.CreateElement("p14:section")
		section.CreateAttr("name", frag.name)
		section.CreateAttr("id", sectionID(i, frag.name))
		ids := section.CreateElement("p14:sldIdLst")
		for _, id := range frag.slideIDs {
			ids.CreateElement("p14:sldId").CreateAttr("id", strconv.Itoa(id))
		}
	}
}

// updateAppProperties rewrites the slide count, heading pairs and part
// titles of docProps/app.xml for a document holding pages slides.
func updateAppProperties(doc *opc.Package, pages int) error {
	rels := doc.Relationships("").ByType(opc.RelTypeExtendedProps)
	if len(rels) == 0 {
		return nil
	}
	name := opc.ResolveTarget("", rels[0].Target)
	if !doc.HasPart(name) {
		return nil
	}
	root, err := doc.XML(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}

	themes := doc.PartsOfType(opc.ContentTypeTheme)
	sortNatural(themes)
	titles := make([]string, 0, len(themes)+pages)
	for i, theme := range themes {
		title := fmt.Sprintf("Theme %d", i+1)
		if themeRoot, err := doc.XML(theme); err == nil {
			title = themeRoot.SelectAttrValue("name", title)
		}
		titles = append(titles, title)
	}
	for i := 1; i <= pages; i++ {
		titles = append(titles, fmt.Sprintf("Slide %d", i))
	}

	if slides := appChild(root, "Slides"); slides != nil {
		slides.SetText(strconv.Itoa(pages))
	}

	vt := vtPrefix(root)
	headings := etree.NewElement(qualified(root.Space, "HeadingPairs"))
	vector := headings.CreateElement(vt + ":vector")
	vector.CreateAttr("size", "4")
	vector.CreateAttr("baseType", "variant")
	for _, pair := range []struct {
		label string
		count int
	}{{"Theme", len(themes)}, {"Slide Titles", pages}} {
		vector.CreateElement(vt + ":variant").CreateElement(vt + ":lpstr").SetText(pair.label)
		vector.CreateElement(vt + ":variant").CreateElement(vt + ":i4").SetText(strconv.Itoa(pair.count))
	}
	replaceAppChild(root, headings)

	parts := etree.NewElement(qualified(root.Space, "TitlesOfParts"))
	vector = parts.CreateElement(vt + ":vector")
	vector.CreateAttr("size", strconv.Itoa(len(titles)))
	vector.CreateAttr("baseType", "lpstr")
	for _, title := range titles {
		vector.CreateElement(vt + ":lpstr").SetText(title)
	}
	replaceAppChild(root, parts)
	return nil
}

func appChild(root *etree.Element, tag string) *etree.Element {
	for _, child := range root.ChildElements() {
		if child.Tag == tag && child.Space == root.Space {
			return child
		}
	}
	return nil
}

// replaceAppChild swaps the child with el's tag for el, keeping its position
func replaceAppChild(root, el *etree.Element) {
	if old := appChild(root, el.Tag); old != nil {
		index := old.Index()
		root.RemoveChildAt(index)
		root.InsertChildAt(index, el)
		return
	}
	root.AddChild(el)
}

func vtPrefix(root *etree.Element) string {
	for _, attr := range root.Attr {
		if attr.Space == "xmlns" && attr.Value == opc.NamespaceDocPropsVT {
			return attr.Key
		}
	}
	root.CreateAttr("xmlns:vt", opc.NamespaceDocPropsVT)
	return "vt"
}

// sortNatural orders part names by directory, stem and numeric suffix so that
// theme2.xml sorts before theme10.xml.
func sortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		si, ni := splitNumber(names[i])
		sj, nj := splitNumber(names[j])
		if si != sj {
			return si < sj
		}
		return ni < nj
	})
}

func splitNumber(name string) (string, int) {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	prefix := strings.TrimRight(stem, "0123456789")
	n, _ := strconv.Atoi(stem[len(prefix):])
	return prefix + ext, n
}
