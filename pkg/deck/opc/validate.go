package opc

import (
	"fmt"

	"github.com/beevik/etree"
)

// Validate checks the structural invariants of the package:
//   - every internal relationship target exists,
//   - every part has a content type,
//   - every r:* attribute of an XML part names a relationship of that part.
//
// All violations are reported together in an *InvariantError.
func (p *Package) Validate() error {
	var violations []string

	for _, source := range p.RelationshipSources() {
		if source != "" {
			if _, ok := p.parts[source]; !ok {
				if p.rels[source].Len() > 0 {
					violations = append(violations, fmt.Sprintf("relationships owned by missing part %s", source))
				}
				continue
			}
		}
		for _, rel := range p.rels[source].Relationship {
			if rel.IsExternal() {
				continue
			}
			target := ResolveTarget(source, rel.Target)
			if target == "" {
				continue
			}
			if _, ok := p.parts[target]; !ok {
				violations = append(violations, fmt.Sprintf("%s %s targets missing part %s", sourceLabel(source), rel.ID, target))
			}
		}
	}

	for _, name := range p.PartNames() {
		if p.types.TypeOf(name) == "" {
			violations = append(violations, fmt.Sprintf("part %s has no content type", name))
		}
		part := p.parts[name]
		if !part.IsXML() {
			continue
		}
		rels := p.rels[name]
		for _, ref := range RelationshipRefs(part.Root()) {
			if rels == nil {
				violations = append(violations, fmt.Sprintf("%s references %s but has no relationships", name, ref.Value))
				continue
			}
			if _, ok := rels.Get(ref.Value); !ok {
				violations = append(violations, fmt.Sprintf("%s references unknown relationship %s", name, ref.Value))
			}
		}
	}

	if len(violations) > 0 {
		return &InvariantError{Violations: violations}
	}
	return nil
}

func sourceLabel(source string) string {
	if source == "" {
		return "package relationship"
	}
	return source
}

// RelationshipRefs returns every non-empty attribute in the relationships
// namespace (r:id, r:embed, r:link, ...) under root, in document order.
func RelationshipRefs(root *etree.Element) []*etree.Attr {
	var refs []*etree.Attr
	walkElements(root, func(el *etree.Element) {
		for i := range el.Attr {
			attr := &el.Attr[i]
			if attr.Value != "" && IsRelationshipAttr(attr) {
				refs = append(refs, attr)
			}
		}
	})
	return refs
}

// IsRelationshipAttr reports whether attr lives in the office relationships namespace
func IsRelationshipAttr(attr *etree.Attr) bool {
	if attr.Space == "" || attr.Space == "xmlns" {
		return false
	}
	if uri := attr.NamespaceURI(); uri != "" {
		return uri == NamespaceOfficeRels
	}
	return attr.Space == "r"
}

// RewriteRelationshipRefs replaces relationship ids under root through idMap.
// Ids missing from the map are left alone.
func RewriteRelationshipRefs(root *etree.Element, idMap map[string]string) {
	for _, attr := range RelationshipRefs(root) {
		if newID, ok := idMap[attr.Value]; ok {
			attr.Value = newID
		}
	}
}

func walkElements(el *etree.Element, fn func(*etree.Element)) {
	if el == nil {
		return
	}
	fn(el)
	for _, child := range el.ChildElements() {
		walkElements(child, fn)
	}
}
