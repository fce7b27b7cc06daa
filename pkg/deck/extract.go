package deck

import (
	"fmt"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// ExtractSlides keeps only the slides at the given 0-based positions of the
// ordering list, in their original order, and removes every part no longer
// reachable from the package root. It returns the removed part names.
func ExtractSlides(pkg *opc.Package, keep []int) ([]string, error) {
	pres, err := openPresentation(pkg)
	if err != nil {
		return nil, err
	}
	list := pres.list("sldIdLst", false)
	entries := pmlChildren(list, "sldId")

	wanted := make(map[int]bool, len(keep))
	for _, i := range keep {
		if i < 0 || i >= len(entries) {
			return nil, fmt.Errorf("slide %d out of range: presentation has %d slides", i+1, len(entries))
		}
		wanted[i] = true
	}

	dropped := make(map[string]bool)
	for i, entry := range entries {
		if wanted[i] {
			continue
		}
		if attr := relAttr(entry, "id"); attr != nil {
			dropped[attr.Value] = true
		}
		list.RemoveChild(entry)
	}
	pres.rels().RemoveIf(func(rel opc.Relationship) bool {
		return dropped[rel.ID]
	})

	// custom shows and sections name slides that may be gone
	if shows := pmlChild(pres.root, "custShowLst"); shows != nil {
		pres.root.RemoveChild(shows)
	}
	removeSectionList(pres)

	removed := pkg.Prune()
	if err := updateAppProperties(pkg, len(wanted)); err != nil {
		return nil, err
	}
	return removed, nil
}
