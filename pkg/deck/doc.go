// Package deck assembles one PowerPoint presentation from independently
// authored slide decks ("fragments").
//
// Each fragment is a complete .pptx. It is substituted once (text
// placeholders, table rows, one picture) and then appended to a Composer,
// which copies its slides together with every layout, master, theme, font and
// media part they depend on under fresh names, so each fragment keeps its own
// design.
//
// # Quick Start
//
//	cover, err := deck.LoadFragment("templates/00_cover.pptx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cover.Priority = 10
//	cover.Placeholders = map[string]string{"title": "AI Bootcamp"}
//
//	sub := deck.NewSubstituter(map[string]string{"customer": "ACME"})
//	if err := sub.Apply(cover); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := deck.Compose([]*deck.Fragment{cover, agenda}, "out/deck.pptx"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Placeholders
//
// Text placeholders use double curly braces around a name made of letters
// (any script), digits and underscores:
//
//	{{customer}}    {{고객명}}    {{module_1_title}}
//
// A placeholder split over several runs by the editor is still found; the
// paragraph segment holding it is collapsed into its first run. Unknown
// placeholders are left in place so missing values stay visible.
//
// # Tables and Pictures
//
// A TablePayload keeps the header row of the target table, grows or shrinks
// the body to the number of records by cloning the last body row, then fills
// each row. An ImagePayload replaces the bytes of the picture with the largest
// area; the picture keeps its size, position and relationships.
//
// # Composition
//
// Fragments are ordered by Priority (ascending, ties in append order). The
// first fragment provides the presentation shell. Binary parts with identical
// bytes are stored once. WriteFile validates the document, writes it through a
// temporary file and renames it into place only when it loads back.
//
// # Errors
//
// Every error matches one of the sentinel kinds (ErrArchiveCorrupt,
// ErrNoPictureShapeFound, ErrTableTargetNotFound,
// ErrCompositionInvariantViolation, ErrRenderFailure,
// ErrExternalFragmentUnavailable, ErrFragmentConsumed) with errors.Is.
// Fragment-scoped failures are *FragmentError values naming the fragment.
package deck
