// Package render provides helper functions for DrawingML text substitution.
//
// This package contains pure helpers used by the substitution engine in the
// deck package. They operate on etree elements of slide parts and never call
// back into deck, so they can be tested on their own.
//
// # Structure Organization
//
//   - placeholder.go: {{name}} scanning, lookup and value sanitising
//   - paragraph.go: run reassembly for a:p paragraphs
//
// # Run Reassembly
//
// PowerPoint may split a single placeholder over several runs, for example
// "{{cust", "omer", "}}". SubstituteParagraph reconstitutes the text of each
// run segment (the runs between line breaks and fields), substitutes the
// reconstituted string and re-emits a single run that keeps the formatting of
// the first run of the segment:
//
//	<a:p>
//	  <a:r><a:rPr b="1"/><a:t>Dear {{cust</a:t></a:r>
//	  <a:r><a:rPr/><a:t>omer}}!</a:t></a:r>
//	</a:p>
//
// becomes, with customer=ACME:
//
//	<a:p>
//	  <a:r><a:rPr b="1"/><a:t>Dear ACME!</a:t></a:r>
//	</a:p>
//
// Segments without a placeholder are never rewritten, so running the
// substitution twice yields the same tree.
package render
