package deck

import (
	"path/filepath"
	"strings"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// Row is one table record keyed by column or placeholder name
type Row map[string]string

// TableTarget designates the table that receives rows. The zero value picks
// the first table of the fragment.
type TableTarget struct {
	// Shape is the p:cNvPr name of the graphic frame holding the table
	Shape string
	// Slide limits the search to one slide, 1-based. 0 searches every slide.
	Slide int
}

// TablePayload holds the rows materialized into a fragment's table
type TablePayload struct {
	Rows   []Row
	Target TableTarget
	// Columns switches filling from placeholder names to positional cells:
	// cell j of each body row receives Row[Columns[j]].
	Columns []string
	// AutoFit spreads the body rows over the space left on the slide and
	// shrinks the dense columns when their text overflows.
	AutoFit bool
	// DenseColumns are the 0-based columns AutoFit may shrink. Empty means 2 and 3.
	DenseColumns []int
}

// ImagePayload replaces the bytes of the largest picture of a fragment
type ImagePayload struct {
	Data []byte
}

// Fragment is one independently valid presentation plus the data that will
// be substituted into it before composition.
type Fragment struct {
	Name   string
	Source string
	// Package is released to the composed document on Append and set to nil
	Package  *opc.Package
	Priority int

	Placeholders map[string]string
	Table        *TablePayload
	Image        *ImagePayload

	// Optional marks a generated fragment whose failure skips it instead of aborting the run
	Optional bool
}

// NewFragment wraps a loaded package
func NewFragment(name string, pkg *opc.Package) *Fragment {
	return &Fragment{Name: name, Package: pkg}
}

// LoadFragment reads a fragment from a .pptx file. The fragment is named after
// the file.
func LoadFragment(path string) (*Fragment, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pkg, err := opc.LoadFile(path)
	if err != nil {
		return nil, NewFragmentError(name, "load", path, nil, err)
	}
	f := NewFragment(name, pkg)
	f.Source = path
	return f, nil
}

// LoadFragmentBytes parses a fragment from container bytes
func LoadFragmentBytes(name string, data []byte) (*Fragment, error) {
	pkg, err := opc.Load(data)
	if err != nil {
		return nil, NewFragmentError(name, "load", "", nil, err)
	}
	return NewFragment(name, pkg), nil
}

// Consumed reports whether the fragment was already appended
func (f *Fragment) Consumed() bool {
	return f.Package == nil
}

// Slides returns the fragment's slide part names in order
func (f *Fragment) Slides() ([]string, error) {
	if f.Package == nil {
		return nil, NewFragmentError(f.Name, "read slides", "", ErrFragmentConsumed, nil)
	}
	slides, err := SlideParts(f.Package)
	if err != nil {
		return nil, NewFragmentError(f.Name, "read slides", "", nil, err)
	}
	return slides, nil
}

func (f *Fragment) label() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Source
}
