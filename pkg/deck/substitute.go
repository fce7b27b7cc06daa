package deck

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/benjaminschreck/go-deck/pkg/deck/render"
)

// Substituter rewrites the slides of one fragment: table rows first, then the
// picture payload, then text placeholders.
type Substituter struct {
	globals map[string]string
	logger  *Logger
}

// SubstituterOption configures a Substituter
type SubstituterOption func(*Substituter)

// WithSubstituterLogger sets the logger used for per-fragment diagnostics
func WithSubstituterLogger(logger *Logger) SubstituterOption {
	return func(s *Substituter) {
		s.logger = logger
	}
}

// NewSubstituter creates a substituter. Fragment placeholders override globals.
func NewSubstituter(globals map[string]string, opts ...SubstituterOption) *Substituter {
	s := &Substituter{globals: globals}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = GetLogger()
	}
	return s
}

// Apply substitutes f in place. Errors are *FragmentError values naming the
// fragment, the step and the missing target.
func (s *Substituter) Apply(f *Fragment) error {
	if f.Package == nil {
		return NewFragmentError(f.label(), "substitute", "", ErrFragmentConsumed, nil)
	}
	log := s.logger.WithField("fragment", f.label())

	pres, err := openPresentation(f.Package)
	if err != nil {
		return NewFragmentError(f.label(), "substitute", "open presentation", nil, err)
	}
	slides, err := pres.slides()
	if err != nil {
		return NewFragmentError(f.label(), "substitute", "read slide order", nil, err)
	}
	roots, err := slideRoots(f.Package, slides)
	if err != nil {
		return NewFragmentError(f.label(), "substitute", "read slides", nil, err)
	}

	lookup := render.MapLookup(f.Placeholders, s.globals)

	if f.Table != nil {
		if err := injectTable(f, pres, roots, lookup); err != nil {
			return err
		}
		log.Debug("injected %d table rows", len(f.Table.Rows))
	}

	if f.Image != nil {
		target, err := replaceImage(f, slides, roots)
		if err != nil {
			return err
		}
		log.Debug("replaced picture %s", target)
	}

	rewritten := 0
	for _, root := range roots {
		rewritten += render.SubstituteTree(root, lookup)
	}
	log.Debug("substituted %d paragraphs over %d slides", rewritten, len(slides))

	if missing := unresolvedPlaceholders(roots); len(missing) > 0 {
		log.Warn("unresolved placeholders: %s", strings.Join(missing, ", "))
	}
	return nil
}

// unresolvedPlaceholders lists the placeholder names still present in the slides
func unresolvedPlaceholders(roots []*etree.Element) []string {
	var names []string
	seen := make(map[string]bool)
	for _, root := range roots {
		for _, p := range render.Paragraphs(root) {
			for _, name := range render.Placeholders(render.ParagraphText(p)) {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	return names
}
