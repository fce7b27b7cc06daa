package opc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorrupt is returned when a container or one of its XML parts cannot be read
	ErrCorrupt = errors.New("archive corrupt")
	// ErrInvariant is returned when the package structure is internally inconsistent
	ErrInvariant = errors.New("composition invariant violation")
)

// ArchiveError names the part that failed to load or save
type ArchiveError struct {
	Operation string
	Part      string
	Cause     error
}

func (e *ArchiveError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Part, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ArchiveError) Unwrap() []error {
	return []error{ErrCorrupt, e.Cause}
}

func corrupt(op, part string, cause error) error {
	return &ArchiveError{Operation: op, Part: part, Cause: cause}
}

// InvariantError lists every structural violation found by Validate
type InvariantError struct {
	Violations []string
}

func (e *InvariantError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%v: %s", ErrInvariant, e.Violations[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %d violations:", ErrInvariant, len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  ")
		b.WriteString(v)
	}
	return b.String()
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}
