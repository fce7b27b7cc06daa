package deck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// Failure kinds. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	// ErrArchiveCorrupt: the container or one of its XML parts could not be read
	ErrArchiveCorrupt = opc.ErrCorrupt
	// ErrNoPictureShapeFound: an image payload was supplied but the fragment has no picture
	ErrNoPictureShapeFound = errors.New("no picture shape found")
	// ErrTableTargetNotFound: table rows were supplied but no usable table exists
	ErrTableTargetNotFound = errors.New("table target not found")
	// ErrCompositionInvariantViolation: a collision or dangling reference in the composed document
	ErrCompositionInvariantViolation = opc.ErrInvariant
	// ErrRenderFailure: the image renderer failed or timed out
	ErrRenderFailure = errors.New("render failure")
	// ErrExternalFragmentUnavailable: a generated fragment could not be obtained
	ErrExternalFragmentUnavailable = errors.New("external fragment unavailable")
	// ErrFragmentConsumed: the fragment was already appended to a composed document
	ErrFragmentConsumed = errors.New("fragment already consumed")
)

var kinds = []error{
	ErrArchiveCorrupt,
	ErrNoPictureShapeFound,
	ErrTableTargetNotFound,
	ErrCompositionInvariantViolation,
	ErrRenderFailure,
	ErrExternalFragmentUnavailable,
	ErrFragmentConsumed,
}

// KindOf returns the failure kind err belongs to, or nil
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// FragmentError scopes a failure to one fragment and names what was missing.
// It matches Kind and Cause with errors.Is.
type FragmentError struct {
	Fragment string
	Op       string
	Detail   string
	Kind     error
	Cause    error
}

func (e *FragmentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fragment %q: %s", e.Fragment, e.Op)
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	switch {
	case e.Cause != nil:
		fmt.Fprintf(&b, ": %v", e.Cause)
	case e.Kind != nil:
		fmt.Fprintf(&b, ": %v", e.Kind)
	}
	return b.String()
}

func (e *FragmentError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewFragmentError creates a new fragment error. The kind is taken from cause
// when it already carries one.
func NewFragmentError(fragment, op, detail string, kind, cause error) error {
	if kind == nil {
		kind = KindOf(cause)
	}
	return &FragmentError{
		Fragment: fragment,
		Op:       op,
		Detail:   detail,
		Kind:     kind,
		Cause:    cause,
	}
}

// IsFragmentError checks if an error is a fragment error
func IsFragmentError(err error) bool {
	var fe *FragmentError
	return errors.As(err, &fe)
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors
func (m *MultiError) Errors() []error {
	return append([]error(nil), m.errors...)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

func (m *MultiError) Unwrap() []error {
	return m.errors
}
