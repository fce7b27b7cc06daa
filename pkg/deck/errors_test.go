package deck

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "unrelated", err: errors.New("boom"), want: nil},
		{name: "sentinel", err: ErrRenderFailure, want: ErrRenderFailure},
		{name: "wrapped", err: fmt.Errorf("visual 3: %w", ErrRenderFailure), want: ErrRenderFailure},
		{name: "fragment error", err: NewFragmentError("f", "op", "", ErrTableTargetNotFound, nil), want: ErrTableTargetNotFound},
		{name: "kind from cause", err: NewFragmentError("f", "load", "", nil, fmt.Errorf("x: %w", ErrArchiveCorrupt)), want: ErrArchiveCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFragmentError(t *testing.T) {
	cause := errors.New("chrome exited")
	err := NewFragmentError("persuasion_1", "render visual", "bar_chart", ErrRenderFailure, cause)

	assert.Equal(t, `fragment "persuasion_1": render visual (bar_chart): chrome exited`, err.Error())
	assert.True(t, errors.Is(err, ErrRenderFailure))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrArchiveCorrupt))

	var fe *FragmentError
	assert.True(t, errors.As(fmt.Errorf("pipeline: %w", err), &fe))
	assert.Equal(t, "persuasion_1", fe.Fragment)

	bare := NewFragmentError("cover", "compose", "", ErrFragmentConsumed, nil)
	assert.Equal(t, `fragment "cover": compose: fragment already consumed`, bare.Error())
}

func TestMultiError(t *testing.T) {
	m := NewMultiError()
	assert.NoError(t, m.Err())
	m.Add(nil)
	assert.Equal(t, 0, m.Len())

	first := NewFragmentError("a", "render visual", "", ErrRenderFailure, nil)
	m.Add(first)
	assert.Same(t, first, m.Err())

	m.Add(fmt.Errorf("gamma: %w", ErrExternalFragmentUnavailable))
	err := m.Err()
	assert.Equal(t, 2, m.Len())
	assert.True(t, errors.Is(err, ErrRenderFailure))
	assert.True(t, errors.Is(err, ErrExternalFragmentUnavailable))
	assert.Contains(t, err.Error(), "2 errors occurred:")
	assert.Contains(t, err.Error(), "[2] gamma: external fragment unavailable")
}
