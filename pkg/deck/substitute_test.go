package deck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituter_PlaceholderSplitAcrossRuns(t *testing.T) {
	f := newTestFragment(t, "cover", 10, testDeck{slides: []testSlide{{
		shapes: textShape("Title 1",
			`<a:r><a:rPr b="1"/><a:t>{{고객</a:t></a:r><a:r><a:t>명}} 제</a:t></a:r><a:r><a:t>안서</a:t></a:r>`,
			runXML("{{missing}} stays"),
		),
	}}})
	f.Placeholders = map[string]string{"고객명": "ACME"}

	require.NoError(t, NewSubstituter(nil).Apply(f))

	assert.Equal(t, []string{"ACME 제안서\n{{missing}} stays"}, slideTexts(t, f.Package))
}

func TestSubstituter_FragmentValuesOverrideGlobals(t *testing.T) {
	f := newTestFragment(t, "intro", 20, textDeck("{{customer}} / {{course}}"))
	f.Placeholders = map[string]string{"course": "Python 기초"}

	sub := NewSubstituter(map[string]string{"customer": "ACME", "course": "global course"})
	require.NoError(t, sub.Apply(f))

	assert.Equal(t, []string{"ACME / Python 기초"}, slideTexts(t, f.Package))
}

func TestSubstituter_Idempotent(t *testing.T) {
	f := newTestFragment(t, "cover", 10, textDeck("{{title}}", "Prepared for {{customer}}"))
	f.Placeholders = map[string]string{"title": "AI Bootcamp", "customer": "ACME"}
	sub := NewSubstituter(nil)

	require.NoError(t, sub.Apply(f))
	first, err := f.Package.Save()
	require.NoError(t, err)

	require.NoError(t, sub.Apply(f))
	second, err := f.Package.Save()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"AI Bootcamp", "Prepared for ACME"}, slideTexts(t, f.Package))
}

func TestSubstituter_ConsumedFragment(t *testing.T) {
	f := newTestFragment(t, "cover", 10, textDeck("x"))
	f.Package = nil

	err := NewSubstituter(nil).Apply(f)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFragmentConsumed))
	assert.True(t, IsFragmentError(err))
}

func TestSubstituter_PayloadOrder(t *testing.T) {
	// table rows are filled before text substitution, so a record value that
	// itself looks like a placeholder is resolved against the globals
	f := newTestFragment(t, "timetable", 100, testDeck{slides: []testSlide{{
		shapes: tableShape("Table 1", 914400, []int64{1828800, 1828800}, 370840, [][]string{
			{"과목", "시간"},
			{"{{subject}}", "{{hours}}"},
		}),
	}}})
	f.Table = &TablePayload{Rows: []Row{{"subject": "{{customer}} 특강", "hours": "4"}}}

	require.NoError(t, NewSubstituter(map[string]string{"customer": "ACME"}).Apply(f))

	texts := slideTexts(t, f.Package)
	require.Len(t, texts, 1)
	assert.Equal(t, "과목\n시간\nACME 특강\n4", texts[0])
}
