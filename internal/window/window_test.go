package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	ref := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)

	w, err := Resolve("30d", ref)
	require.NoError(t, err)
	assert.Equal(t, "30d", w.Label)
	assert.Equal(t, ref, w.End)
	assert.Equal(t, ref.AddDate(0, 0, -30), w.Start)
	assert.True(t, w.Start.Before(w.End))
	assert.Equal(t, 30, w.Days())
}

func TestResolveDeterministic(t *testing.T) {
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	a, err := Resolve("7d", ref)
	require.NoError(t, err)
	b, err := Resolve("7d", ref)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveNormalizesToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	ref := time.Date(2025, 8, 15, 9, 0, 0, 0, loc)

	w, err := Resolve("7d", ref)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, w.End.Location())
	assert.True(t, w.End.Equal(ref))
}

func TestResolveInvalidLabel(t *testing.T) {
	for _, label := range []string{"", "14d", "1y", "30", "30D"} {
		_, err := Resolve(label, time.Now())
		assert.ErrorIs(t, err, ErrInvalidLabel, "label %q", label)
	}
}

func TestResolveHalfOpenRange(t *testing.T) {
	ref := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	w, err := Resolve("7d", ref)
	require.NoError(t, err)

	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(w.End))
	assert.True(t, w.Contains(w.End.Add(-time.Second)))
	assert.False(t, w.Contains(w.Start.Add(-time.Second)))
}

func TestResolveAll(t *testing.T) {
	ref := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	windows, err := ResolveAll(AllLabels(), ref)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	for _, w := range windows {
		assert.Equal(t, ref, w.End, "all windows share the run reference")
	}

	_, err = ResolveAll([]string{"7d", "bogus"}, ref)
	assert.ErrorIs(t, err, ErrInvalidLabel)
}
