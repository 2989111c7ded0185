package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkvdb/vkv/slice"
)

func rng(b, e string) Range {
	return Range{Begin: slice.Of([]byte(b)), End: slice.Of([]byte(e))}
}

func TestWindow_MergeWritesTracksLastVersion(t *testing.T) {
	w := New(time.Unix(0, 0))
	require.NoError(t, w.MergeWrites([]Range{rng("a", "b")}, 5))
	require.NoError(t, w.MergeWrites([]Range{rng("c", "d")}, 9))

	assert.EqualValues(t, 5, w.FirstVersion())
	assert.EqualValues(t, 9, w.LastVersion())
	assert.Equal(t, 2, w.Cardinality())
}

func TestWindow_ConflictsDetectsOverlapAboveReadSeq(t *testing.T) {
	w := New(time.Unix(0, 0))
	require.NoError(t, w.MergeWrites([]Range{rng("x", "x\x00")}, 6))

	assert.True(t, w.Conflicts([]Range{rng("x", "x\x00")}, 5))
}

func TestWindow_NoConflictWhenReadSeqCoversWrite(t *testing.T) {
	w := New(time.Unix(0, 0))
	require.NoError(t, w.MergeWrites([]Range{rng("x", "x\x00")}, 6))

	assert.False(t, w.Conflicts([]Range{rng("x", "x\x00")}, 6))
}

func TestWindow_NoConflictWhenRangesDisjoint(t *testing.T) {
	w := New(time.Unix(0, 0))
	require.NoError(t, w.MergeWrites([]Range{rng("a", "b")}, 6))

	assert.False(t, w.Conflicts([]Range{rng("c", "d")}, 1))
}

func TestWindow_MergeOverlapTakesMaxSeq(t *testing.T) {
	w := New(time.Unix(0, 0))
	require.NoError(t, w.MergeWrites([]Range{rng("a", "m")}, 5))
	require.NoError(t, w.MergeWrites([]Range{rng("g", "z")}, 10))

	// The overlap [g, m) must now carry seq 10, so a read at seq 9 over
	// that slice conflicts even though it was first written at seq 5.
	assert.True(t, w.Conflicts([]Range{rng("g", "m")}, 9))
	// The untouched [a, g) portion still only carries seq 5.
	assert.False(t, w.Conflicts([]Range{rng("a", "g")}, 5))
}

func TestWindow_MergeWritesRejectsAfterClose(t *testing.T) {
	w := New(time.Unix(0, 0))
	w.Close()

	err := w.MergeWrites([]Range{rng("a", "b")}, 1)
	assert.Error(t, err)
}

func TestWindow_ConflictsShortCircuitsOnFirstHit(t *testing.T) {
	w := New(time.Unix(0, 0))
	require.NoError(t, w.MergeWrites([]Range{rng("a", "b"), rng("y", "z")}, 10))

	assert.True(t, w.Conflicts([]Range{rng("a", "b"), rng("y", "z")}, 1))
}
