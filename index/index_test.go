package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/slice"
)

func ref(n uint32) heap.Ref {
	return heap.Ref{Kind: heap.KindKey, Bucket: 0, Page: 1, Offset: n}
}

func TestIndex_InsertAndGet(t *testing.T) {
	idx := New()
	idx.Insert(slice.Of([]byte("b")), ref(1))

	got, ok := idx.Get(slice.Of([]byte("b")))
	require.True(t, ok)
	assert.Equal(t, ref(1), got)

	_, ok = idx.Get(slice.Of([]byte("z")))
	assert.False(t, ok)
}

func TestIndex_OverwriteReplaces(t *testing.T) {
	idx := New()
	idx.Insert(slice.Of([]byte("a")), ref(1))
	idx.Insert(slice.Of([]byte("a")), ref(2))

	got, ok := idx.Get(slice.Of([]byte("a")))
	require.True(t, ok)
	assert.Equal(t, ref(2), got)
	assert.Equal(t, 1, idx.Stats().KeyCount)
}

func TestIndex_FirstGEAndFirstGT(t *testing.T) {
	idx := New()
	idx.Insert(slice.Of([]byte("a")), ref(1))
	idx.Insert(slice.Of([]byte("c")), ref(3))
	idx.Insert(slice.Of([]byte("e")), ref(5))

	k, _, ok := idx.FirstGE(slice.Of([]byte("c")))
	require.True(t, ok)
	assert.Equal(t, "c", k.String())

	k, _, ok = idx.FirstGT(slice.Of([]byte("c")))
	require.True(t, ok)
	assert.Equal(t, "e", k.String())

	_, _, ok = idx.FirstGT(slice.Of([]byte("e")))
	assert.False(t, ok)
}

func TestIndex_LastLTAndLastLE(t *testing.T) {
	idx := New()
	idx.Insert(slice.Of([]byte("a")), ref(1))
	idx.Insert(slice.Of([]byte("c")), ref(3))

	k, _, ok := idx.LastLT(slice.Of([]byte("c")))
	require.True(t, ok)
	assert.Equal(t, "a", k.String())

	k, _, ok = idx.LastLE(slice.Of([]byte("c")))
	require.True(t, ok)
	assert.Equal(t, "c", k.String())

	_, _, ok = idx.LastLT(slice.Of([]byte("a")))
	assert.False(t, ok)
}

func TestIndex_RangeStopsAtEndExclusive(t *testing.T) {
	idx := New()
	for _, k := range []string{"a", "b", "c", "d"} {
		idx.Insert(slice.Of([]byte(k)), ref(1))
	}

	var seen []string
	idx.Range(slice.Of([]byte("b")), slice.Of([]byte("d")), func(key slice.Slice, _ heap.Ref) bool {
		seen = append(seen, key.String())
		return true
	})
	assert.Equal(t, []string{"b", "c"}, seen)
}

func TestIndex_RangeCanStopEarly(t *testing.T) {
	idx := New()
	for _, k := range []string{"a", "b", "c", "d"} {
		idx.Insert(slice.Of([]byte(k)), ref(1))
	}

	var seen []string
	idx.Range(slice.Nil, slice.Nil, func(key slice.Slice, _ heap.Ref) bool {
		seen = append(seen, key.String())
		return len(seen) < 2
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestIndex_Remove(t *testing.T) {
	idx := New()
	idx.Insert(slice.Of([]byte("a")), ref(1))
	idx.Remove(slice.Of([]byte("a")))

	_, ok := idx.Get(slice.Of([]byte("a")))
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Stats().KeyCount)
}
