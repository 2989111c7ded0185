package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	return Config{
		Name: "test",
		Buckets: []BucketSpec{
			{MaxRecordSize: 64, PageSize: 256},
			{MaxRecordSize: 512, PageSize: 1024},
		},
	}
}

func TestHeap_AppendReturnsAlignedRegion(t *testing.T) {
	h := New(KindKey, smallConfig())

	ref, region, err := h.Append(20)
	require.NoError(t, err)
	assert.Len(t, region, 20)
	assert.True(t, ref.Valid())
	assert.Equal(t, KindKey, ref.Kind)
	assert.EqualValues(t, 1, ref.Page)
}

func TestHeap_AppendPicksSmallestFittingBucket(t *testing.T) {
	h := New(KindValue, smallConfig())

	ref, _, err := h.Append(10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, ref.Bucket)

	ref, _, err = h.Append(100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ref.Bucket)
}

func TestHeap_AppendTooLargeForAnyBucketFails(t *testing.T) {
	h := New(KindKey, smallConfig())

	_, _, err := h.Append(10_000)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestHeap_AppendGrowsNewPageWhenFull(t *testing.T) {
	h := New(KindKey, smallConfig())

	// Bucket 0 has a 256 byte page; 64-byte aligned records fit ~4 per page.
	var refs []Ref
	for i := 0; i < 8; i++ {
		ref, _, err := h.Append(64)
		require.NoError(t, err)
		refs = append(refs, ref)
	}

	assert.Greater(t, h.PageCount(0), 1, "should have grown beyond one page")
	assert.NotEqual(t, refs[0].Page, refs[len(refs)-1].Page, "later allocations should land on a later page")
}

func TestHeap_ResolveRoundTrips(t *testing.T) {
	h := New(KindValue, smallConfig())

	ref, region, err := h.Append(16)
	require.NoError(t, err)
	copy(region, []byte("0123456789abcdef"))

	got, err := h.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), got[:16])
}

func TestHeap_ResolveRejectsWrongKind(t *testing.T) {
	h := New(KindKey, smallConfig())
	ref, _, err := h.Append(16)
	require.NoError(t, err)

	ref.Kind = KindValue
	_, err = h.Resolve(ref)
	assert.ErrorIs(t, err, ErrBadRef)
}

func TestHeap_ResolveRejectsOutOfRangePage(t *testing.T) {
	h := New(KindKey, smallConfig())
	ref := Ref{Kind: KindKey, Bucket: 0, Page: 99, Offset: 0}

	_, err := h.Resolve(ref)
	assert.ErrorIs(t, err, ErrBadRef)
}

func TestHeap_SwapReplacesPageContents(t *testing.T) {
	h := New(KindKey, smallConfig())
	ref, region, err := h.Append(16)
	require.NoError(t, err)
	copy(region, []byte("original........"))

	scratch := h.NewScratchPage(int(ref.Bucket))
	_, newRegion, ok := scratch.append(16)
	require.True(t, ok)
	copy(newRegion, []byte("compacted......."))

	err = h.Swap(int(ref.Bucket), ref.Page, scratch)
	require.NoError(t, err)

	got, err := h.Resolve(Ref{Kind: KindKey, Bucket: ref.Bucket, Page: ref.Page, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("compacted......."), got[:16])
}

func TestHeap_StatsReportsOccupancy(t *testing.T) {
	h := New(KindKey, smallConfig())
	_, _, err := h.Append(64)
	require.NoError(t, err)

	stats := h.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].Pages)
	assert.Greater(t, stats[0].Used, int64(0))
	assert.Equal(t, int64(256), stats[0].Capacity)
}

func TestHeap_DisposeClearsPages(t *testing.T) {
	h := New(KindKey, smallConfig())
	_, _, err := h.Append(64)
	require.NoError(t, err)

	h.Dispose()
	assert.Equal(t, 0, h.PageCount(0))
}
