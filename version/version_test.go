package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/record"
)

// fakeResolver stores raw-encoded value regions keyed by Ref.Offset,
// letting chain tests run without a real heap.Heap.
type fakeResolver struct {
	regions map[uint32][]byte
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{regions: map[uint32][]byte{}}
}

func (f *fakeResolver) put(offset uint32, v record.Value) heap.Ref {
	region := make([]byte, record.ValueSize(len(v.Payload)))
	record.EncodeValue(region, v)
	f.regions[offset] = region
	return heap.Ref{Kind: heap.KindValue, Bucket: 0, Page: 1, Offset: offset}
}

func (f *fakeResolver) Resolve(ref heap.Ref) ([]byte, error) {
	return f.regions[ref.Offset], nil
}

func TestReadAt_FindsNewestVersionAtOrBelowSeq(t *testing.T) {
	r := newFakeResolver()
	v1 := r.put(0, record.Value{Sequence: 10, Payload: []byte("v1")})
	v2 := r.put(64, record.Value{Sequence: 20, Prev: v1, Payload: []byte("v2")})
	head := r.put(128, record.Value{Sequence: 30, Prev: v2, Payload: []byte("v3")})

	payload, ok, err := ReadAt(r, head, 25)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), payload)
}

func TestReadAt_SeqBeforeAnyVersionIsAbsent(t *testing.T) {
	r := newFakeResolver()
	head := r.put(0, record.Value{Sequence: 10, Payload: []byte("v1")})

	_, ok, err := ReadAt(r, head, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadAt_DeletionMakesKeyAbsent(t *testing.T) {
	r := newFakeResolver()
	v1 := r.put(0, record.Value{Sequence: 10, Payload: []byte("v1")})
	head := r.put(64, record.Value{Sequence: 20, Prev: v1, Flags: record.ValueDeletion})

	payload, ok, err := ReadAt(r, head, 25)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestReadAt_EmptyChainIsAbsent(t *testing.T) {
	r := newFakeResolver()
	_, ok, err := ReadAt(r, heap.Ref{}, 100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApply_AddWrapsAndZeroExtends(t *testing.T) {
	got := Apply(Add, []byte{0xff, 0x00}, []byte{0x01})
	assert.Equal(t, []byte{0x00, 0x01}, got)
}

func TestApply_AddWithNoExistingValue(t *testing.T) {
	got := Apply(Add, nil, []byte{0x05, 0x00})
	assert.Equal(t, []byte{0x05, 0x00}, got)
}

func TestApply_AndOrXorZeroExtendShortOperand(t *testing.T) {
	old := []byte{0xff, 0xff, 0xff}

	assert.Equal(t, []byte{0x0f, 0x00, 0x00}, Apply(And, old, []byte{0x0f}))
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, Apply(Or, old, []byte{0x00, 0x0f}))
	assert.Equal(t, []byte{0xf0, 0xff, 0xff}, Apply(Xor, old, []byte{0x0f}))
}
