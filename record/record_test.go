package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkvdb/vkv/heap"
)

func TestKey_EncodeDecodeRoundTrip(t *testing.T) {
	region := make([]byte, Size(5))
	head := heap.Ref{Kind: heap.KindValue, Bucket: 2, Page: 3, Offset: 40}

	Encode(region, Key{
		Flags:     KeyNew | KeyHasWatch,
		KeyLen:    5,
		HeadValue: head,
		Payload:   []byte("hello"),
	})

	got := Decode(region)
	assert.Equal(t, KeyNew|KeyHasWatch, got.Flags)
	assert.EqualValues(t, 5, got.KeyLen)
	assert.Equal(t, head, got.HeadValue)
	assert.Equal(t, []byte("hello"), got.Payload)
}

func TestKey_SetFlagsInPlace(t *testing.T) {
	region := make([]byte, Size(3))
	Encode(region, Key{Flags: KeyNew, KeyLen: 3, Payload: []byte("abc")})

	SetFlags(region, KeyUnreachable|KeyDisposed)

	got := Decode(region)
	assert.Equal(t, KeyUnreachable|KeyDisposed, got.Flags)
	assert.Equal(t, []byte("abc"), got.Payload, "payload must survive a flags-only update")
}

func TestKey_SetHeadValueInPlace(t *testing.T) {
	region := make([]byte, Size(1))
	Encode(region, Key{KeyLen: 1, Payload: []byte("k")})

	newHead := heap.Ref{Kind: heap.KindValue, Bucket: 1, Page: 1, Offset: 8}
	SetHeadValue(region, newHead)

	got := Decode(region)
	assert.Equal(t, newHead, got.HeadValue)
}

func TestValue_EncodeDecodeRoundTrip(t *testing.T) {
	region := make([]byte, ValueSize(4))
	prev := heap.Ref{Kind: heap.KindValue, Bucket: 0, Page: 1, Offset: 0}
	parent := heap.Ref{Kind: heap.KindKey, Bucket: 1, Page: 2, Offset: 16}

	EncodeValue(region, Value{
		Flags:    ValueMutated,
		Size:     4,
		Sequence: 42,
		Prev:     prev,
		Parent:   parent,
		Payload:  []byte("data"),
	})

	got := DecodeValue(region)
	require.EqualValues(t, 42, got.Sequence)
	assert.Equal(t, ValueMutated, got.Flags)
	assert.Equal(t, prev, got.Prev)
	assert.Equal(t, parent, got.Parent)
	assert.Equal(t, []byte("data"), got.Payload)
}

func TestValue_DeletionHasEmptyPayload(t *testing.T) {
	region := make([]byte, ValueSize(0))
	EncodeValue(region, Value{Flags: ValueDeletion, Size: 0, Sequence: 7})

	got := DecodeValue(region)
	assert.True(t, got.Flags&ValueDeletion != 0)
	assert.Empty(t, got.Payload)
}

func TestValue_SetPrevInPlace(t *testing.T) {
	region := make([]byte, ValueSize(2))
	EncodeValue(region, Value{Size: 2, Sequence: 1, Payload: []byte("hi")})

	newPrev := heap.Ref{Kind: heap.KindValue, Bucket: 3, Page: 5, Offset: 64}
	SetPrev(region, newPrev)

	got := DecodeValue(region)
	assert.Equal(t, newPrev, got.Prev)
	assert.EqualValues(t, 1, got.Sequence, "sequence must survive a prev-only update")
}
