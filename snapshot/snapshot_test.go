package snapshot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct{ records []Record }

func (s fixedSource) Pairs() ([]Record, error) { return s.records, nil }

func TestExportImport_RoundTripsMultipleRecords(t *testing.T) {
	src := fixedSource{records: []Record{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("zzz"), Value: []byte("last")},
	}}

	var buf bytes.Buffer
	require.NoError(t, Export(42, src, &buf))

	seq, records, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)
	require.Len(t, records, 3)
	assert.Equal(t, src.records, records)
}

func TestExportImport_PreservesEmptyValue(t *testing.T) {
	src := fixedSource{records: []Record{
		{Key: []byte("tombstone-ish"), Value: []byte{}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Export(1, src, &buf))

	_, records, err := Import(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []byte("tombstone-ish"), records[0].Key)
	assert.Len(t, records[0].Value, 0)
}

func TestExportImport_EmptyStreamRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(7, fixedSource{}, &buf))

	seq, records, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), seq)
	assert.Empty(t, records)
}

func TestExport_RejectsEmptyKey(t *testing.T) {
	src := fixedSource{records: []Record{{Key: nil, Value: []byte("x")}}}

	var buf bytes.Buffer
	err := Export(1, src, &buf)
	assert.Error(t, err)
}

func TestImport_FailsOnTruncatedHeader(t *testing.T) {
	_, _, err := Import(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}
