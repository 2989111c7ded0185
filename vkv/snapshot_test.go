package vkv

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_ExportThenImportIntoFreshDBRoundTrips(t *testing.T) {
	src := openTestDB(t)
	tx := src.BeginTransaction()
	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx.Set([]byte("b"), []byte("2")))
	_, err := tx.Commit()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.ExportSnapshot(&buf))

	dst := openTestDB(t)
	exportedAt, committedAt, err := dst.ImportSnapshot(&buf)
	require.NoError(t, err)
	assert.Greater(t, exportedAt, uint64(0))
	assert.Greater(t, committedAt, uint64(0))

	read := dst.BeginTransaction()
	v, ok, err := read.Get([]byte("a"), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	v, ok, err = read.Get([]byte("b"), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", string(v))
}

func TestSnapshot_ExportOmitsClearedKeys(t *testing.T) {
	db := openTestDB(t)
	tx := db.BeginTransaction()
	require.NoError(t, tx.Set([]byte("keep"), []byte("v")))
	require.NoError(t, tx.Set([]byte("drop"), []byte("v")))
	_, err := tx.Commit()
	require.NoError(t, err)

	clear := db.BeginTransaction()
	require.NoError(t, clear.Clear([]byte("drop")))
	_, err = clear.Commit()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, db.ExportSnapshot(&buf))

	dst := openTestDB(t)
	_, _, err = dst.ImportSnapshot(&buf)
	require.NoError(t, err)

	read := dst.BeginTransaction()
	_, ok, err := read.Get([]byte("drop"), true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = read.Get([]byte("keep"), true)
	require.NoError(t, err)
	assert.True(t, ok)
}
