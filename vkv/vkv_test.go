package vkv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{CollectorInterval: -1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB_SetThenGetRoundTrips(t *testing.T) {
	db := openTestDB(t)
	tx := db.BeginTransaction()
	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	seq, err := tx.Commit()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	read := db.BeginTransaction()
	v, ok, err := read.Get([]byte("a"), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))
}

func TestDB_ReadOnlyRejectsWrites(t *testing.T) {
	db, err := Open(Options{ReadOnly: true, CollectorInterval: -1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tx := db.BeginTransaction()
	assert.Error(t, tx.Set([]byte("a"), []byte("1")))
}

func TestDB_ConflictingCommitsFailOne(t *testing.T) {
	db := openTestDB(t)
	seed := db.BeginTransaction()
	require.NoError(t, seed.Set([]byte("k"), []byte("0")))
	_, err := seed.Commit()
	require.NoError(t, err)

	t1 := db.BeginTransaction()
	_, err = t1.Get([]byte("k"), false)
	require.NoError(t, err)

	t2 := db.BeginTransaction()
	require.NoError(t, t2.Set([]byte("k"), []byte("from-t2")))
	_, err = t2.Commit()
	require.NoError(t, err)

	require.NoError(t, t1.Set([]byte("k"), []byte("from-t1")))
	_, err = t1.Commit()
	assert.Error(t, err)
}

func TestDB_AtomicAddAccumulates(t *testing.T) {
	db := openTestDB(t)
	operand := []byte{1, 0, 0, 0, 0, 0, 0, 0}

	for i := 0; i < 3; i++ {
		tx := db.BeginTransaction()
		require.NoError(t, tx.Atomic([]byte("counter"), AtomicAdd, operand))
		_, err := tx.Commit()
		require.NoError(t, err)
	}

	read := db.BeginTransaction()
	v, ok, err := read.Get([]byte("counter"), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte(3), v[0])
}

func TestDB_CollectOnceRunsManuallyWhenBackgroundLoopDisabled(t *testing.T) {
	db := openTestDB(t)
	tx := db.BeginTransaction()
	require.NoError(t, tx.Set([]byte("k"), []byte("v")))
	_, err := tx.Commit()
	require.NoError(t, err)

	st := db.CollectOnce()
	assert.GreaterOrEqual(t, st.Horizon, uint64(1))
}

func TestDB_WatchFiresOnCommit(t *testing.T) {
	db := openTestDB(t)
	tx := db.BeginTransaction()
	ch := tx.Watch([]byte("k"))

	writer := db.BeginTransaction()
	require.NoError(t, writer.Set([]byte("k"), []byte("v")))
	_, err := writer.Commit()
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire")
	}
}
