package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkvdb/vkv/engine"
)

func commit(t *testing.T, eng *engine.Engine, key, value []byte) {
	t.Helper()
	tx := eng.BeginTransaction()
	require.NoError(t, tx.Set(key, value))
	_, err := tx.Commit()
	require.NoError(t, err)
}

func TestAllInvariants_PassesOnFreshEngine(t *testing.T) {
	eng := engine.New(engine.DefaultConfig())
	assert.NoError(t, AllInvariants(eng))
}

func TestAllInvariants_PassesAfterSeveralCommitsToTheSameKey(t *testing.T) {
	eng := engine.New(engine.DefaultConfig())
	for i := 0; i < 10; i++ {
		commit(t, eng, []byte("k"), []byte{byte(i)})
	}
	assert.NoError(t, AllInvariants(eng))
}

func TestAllInvariants_PassesWithManyDistinctKeys(t *testing.T) {
	eng := engine.New(engine.DefaultConfig())
	for i := 0; i < 50; i++ {
		commit(t, eng, []byte{byte(i)}, []byte("v"))
	}
	assert.NoError(t, AllInvariants(eng))
}

func TestAllInvariants_PassesAfterClear(t *testing.T) {
	eng := engine.New(engine.DefaultConfig())
	commit(t, eng, []byte("k"), []byte("v"))

	tx := eng.BeginTransaction()
	require.NoError(t, tx.Clear([]byte("k")))
	_, err := tx.Commit()
	require.NoError(t, err)

	assert.NoError(t, AllInvariants(eng))
}

func TestVersionChainMonotonic_HoldsAcrossManyVersionsOfOneKey(t *testing.T) {
	eng := engine.New(engine.DefaultConfig())
	for i := 0; i < 30; i++ {
		commit(t, eng, []byte("k"), []byte{byte(i)})
	}
	assert.NoError(t, VersionChainMonotonic(eng))
}

func TestParentBackPointers_HoldAfterChainGrows(t *testing.T) {
	eng := engine.New(engine.DefaultConfig())
	for i := 0; i < 5; i++ {
		commit(t, eng, []byte("k"), []byte{byte(i)})
	}
	assert.NoError(t, ParentBackPointers(eng))
}
