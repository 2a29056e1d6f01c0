package router

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

func groupState(id, epoch uint64) v1.RouterGroupState {
	return v1.RouterGroupState{
		ID:    id,
		Epoch: epoch,
		Replicas: map[uint64]v1.ReplicaDesc{
			1: {ID: 1, NodeID: 1},
		},
		LeaderState: &v1.LeaderState{ReplicaID: 1, Term: 6},
	}
}

func TestFindGroupMiss(t *testing.T) {
	r := New()
	_, err := r.FindGroup(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndFindGroup(t *testing.T) {
	r := New()
	r.UpdateGroup(groupState(1, 5))

	state, err := r.FindGroup(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), state.Epoch)
	require.NotNil(t, state.LeaderState)
	assert.Equal(t, uint64(1), state.LeaderState.ReplicaID)
}

func TestStaleGroupUpdateIgnored(t *testing.T) {
	r := New()
	r.UpdateGroup(groupState(1, 9))
	r.UpdateGroup(groupState(1, 5))

	state, err := r.FindGroup(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), state.Epoch)
}

func TestLookupsReturnCopies(t *testing.T) {
	r := New()
	r.UpdateGroup(groupState(1, 5))

	state, err := r.FindGroup(1)
	require.NoError(t, err)
	state.Replicas[99] = v1.ReplicaDesc{ID: 99, NodeID: 99}
	state.LeaderState.ReplicaID = 99

	fresh, err := r.FindGroup(1)
	require.NoError(t, err)
	assert.NotContains(t, fresh.Replicas, uint64(99))
	assert.Equal(t, uint64(1), fresh.LeaderState.ReplicaID)
}

func TestNodeAddrs(t *testing.T) {
	r := New()
	_, err := r.FindNodeAddr(1)
	assert.ErrorIs(t, err, ErrNotFound)

	r.UpdateNodeAddr(1, "127.0.0.1:21001")
	addr, err := r.FindNodeAddr(1)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:21001", addr)
}

func TestApplySnapshotReplacesTable(t *testing.T) {
	r := New()
	r.UpdateGroup(groupState(1, 5))
	r.UpdateNodeAddr(1, "127.0.0.1:21001")

	r.ApplySnapshot(Snapshot{
		Groups: map[uint64]v1.RouterGroupState{2: groupState(2, 3)},
		Nodes:  map[uint64]string{2: "127.0.0.1:21002"},
	})

	_, err := r.FindGroup(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.FindNodeAddr(1)
	assert.ErrorIs(t, err, ErrNotFound)

	state, err := r.FindGroup(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), state.Epoch)
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenSnapshotStore(dir)
	require.NoError(t, err)

	r, err := NewWithStore(store)
	require.NoError(t, err)
	r.UpdateGroup(groupState(1, 5))
	r.UpdateNodeAddr(1, "127.0.0.1:21001")
	require.NoError(t, store.Close())

	// A fresh process warm-starts from the persisted table.
	store, err = OpenSnapshotStore(dir)
	require.NoError(t, err)
	defer store.Close()

	restored, err := NewWithStore(store)
	require.NoError(t, err)

	state, err := restored.FindGroup(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), state.Epoch)
	addr, err := restored.FindNodeAddr(1)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:21001", addr)
}
