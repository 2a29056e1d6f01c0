package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		env  *Error
	}{
		{
			name: "not leader with leader hint",
			env: &Error{NotLeader: &NotLeaderDetail{
				GroupID: 1,
				Term:    7,
				Leader:  &ReplicaDesc{ID: 2, NodeID: 2, Role: ReplicaRoleVoter},
			}},
		},
		{
			name: "not leader without leader hint",
			env:  &Error{NotLeader: &NotLeaderDetail{GroupID: 1, Term: 7}},
		},
		{
			name: "group not found",
			env:  &Error{GroupNotFound: &GroupNotFoundDetail{GroupID: 42}},
		},
		{
			name: "epoch not match",
			env: &Error{EpochNotMatch: &EpochNotMatchDetail{Desc: GroupDesc{
				ID:    1,
				Epoch: JoinEpoch(2, 3),
				Replicas: []ReplicaDesc{
					{ID: 1, NodeID: 1, Role: ReplicaRoleVoter},
					{ID: 4, NodeID: 9, Role: ReplicaRoleIncomingVoter},
				},
				Shards: []ShardDesc{
					{ID: 10, TableID: 4, Start: []byte("a"), End: []byte("k")},
					{ID: 11, TableID: 4, Start: []byte("k"), End: []byte{}},
				},
			}}},
		},
		{
			name: "cas failed",
			env:  &Error{CasFailed: &CasFailedDetail{Index: 3, CondIndex: 1}},
		},
		{
			name: "txn conflict",
			env:  &Error{TxnConflict: &TxnConflictDetail{}},
		},
		{
			name: "invalid argument",
			env:  &Error{InvalidArgument: &InvalidArgumentDetail{Message: "bad key"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalError(tt.env.Marshal())
			require.NoError(t, err)
			assertEnvelopeEqual(t, tt.env, decoded)
		})
	}
}

func assertEnvelopeEqual(t *testing.T, want, got *Error) {
	t.Helper()
	switch {
	case want.NotLeader != nil:
		require.NotNil(t, got.NotLeader)
		assert.Equal(t, *want.NotLeader, *got.NotLeader)
	case want.GroupNotFound != nil:
		require.NotNil(t, got.GroupNotFound)
		assert.Equal(t, *want.GroupNotFound, *got.GroupNotFound)
	case want.EpochNotMatch != nil:
		require.NotNil(t, got.EpochNotMatch)
		assert.Equal(t, want.EpochNotMatch.Desc.Epoch, got.EpochNotMatch.Desc.Epoch)
		assert.Equal(t, want.EpochNotMatch.Desc.Replicas, got.EpochNotMatch.Desc.Replicas)
		require.Len(t, got.EpochNotMatch.Desc.Shards, len(want.EpochNotMatch.Desc.Shards))
	case want.CasFailed != nil:
		assert.Equal(t, *want.CasFailed, *got.CasFailed)
	case want.TxnConflict != nil:
		assert.NotNil(t, got.TxnConflict)
	case want.InvalidArgument != nil:
		assert.Equal(t, *want.InvalidArgument, *got.InvalidArgument)
	}
}

func TestErrorStatusCarriesEnvelope(t *testing.T) {
	env := &Error{GroupNotFound: &GroupNotFoundDetail{GroupID: 42}}

	decoded, ok := ErrorFromStatus(env.ToStatus("group not found").Err())
	require.True(t, ok)
	require.NotNil(t, decoded.GroupNotFound)
	assert.Equal(t, uint64(42), decoded.GroupNotFound.GroupID)
}

func TestErrorFromStatusWithoutEnvelope(t *testing.T) {
	_, ok := ErrorFromStatus(assert.AnError)
	assert.False(t, ok)
}
