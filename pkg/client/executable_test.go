package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/sekas-io/sekas/api/v1"
)

func descWithShards(shards ...v1.ShardDesc) *v1.GroupDesc {
	return &v1.GroupDesc{ID: 1, Epoch: 9, Shards: shards}
}

func TestIsReadOnlyRequest(t *testing.T) {
	assert.True(t, isReadOnlyRequest(&v1.RequestUnion{Get: &v1.GetRequest{}}))
	assert.True(t, isReadOnlyRequest(&v1.RequestUnion{Scan: &v1.ScanRequest{}}))
	assert.False(t, isReadOnlyRequest(&v1.RequestUnion{Write: &v1.WriteRequest{}}))
	assert.False(t, isReadOnlyRequest(&v1.RequestUnion{CommitIntent: &v1.CommitIntentRequest{}}))
}

func TestIsExecutableBoundaries(t *testing.T) {
	desc := descWithShards(v1.ShardDesc{ID: 10, Start: []byte("b"), End: []byte("k")})

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"before start", "a", false},
		{"at start", "b", true},
		{"inside", "f", true},
		{"just below end", "jzzz", true},
		{"at end", "k", false},
		{"after end", "z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &v1.RequestUnion{Get: &v1.GetRequest{ShardID: 10, UserKey: []byte(tt.key)}}
			assert.Equal(t, tt.want, isExecutable(desc, req))
		})
	}
}

func TestIsExecutableOpenEndedRanges(t *testing.T) {
	unbounded := descWithShards(v1.ShardDesc{ID: 10, Start: nil, End: nil})
	req := &v1.RequestUnion{Get: &v1.GetRequest{ShardID: 10, UserKey: []byte("anything")}}
	assert.True(t, isExecutable(unbounded, req))

	// Empty end means +infinity.
	tail := descWithShards(v1.ShardDesc{ID: 10, Start: []byte("m"), End: nil})
	assert.True(t, isExecutable(tail, &v1.RequestUnion{Get: &v1.GetRequest{ShardID: 10, UserKey: []byte("zzzz")}}))
	assert.False(t, isExecutable(tail, &v1.RequestUnion{Get: &v1.GetRequest{ShardID: 10, UserKey: []byte("a")}}))
}

func TestIsExecutableMissingShard(t *testing.T) {
	desc := descWithShards(v1.ShardDesc{ID: 11, Start: nil, End: nil})
	req := &v1.RequestUnion{Get: &v1.GetRequest{ShardID: 10, UserKey: []byte("a")}}
	assert.False(t, isExecutable(desc, req))
}

func TestIsExecutableBatchWrite(t *testing.T) {
	desc := descWithShards(v1.ShardDesc{ID: 10, Start: []byte(""), End: []byte("k")})

	allInside := &v1.RequestUnion{Write: &v1.WriteRequest{
		ShardID: 10,
		Puts:    []v1.PutRequest{{Key: []byte("a")}, {Key: []byte("b")}},
		Deletes: []v1.DeleteRequest{{Key: []byte("c")}},
	}}
	assert.True(t, isExecutable(desc, allInside))

	// One key outside the range fails the whole batch.
	oneOutside := &v1.RequestUnion{Write: &v1.WriteRequest{
		ShardID: 10,
		Puts:    []v1.PutRequest{{Key: []byte("a")}, {Key: []byte("m")}},
	}}
	assert.False(t, isExecutable(desc, oneOutside))
}

func TestIsExecutableIntents(t *testing.T) {
	desc := descWithShards(v1.ShardDesc{ID: 10, Start: []byte(""), End: []byte("k")})

	put := &v1.RequestUnion{WriteIntent: &v1.WriteIntentRequest{
		ShardID: 10, Put: &v1.PutRequest{Key: []byte("a")},
	}}
	assert.True(t, isExecutable(desc, put))

	del := &v1.RequestUnion{WriteIntent: &v1.WriteIntentRequest{
		ShardID: 10, Delete: &v1.DeleteRequest{Key: []byte("z")},
	}}
	assert.False(t, isExecutable(desc, del))

	commit := &v1.RequestUnion{CommitIntent: &v1.CommitIntentRequest{ShardID: 10, UserKey: []byte("b")}}
	assert.True(t, isExecutable(desc, commit))

	clearReq := &v1.RequestUnion{ClearIntent: &v1.ClearIntentRequest{ShardID: 10, UserKey: []byte("k")}}
	assert.False(t, isExecutable(desc, clearReq))
}

func TestIsExecutableOtherRequests(t *testing.T) {
	desc := descWithShards(v1.ShardDesc{ID: 10, Start: nil, End: nil})

	// Replication and schedule requests are never re-routable by
	// predicate.
	assert.False(t, isExecutable(desc, &v1.RequestUnion{Transfer: &v1.TransferRequest{}}))
	assert.False(t, isExecutable(desc, &v1.RequestUnion{SplitShard: &v1.SplitShardRequest{}}))
	assert.False(t, isExecutable(desc, &v1.RequestUnion{}))
}

func TestIsExecutableIsPure(t *testing.T) {
	desc := descWithShards(v1.ShardDesc{ID: 10, Start: []byte("b"), End: []byte("k")})
	req := &v1.RequestUnion{Get: &v1.GetRequest{ShardID: 10, UserKey: []byte("c")}}

	first := isExecutable(desc, req)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, isExecutable(desc, req))
	}
}
