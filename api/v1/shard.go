package v1

import "bytes"

// BelongsTo reports whether key falls inside the shard's half-open range
// [Start, End). An empty End is +infinity, an empty Start is -infinity.
func BelongsTo(shard *ShardDesc, key []byte) bool {
	if len(shard.Start) > 0 && bytes.Compare(key, shard.Start) < 0 {
		return false
	}
	if len(shard.End) > 0 && bytes.Compare(key, shard.End) >= 0 {
		return false
	}
	return true
}

// FindShard returns the shard with the given id, or nil.
func FindShard(desc *GroupDesc, shardID uint64) *ShardDesc {
	for i := range desc.Shards {
		if desc.Shards[i].ID == shardID {
			return &desc.Shards[i]
		}
	}
	return nil
}
