package v1

// A group epoch packs two monotonic counters into one uint64: the shard
// epoch in the upper 32 bits (advances when the shard set changes) and
// the config epoch in the lower 32 bits (advances when the replica set
// changes).

const configEpochBits = 32

// ShardEpoch extracts the shard-set version from a packed epoch.
func ShardEpoch(epoch uint64) uint32 {
	return uint32(epoch >> configEpochBits)
}

// ConfigEpoch extracts the replica-set version from a packed epoch.
func ConfigEpoch(epoch uint64) uint32 {
	return uint32(epoch)
}

// JoinEpoch packs a shard epoch and a config epoch back into one value.
func JoinEpoch(shardEpoch, configEpoch uint32) uint64 {
	return uint64(shardEpoch)<<configEpochBits | uint64(configEpoch)
}

// NextShardEpoch bumps the shard epoch and resets nothing else.
func NextShardEpoch(epoch uint64) uint64 {
	return JoinEpoch(ShardEpoch(epoch)+1, ConfigEpoch(epoch))
}

// NextConfigEpoch bumps the config epoch.
func NextConfigEpoch(epoch uint64) uint64 {
	return JoinEpoch(ShardEpoch(epoch), ConfigEpoch(epoch)+1)
}
