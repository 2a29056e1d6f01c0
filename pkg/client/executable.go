package client

import (
	v1 "github.com/sekas-io/sekas/api/v1"
)

// isReadOnlyRequest reports whether the request has no write effects and
// can therefore be retried across transport faults without caller
// opt-in.
func isReadOnlyRequest(req *v1.RequestUnion) bool {
	return req.Get != nil || req.Scan != nil
}

// isExecutable decides, against the descriptor a server returned,
// whether the pending request's shard still lives in that group. It is a
// pure function of its inputs.
//
// Requests without a key target (replication, schedule, migration) are
// never re-routable this way; they carry accurate-epoch semantics
// instead.
func isExecutable(desc *v1.GroupDesc, req *v1.RequestUnion) bool {
	switch {
	case req.Get != nil:
		return isTargetShardExists(desc, req.Get.ShardID, req.Get.UserKey)
	case req.Scan != nil:
		return isScanShardExists(desc, req.Scan)
	case req.Write != nil:
		return isAllTargetShardExists(desc, req.Write.ShardID, req.Write.Deletes, req.Write.Puts)
	case req.WriteIntent != nil:
		switch {
		case req.WriteIntent.Put != nil:
			return isTargetShardExists(desc, req.WriteIntent.ShardID, req.WriteIntent.Put.Key)
		case req.WriteIntent.Delete != nil:
			return isTargetShardExists(desc, req.WriteIntent.ShardID, req.WriteIntent.Delete.Key)
		default:
			return false
		}
	case req.CommitIntent != nil:
		return isTargetShardExists(desc, req.CommitIntent.ShardID, req.CommitIntent.UserKey)
	case req.ClearIntent != nil:
		return isTargetShardExists(desc, req.ClearIntent.ShardID, req.ClearIntent.UserKey)
	default:
		return false
	}
}

func isTargetShardExists(desc *v1.GroupDesc, shardID uint64, key []byte) bool {
	shard := v1.FindShard(desc, shardID)
	return shard != nil && v1.BelongsTo(shard, key)
}

// isScanShardExists requires the shard to still cover the scan's start
// point; the server bounds the scan to the shard's range.
func isScanShardExists(desc *v1.GroupDesc, scan *v1.ScanRequest) bool {
	return isTargetShardExists(desc, scan.ShardID, scan.StartKey)
}

func isAllTargetShardExists(desc *v1.GroupDesc, shardID uint64, deletes []v1.DeleteRequest, puts []v1.PutRequest) bool {
	for i := range deletes {
		if !isTargetShardExists(desc, shardID, deletes[i].Key) {
			return false
		}
	}
	for i := range puts {
		if !isTargetShardExists(desc, shardID, puts[i].Key) {
			return false
		}
	}
	return true
}
