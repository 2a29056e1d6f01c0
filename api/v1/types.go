package v1

// ReplicaRole defines the consensus role of a replica within its group.
type ReplicaRole int32

const (
	ReplicaRoleVoter ReplicaRole = iota
	ReplicaRoleLearner
	ReplicaRoleIncomingVoter
	ReplicaRoleOutgoingVoter
)

func (r ReplicaRole) String() string {
	switch r {
	case ReplicaRoleVoter:
		return "voter"
	case ReplicaRoleLearner:
		return "learner"
	case ReplicaRoleIncomingVoter:
		return "incoming-voter"
	case ReplicaRoleOutgoingVoter:
		return "outgoing-voter"
	default:
		return "unknown"
	}
}

// ReplicaDesc identifies one replica of a group and the node hosting it.
type ReplicaDesc struct {
	ID     uint64      `json:"id"`
	NodeID uint64      `json:"node_id"`
	Role   ReplicaRole `json:"role"`
}

// ShardDesc describes a key range of a table owned by a group.
//
// The range is half-open [Start, End) under byte-lexicographic ordering.
// An empty End means +infinity, an empty Start means -infinity.
type ShardDesc struct {
	ID      uint64 `json:"id"`
	TableID uint64 `json:"table_id"`
	Start   []byte `json:"start"`
	End     []byte `json:"end"`
}

// GroupDesc is a group's full configuration at a given epoch.
type GroupDesc struct {
	ID       uint64        `json:"id"`
	Epoch    uint64        `json:"epoch"`
	Replicas []ReplicaDesc `json:"replicas"`
	Shards   []ShardDesc   `json:"shards"`
}

// LeaderState records which replica is believed to lead a group, and the
// raft term in which that belief was formed.
type LeaderState struct {
	ReplicaID uint64 `json:"replica_id"`
	Term      uint64 `json:"term"`
}

// RouterGroupState is the router cache's view of one group.
type RouterGroupState struct {
	ID          uint64                 `json:"id"`
	Epoch       uint64                 `json:"epoch"`
	Replicas    map[uint64]ReplicaDesc `json:"replicas"`
	LeaderState *LeaderState           `json:"leader_state,omitempty"`
}

// ScheduleState reports the progress of an in-flight replica
// reconfiguration.
type ScheduleState struct {
	Incoming []ReplicaDesc `json:"incoming"`
	Outgoing []ReplicaDesc `json:"outgoing"`
}

// MoveShardDesc describes a shard movement between two groups.
type MoveShardDesc struct {
	Shard      ShardDesc `json:"shard"`
	SrcGroupID uint64    `json:"src_group_id"`
	SrcEpoch   uint64    `json:"src_epoch"`
	DstGroupID uint64    `json:"dst_group_id"`
	DstEpoch   uint64    `json:"dst_epoch"`
}

// MoveShardResponse acknowledges an AcquireShard or MoveOut request.
type MoveShardResponse struct{}

// ShardChunk is one batch of shard data pulled during a migration.
type ShardChunk struct {
	Keys    [][]byte `json:"keys"`
	Values  [][]byte `json:"values"`
	LastKey []byte   `json:"last_key"`
}

// ForwardRequest asks the destination group of a migration to apply a
// request on behalf of the source group.
type ForwardRequest struct {
	GroupID     uint64        `json:"group_id"`
	ShardID     uint64        `json:"shard_id"`
	ForwardData []KeyValue    `json:"forward_data"`
	Request     *RequestUnion `json:"request,omitempty"`
}

// ForwardResponse carries the forwarded request's response.
type ForwardResponse struct {
	Response *ResponseUnion `json:"response,omitempty"`
}

// KeyValue is a raw key/value pair with its version.
type KeyValue struct {
	Key     []byte `json:"key"`
	Value   []byte `json:"value"`
	Version uint64 `json:"version"`
}
