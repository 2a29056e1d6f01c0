package v1

// GroupRequest is the envelope for every operation submitted to a group.
// The server compares Epoch against its own configuration and rejects the
// request with an EpochNotMatch error when they disagree.
type GroupRequest struct {
	GroupID uint64        `json:"group_id"`
	Epoch   uint64        `json:"epoch"`
	Request *RequestUnion `json:"request,omitempty"`
}

// GroupResponse carries either a typed response or an error envelope,
// never both and never neither.
type GroupResponse struct {
	Response *ResponseUnion `json:"response,omitempty"`
	Error    *Error         `json:"error,omitempty"`
}

// RequestUnion holds exactly one concrete request. It plays the role of a
// oneof: at most one field is set.
type RequestUnion struct {
	Get            *GetRequest            `json:"get,omitempty"`
	Scan           *ScanRequest           `json:"scan,omitempty"`
	Write          *WriteRequest          `json:"write,omitempty"`
	WriteIntent    *WriteIntentRequest    `json:"write_intent,omitempty"`
	CommitIntent   *CommitIntentRequest   `json:"commit_intent,omitempty"`
	ClearIntent    *ClearIntentRequest    `json:"clear_intent,omitempty"`
	WatchKey       *WatchKeyRequest       `json:"watch_key,omitempty"`
	CreateShard    *CreateShardRequest    `json:"create_shard,omitempty"`
	ChangeReplicas *ChangeReplicasRequest `json:"change_replicas,omitempty"`
	Transfer       *TransferRequest       `json:"transfer,omitempty"`
	AcceptShard    *AcceptShardRequest    `json:"accept_shard,omitempty"`
	SplitShard     *SplitShardRequest     `json:"split_shard,omitempty"`
	MergeShard     *MergeShardRequest     `json:"merge_shard,omitempty"`
	MoveReplicas   *MoveReplicasRequest   `json:"move_replicas,omitempty"`
}

// ResponseUnion mirrors RequestUnion for responses.
type ResponseUnion struct {
	Get            *GetResponse            `json:"get,omitempty"`
	Scan           *ScanResponse           `json:"scan,omitempty"`
	Write          *WriteResponse          `json:"write,omitempty"`
	WriteIntent    *WriteIntentResponse    `json:"write_intent,omitempty"`
	CommitIntent   *CommitIntentResponse   `json:"commit_intent,omitempty"`
	ClearIntent    *ClearIntentResponse    `json:"clear_intent,omitempty"`
	WatchKey       *WatchKeyResponse       `json:"watch_key,omitempty"`
	CreateShard    *CreateShardResponse    `json:"create_shard,omitempty"`
	ChangeReplicas *ChangeReplicasResponse `json:"change_replicas,omitempty"`
	Transfer       *TransferResponse       `json:"transfer,omitempty"`
	AcceptShard    *AcceptShardResponse    `json:"accept_shard,omitempty"`
	SplitShard     *SplitShardResponse     `json:"split_shard,omitempty"`
	MergeShard     *MergeShardResponse     `json:"merge_shard,omitempty"`
	MoveReplicas   *MoveReplicasResponse   `json:"move_replicas,omitempty"`
}

// Name returns the short name of the request variant, for logs and
// metrics labels.
func (u *RequestUnion) Name() string {
	switch {
	case u == nil:
		return "none"
	case u.Get != nil:
		return "get"
	case u.Scan != nil:
		return "scan"
	case u.Write != nil:
		return "write"
	case u.WriteIntent != nil:
		return "write_intent"
	case u.CommitIntent != nil:
		return "commit_intent"
	case u.ClearIntent != nil:
		return "clear_intent"
	case u.WatchKey != nil:
		return "watch_key"
	case u.CreateShard != nil:
		return "create_shard"
	case u.ChangeReplicas != nil:
		return "change_replicas"
	case u.Transfer != nil:
		return "transfer"
	case u.AcceptShard != nil:
		return "accept_shard"
	case u.SplitShard != nil:
		return "split_shard"
	case u.MergeShard != nil:
		return "merge_shard"
	case u.MoveReplicas != nil:
		return "move_replicas"
	default:
		return "unknown"
	}
}

// GetRequest reads a single key from a shard.
type GetRequest struct {
	ShardID uint64 `json:"shard_id"`
	UserKey []byte `json:"user_key"`
	Version uint64 `json:"version"`
}

type GetResponse struct {
	Value *KeyValue `json:"value,omitempty"`
}

// ScanRequest reads a key range from a shard.
type ScanRequest struct {
	ShardID  uint64 `json:"shard_id"`
	StartKey []byte `json:"start_key"`
	EndKey   []byte `json:"end_key"`
	Limit    uint64 `json:"limit"`
	Version  uint64 `json:"version"`
}

type ScanResponse struct {
	Data    []KeyValue `json:"data"`
	HasMore bool       `json:"has_more"`
}

// PutRequest is one put inside a batch write.
type PutRequest struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// DeleteRequest is one delete inside a batch write.
type DeleteRequest struct {
	Key []byte `json:"key"`
}

// WriteRequest applies a batch of puts and deletes against one shard.
type WriteRequest struct {
	ShardID uint64          `json:"shard_id"`
	Puts    []PutRequest    `json:"puts"`
	Deletes []DeleteRequest `json:"deletes"`
}

type WriteResponse struct {
	Version uint64 `json:"version"`
}

// WriteIntentRequest installs a transactional intent for a single key.
// Exactly one of Put or Delete is set.
type WriteIntentRequest struct {
	ShardID      uint64         `json:"shard_id"`
	StartVersion uint64         `json:"start_version"`
	Put          *PutRequest    `json:"put,omitempty"`
	Delete       *DeleteRequest `json:"delete,omitempty"`
}

type WriteIntentResponse struct {
	PrevValue *KeyValue `json:"prev_value,omitempty"`
}

// CommitIntentRequest promotes an intent to a committed value.
type CommitIntentRequest struct {
	ShardID       uint64 `json:"shard_id"`
	UserKey       []byte `json:"user_key"`
	StartVersion  uint64 `json:"start_version"`
	CommitVersion uint64 `json:"commit_version"`
}

type CommitIntentResponse struct{}

// ClearIntentRequest discards an aborted transaction's intent.
type ClearIntentRequest struct {
	ShardID      uint64 `json:"shard_id"`
	UserKey      []byte `json:"user_key"`
	StartVersion uint64 `json:"start_version"`
}

type ClearIntentResponse struct{}

// WatchKeyRequest subscribes to changes of one key at or after Version.
type WatchKeyRequest struct {
	GroupID uint64 `json:"group_id"`
	ShardID uint64 `json:"shard_id"`
	Key     []byte `json:"key"`
	Version uint64 `json:"version"`
}

// WatchKeyResponse is one event on a watched key.
type WatchKeyResponse struct {
	Value   *KeyValue `json:"value,omitempty"`
	Deleted bool      `json:"deleted"`
}

type CreateShardRequest struct {
	Shard ShardDesc `json:"shard"`
}

type CreateShardResponse struct{}

// ChangeReplicaType enumerates the replica-set mutations.
type ChangeReplicaType int32

const (
	ChangeReplicaTypeAdd ChangeReplicaType = iota
	ChangeReplicaTypeRemove
	ChangeReplicaTypeAddLearner
)

type ChangeReplica struct {
	Type      ChangeReplicaType `json:"type"`
	ReplicaID uint64            `json:"replica_id"`
	NodeID    uint64            `json:"node_id"`
}

type ChangeReplicasRequest struct {
	Changes []ChangeReplica `json:"changes"`
}

type ChangeReplicasResponse struct{}

type TransferRequest struct {
	TransfereeID uint64 `json:"transferee_id"`
}

type TransferResponse struct{}

type AcceptShardRequest struct {
	SrcGroupID uint64    `json:"src_group_id"`
	SrcEpoch   uint64    `json:"src_epoch"`
	Shard      ShardDesc `json:"shard"`
}

type AcceptShardResponse struct{}

type SplitShardRequest struct {
	OldShardID uint64 `json:"old_shard_id"`
	NewShardID uint64 `json:"new_shard_id"`
	SplitKey   []byte `json:"split_key,omitempty"`
}

type SplitShardResponse struct{}

type MergeShardRequest struct {
	LeftShardID  uint64 `json:"left_shard_id"`
	RightShardID uint64 `json:"right_shard_id"`
}

type MergeShardResponse struct{}

type MoveReplicasRequest struct {
	IncomingVoters []ReplicaDesc `json:"incoming_voters"`
	OutgoingVoters []ReplicaDesc `json:"outgoing_voters"`
}

type MoveReplicasResponse struct {
	ScheduleState *ScheduleState `json:"schedule_state,omitempty"`
}

// PullRequest asks the owner of a shard to stream its data, starting
// after LastKey when set.
type PullRequest struct {
	GroupID uint64 `json:"group_id"`
	ShardID uint64 `json:"shard_id"`
	LastKey []byte `json:"last_key,omitempty"`
}

// NewGroupRequest wraps a request union in an envelope for a group at an
// epoch.
func NewGroupRequest(groupID, epoch uint64, req *RequestUnion) *GroupRequest {
	return &GroupRequest{GroupID: groupID, Epoch: epoch, Request: req}
}

func NewCreateShardRequest(groupID, epoch uint64, shard ShardDesc) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{CreateShard: &CreateShardRequest{Shard: shard}})
}

func NewTransferRequest(groupID, epoch, transferee uint64) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{Transfer: &TransferRequest{TransfereeID: transferee}})
}

func NewAddReplicaRequest(groupID, epoch, replicaID, nodeID uint64) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{ChangeReplicas: &ChangeReplicasRequest{
		Changes: []ChangeReplica{{Type: ChangeReplicaTypeAdd, ReplicaID: replicaID, NodeID: nodeID}},
	}})
}

func NewAddLearnerRequest(groupID, epoch, replicaID, nodeID uint64) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{ChangeReplicas: &ChangeReplicasRequest{
		Changes: []ChangeReplica{{Type: ChangeReplicaTypeAddLearner, ReplicaID: replicaID, NodeID: nodeID}},
	}})
}

func NewRemoveReplicaRequest(groupID, epoch, replicaID uint64) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{ChangeReplicas: &ChangeReplicasRequest{
		Changes: []ChangeReplica{{Type: ChangeReplicaTypeRemove, ReplicaID: replicaID}},
	}})
}

func NewAcceptShardRequest(groupID, epoch, srcGroup, srcEpoch uint64, shard ShardDesc) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{AcceptShard: &AcceptShardRequest{
		SrcGroupID: srcGroup, SrcEpoch: srcEpoch, Shard: shard,
	}})
}

func NewSplitShardRequest(groupID, epoch, oldShard, newShard uint64, splitKey []byte) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{SplitShard: &SplitShardRequest{
		OldShardID: oldShard, NewShardID: newShard, SplitKey: splitKey,
	}})
}

func NewMergeShardRequest(groupID, epoch, leftShard, rightShard uint64) *GroupRequest {
	return NewGroupRequest(groupID, epoch, &RequestUnion{MergeShard: &MergeShardRequest{
		LeftShardID: leftShard, RightShardID: rightShard,
	}})
}
