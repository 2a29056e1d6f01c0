package v1

import (
	"fmt"

	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protowire"
	anypb "google.golang.org/protobuf/types/known/anypb"
)

// ErrorTypeURL marks an Error envelope inside gRPC status details.
const ErrorTypeURL = "type.googleapis.com/sekas.v1.Error"

// Error is the envelope servers attach to failed group operations. It is
// a oneof: exactly one field is set.
//
// The envelope travels as hand-encoded protobuf inside status details so
// that both transport-level failures and in-band GroupResponse errors
// decode to the same shape.
type Error struct {
	NotLeader       *NotLeaderDetail       `json:"not_leader,omitempty"`
	GroupNotFound   *GroupNotFoundDetail   `json:"group_not_found,omitempty"`
	EpochNotMatch   *EpochNotMatchDetail   `json:"epoch_not_match,omitempty"`
	CasFailed       *CasFailedDetail       `json:"cas_failed,omitempty"`
	TxnConflict     *TxnConflictDetail     `json:"txn_conflict,omitempty"`
	InvalidArgument *InvalidArgumentDetail `json:"invalid_argument,omitempty"`
}

// NotLeaderDetail reports that the addressed replica is not the leader.
// Leader is nil when the replica does not know a leader for Term.
type NotLeaderDetail struct {
	GroupID uint64       `json:"group_id"`
	Term    uint64       `json:"term"`
	Leader  *ReplicaDesc `json:"leader,omitempty"`
}

// GroupNotFoundDetail reports that the node does not host the group.
type GroupNotFoundDetail struct {
	GroupID uint64 `json:"group_id"`
}

// EpochNotMatchDetail carries the server's current descriptor so the
// client can decide whether to adopt it.
type EpochNotMatchDetail struct {
	Desc GroupDesc `json:"desc"`
}

// CasFailedDetail reports a failed conditional write.
type CasFailedDetail struct {
	Index     uint64 `json:"index"`
	CondIndex uint64 `json:"cond_index"`
}

// TxnConflictDetail reports a transactional conflict.
type TxnConflictDetail struct{}

// InvalidArgumentDetail reports a malformed request.
type InvalidArgumentDetail struct {
	Message string `json:"message"`
}

// Field numbers of the Error oneof.
const (
	errFieldNotLeader       = 1
	errFieldGroupNotFound   = 2
	errFieldEpochNotMatch   = 3
	errFieldCasFailed       = 4
	errFieldTxnConflict     = 5
	errFieldInvalidArgument = 6
)

// Marshal encodes the envelope with protowire.
func (e *Error) Marshal() []byte {
	var b []byte
	switch {
	case e.NotLeader != nil:
		b = appendMessage(b, errFieldNotLeader, marshalNotLeader(e.NotLeader))
	case e.GroupNotFound != nil:
		var inner []byte
		inner = appendUint64(inner, 1, e.GroupNotFound.GroupID)
		b = appendMessage(b, errFieldGroupNotFound, inner)
	case e.EpochNotMatch != nil:
		b = appendMessage(b, errFieldEpochNotMatch, marshalGroupDesc(&e.EpochNotMatch.Desc))
	case e.CasFailed != nil:
		var inner []byte
		inner = appendUint64(inner, 1, e.CasFailed.Index)
		inner = appendUint64(inner, 2, e.CasFailed.CondIndex)
		b = appendMessage(b, errFieldCasFailed, inner)
	case e.TxnConflict != nil:
		b = appendMessage(b, errFieldTxnConflict, nil)
	case e.InvalidArgument != nil:
		var inner []byte
		inner = appendString(inner, 1, e.InvalidArgument.Message)
		b = appendMessage(b, errFieldInvalidArgument, inner)
	}
	return b
}

// UnmarshalError decodes an envelope produced by Marshal.
func UnmarshalError(b []byte) (*Error, error) {
	e := &Error{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("error envelope: bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.BytesType {
			return nil, fmt.Errorf("error envelope: field %d: unexpected wire type %d", num, typ)
		}
		body, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("error envelope: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case errFieldNotLeader:
			d, err := unmarshalNotLeader(body)
			if err != nil {
				return nil, err
			}
			e.NotLeader = d
		case errFieldGroupNotFound:
			fields, err := consumeFields(body)
			if err != nil {
				return nil, err
			}
			e.GroupNotFound = &GroupNotFoundDetail{GroupID: fields.uints[1]}
		case errFieldEpochNotMatch:
			desc, err := unmarshalGroupDesc(body)
			if err != nil {
				return nil, err
			}
			e.EpochNotMatch = &EpochNotMatchDetail{Desc: *desc}
		case errFieldCasFailed:
			fields, err := consumeFields(body)
			if err != nil {
				return nil, err
			}
			e.CasFailed = &CasFailedDetail{Index: fields.uints[1], CondIndex: fields.uints[2]}
		case errFieldTxnConflict:
			e.TxnConflict = &TxnConflictDetail{}
		case errFieldInvalidArgument:
			fields, err := consumeFields(body)
			if err != nil {
				return nil, err
			}
			e.InvalidArgument = &InvalidArgumentDetail{Message: string(fields.bytes[1])}
		}
	}
	return e, nil
}

// ToStatus wraps the envelope in a gRPC status so it survives transports
// that only carry statuses.
func (e *Error) ToStatus(msg string) *status.Status {
	return status.FromProto(&spb.Status{
		Code:    int32(codes.Unknown),
		Message: msg,
		Details: []*anypb.Any{{TypeUrl: ErrorTypeURL, Value: e.Marshal()}},
	})
}

// ErrorFromStatus extracts an envelope from a gRPC error, if present.
func ErrorFromStatus(err error) (*Error, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, detail := range st.Proto().GetDetails() {
		if detail.GetTypeUrl() != ErrorTypeURL {
			continue
		}
		e, derr := UnmarshalError(detail.GetValue())
		if derr != nil {
			return nil, false
		}
		return e, true
	}
	return nil, false
}

func marshalNotLeader(d *NotLeaderDetail) []byte {
	var b []byte
	b = appendUint64(b, 1, d.GroupID)
	b = appendUint64(b, 2, d.Term)
	if d.Leader != nil {
		b = appendMessage(b, 3, marshalReplicaDesc(d.Leader))
	}
	return b
}

func unmarshalNotLeader(b []byte) (*NotLeaderDetail, error) {
	d := &NotLeaderDetail{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			d.GroupID = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			d.Term = v
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			leader, err := unmarshalReplicaDesc(body)
			if err != nil {
				return nil, err
			}
			d.Leader = leader
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return d, nil
}

func marshalReplicaDesc(r *ReplicaDesc) []byte {
	var b []byte
	b = appendUint64(b, 1, r.ID)
	b = appendUint64(b, 2, r.NodeID)
	b = appendUint64(b, 3, uint64(r.Role))
	return b
}

func unmarshalReplicaDesc(b []byte) (*ReplicaDesc, error) {
	fields, err := consumeFields(b)
	if err != nil {
		return nil, err
	}
	return &ReplicaDesc{
		ID:     fields.uints[1],
		NodeID: fields.uints[2],
		Role:   ReplicaRole(fields.uints[3]),
	}, nil
}

func marshalShardDesc(s *ShardDesc) []byte {
	var b []byte
	b = appendUint64(b, 1, s.ID)
	b = appendUint64(b, 2, s.TableID)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Start)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, s.End)
	return b
}

func unmarshalShardDesc(b []byte) (*ShardDesc, error) {
	fields, err := consumeFields(b)
	if err != nil {
		return nil, err
	}
	return &ShardDesc{
		ID:      fields.uints[1],
		TableID: fields.uints[2],
		Start:   fields.bytes[3],
		End:     fields.bytes[4],
	}, nil
}

func marshalGroupDesc(g *GroupDesc) []byte {
	var b []byte
	b = appendUint64(b, 1, g.ID)
	b = appendUint64(b, 2, g.Epoch)
	for i := range g.Replicas {
		b = appendMessage(b, 3, marshalReplicaDesc(&g.Replicas[i]))
	}
	for i := range g.Shards {
		b = appendMessage(b, 4, marshalShardDesc(&g.Shards[i]))
	}
	return b
}

func unmarshalGroupDesc(b []byte) (*GroupDesc, error) {
	g := &GroupDesc{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			g.ID = v
			b = b[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			g.Epoch = v
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			r, err := unmarshalReplicaDesc(body)
			if err != nil {
				return nil, err
			}
			g.Replicas = append(g.Replicas, *r)
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			s, err := unmarshalShardDesc(body)
			if err != nil {
				return nil, err
			}
			g.Shards = append(g.Shards, *s)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return g, nil
}

// flatFields collects one level of scalar and bytes fields.
type flatFields struct {
	uints map[protowire.Number]uint64
	bytes map[protowire.Number][]byte
}

func consumeFields(b []byte) (*flatFields, error) {
	f := &flatFields{
		uints: map[protowire.Number]uint64{},
		bytes: map[protowire.Number][]byte{},
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.uints[num] = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.bytes[num] = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return f, nil
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}
