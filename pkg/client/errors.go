package client

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/sekas-io/sekas/api/v1"
)

// ErrTxnConflict reports a transactional conflict. It is a business
// error: callers resolve it by restarting the transaction.
var ErrTxnConflict = errors.New("transaction conflict")

// GroupNotAccessibleError is returned when every replica of a group has
// been tried without success, or no routing state exists for it.
type GroupNotAccessibleError struct {
	GroupID uint64
}

func (e *GroupNotAccessibleError) Error() string {
	return fmt.Sprintf("group %d is not accessible", e.GroupID)
}

// DeadlineExceededError is returned when a per-call timeout elapsed
// between attempts.
type DeadlineExceededError struct {
	Op string
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("deadline exceeded: %s", e.Op)
}

// EpochNotMatchError carries the server's newer descriptor. It reaches
// the caller only when the call demanded an accurate epoch or the
// pending request is no longer executable in the new descriptor.
type EpochNotMatchError struct {
	Desc v1.GroupDesc
}

func (e *EpochNotMatchError) Error() string {
	return fmt.Sprintf("epoch not match, group %d epoch %d", e.Desc.ID, e.Desc.Epoch)
}

// NotLeaderError reports that the addressed replica is not the group
// leader. It never reaches callers; the group client consumes it.
type NotLeaderError struct {
	GroupID uint64
	Term    uint64
	Leader  *v1.ReplicaDesc
}

func (e *NotLeaderError) Error() string {
	return fmt.Sprintf("group %d: replica is not leader, term %d", e.GroupID, e.Term)
}

// GroupNotFoundError reports that the addressed node does not host the
// group. It never reaches callers; the group client consumes it.
type GroupNotFoundError struct {
	GroupID uint64
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("group %d not found on node", e.GroupID)
}

// ConnectError reports that a connection could not be established.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError reports a mid-call transport fault. The request may
// have partially applied on the server.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CasFailedError reports a failed conditional write.
type CasFailedError struct {
	Index     uint64
	CondIndex uint64
}

func (e *CasFailedError) Error() string {
	return fmt.Sprintf("cas failed at index %d, condition %d", e.Index, e.CondIndex)
}

// InvalidArgumentError reports a malformed request.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

// InternalError reports a protocol violation that cannot be recovered
// locally: variant mismatches, missing fields.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal: %s", e.Message)
}

// errorFromEnvelope maps a wire error envelope to the client taxonomy.
func errorFromEnvelope(env *v1.Error) error {
	switch {
	case env.NotLeader != nil:
		return &NotLeaderError{
			GroupID: env.NotLeader.GroupID,
			Term:    env.NotLeader.Term,
			Leader:  env.NotLeader.Leader,
		}
	case env.GroupNotFound != nil:
		return &GroupNotFoundError{GroupID: env.GroupNotFound.GroupID}
	case env.EpochNotMatch != nil:
		return &EpochNotMatchError{Desc: env.EpochNotMatch.Desc}
	case env.CasFailed != nil:
		return &CasFailedError{Index: env.CasFailed.Index, CondIndex: env.CasFailed.CondIndex}
	case env.TxnConflict != nil:
		return ErrTxnConflict
	case env.InvalidArgument != nil:
		return &InvalidArgumentError{Message: env.InvalidArgument.Message}
	default:
		return &InternalError{Message: "empty error envelope"}
	}
}

// errorFromRPC normalizes any RPC failure into the client taxonomy.
// Typed errors pass through, status details decode to their envelope,
// and bare transport statuses split into connect vs mid-call faults.
func errorFromRPC(err error) error {
	switch err.(type) {
	case *GroupNotAccessibleError, *DeadlineExceededError, *EpochNotMatchError,
		*NotLeaderError, *GroupNotFoundError, *ConnectError, *TransportError,
		*CasFailedError, *InvalidArgumentError, *InternalError:
		return err
	}
	if errors.Is(err, ErrTxnConflict) {
		return err
	}

	if env, ok := v1.ErrorFromStatus(err); ok {
		return errorFromEnvelope(env)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &DeadlineExceededError{Op: err.Error()}
	}

	switch status.Code(err) {
	case codes.Unavailable:
		return &ConnectError{Err: err}
	case codes.Canceled, codes.Internal:
		return &TransportError{Err: err}
	case codes.DeadlineExceeded:
		return &DeadlineExceededError{Op: err.Error()}
	case codes.InvalidArgument:
		return &InvalidArgumentError{Message: status.Convert(err).Message()}
	default:
		return err
	}
}
