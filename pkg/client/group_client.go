package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/log"
	"github.com/sekas-io/sekas/pkg/metrics"
)

// invokeOpt tunes how one call reacts to failures.
type invokeOpt struct {
	// request is the pending request union, when there is one. It feeds
	// the executability predicate and the read-only check.
	request *v1.RequestUnion

	// accurateEpoch indicates the call's epoch is a precondition. If
	// EpochNotMatch is encountered the precondition failed and there is
	// no point retrying.
	accurateEpoch bool

	// ignoreTransportError points out that the request is idempotent:
	// a transport fault (connection reset, broken pipe) is safe to
	// retry.
	ignoreTransportError bool
}

// InvokeContext is handed to each attempt.
type InvokeContext struct {
	GroupID uint64
	Epoch   uint64
	// Timeout is the remaining per-call budget, zero when unbounded.
	Timeout time.Duration
}

// rpcContext derives the per-attempt RPC context, attaching the
// remaining budget as a deadline when one is armed.
func (ic InvokeContext) rpcContext(parent context.Context) (context.Context, context.CancelFunc) {
	if ic.Timeout > 0 {
		return context.WithTimeout(parent, ic.Timeout)
	}
	return parent, func() {}
}

// invokeFunc performs one attempt against a chosen node.
type invokeFunc func(ctx context.Context, ic InvokeContext, nc NodeClient) error

// GroupClient submits requests to the leader of a group of replicas.
//
// It provides leader positioning, retry of recoverable errors, and a
// per-call timeout. If a call traverses every replica without
// submitting the request, it returns GroupNotAccessibleError.
//
// A GroupClient is exclusively owned by its call site; concurrent calls
// on the same instance are not allowed.
type GroupClient struct {
	groupID uint64
	client  *Client
	timeout *time.Duration

	epoch       uint64
	leaderState *v1.LeaderState
	replicas    []v1.ReplicaDesc

	// accessNodeID caches the node to stick to across retries, so a
	// fresh leader hint is not immediately re-polled away.
	accessNodeID    *uint64
	nextAccessIndex int

	// nodeClients caches transports per node for the client's lifetime.
	nodeClients map[uint64]NodeClient

	logger zerolog.Logger
}

// Lazy creates a group client with no routing state; the first call
// loads it from the router.
func Lazy(groupID uint64, client *Client) *GroupClient {
	return &GroupClient{
		groupID:     groupID,
		client:      client,
		nodeClients: make(map[uint64]NodeClient),
		logger:      log.WithComponent("group-client").With().Uint64("group_id", groupID).Logger(),
	}
}

// NewGroupClient creates a group client seeded from a routing snapshot.
func NewGroupClient(state v1.RouterGroupState, client *Client) *GroupClient {
	c := Lazy(state.ID, client)
	c.applyGroupState(state)
	return c
}

// SetTimeout arms a deadline for the next call only. The timeout is
// consumed on first use; a later call without a fresh SetTimeout runs
// unbounded.
func (c *GroupClient) SetTimeout(timeout time.Duration) {
	c.timeout = &timeout
}

// Epoch returns the client's current view of the group epoch.
func (c *GroupClient) Epoch() uint64 {
	return c.epoch
}

func (c *GroupClient) invoke(ctx context.Context, op invokeFunc) error {
	return c.invokeWithOpt(ctx, op, invokeOpt{})
}

func (c *GroupClient) invokeWithOpt(ctx context.Context, op invokeFunc, opt invokeOpt) error {
	// Initial lazy connection
	if c.epoch == 0 {
		if err := c.initialGroupState(); err != nil {
			return err
		}
	}
	c.nextAccessIndex = 0

	var deadline time.Time
	if c.timeout != nil {
		deadline = time.Now().Add(*c.timeout)
		c.timeout = nil
	}

	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		nodeID, nc, ok := c.recommendClient()
		if !ok {
			break
		}
		c.logger.Debug().Int("attempt", index).Uint64("node_id", nodeID).Msg("Issuing group request")
		index++

		ic := InvokeContext{GroupID: c.groupID, Epoch: c.epoch}
		if !deadline.IsZero() {
			ic.Timeout = time.Until(deadline)
		}
		err := op(ctx, ic, nc)
		if err == nil {
			return nil
		}
		if err := c.applyStatus(err, &opt); err != nil {
			return err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return &DeadlineExceededError{Op: "issue rpc"}
		}
		metrics.GroupClientRetryTotal.Inc()
	}

	c.logger.Debug().Msg("Group request failed, group is not accessible")
	metrics.GroupNotAccessibleTotal.Inc()
	return &GroupNotAccessibleError{GroupID: c.groupID}
}

// recommendClient picks the node for the next attempt: the sticky node
// when one is latched, otherwise the next replica in rotation. Replicas
// whose address cannot be resolved are skipped.
func (c *GroupClient) recommendClient() (uint64, NodeClient, bool) {
	for {
		var nodeID uint64
		if c.accessNodeID != nil {
			nodeID = *c.accessNodeID
		} else {
			next, ok := c.nextAccessNodeID()
			if !ok {
				return 0, nil, false
			}
			nodeID = next
		}
		if nc := c.fetchClient(nodeID); nc != nil {
			id := nodeID
			c.accessNodeID = &id
			return nodeID, nc, true
		}
		c.accessNodeID = nil
	}
}

func (c *GroupClient) initialGroupState() error {
	state, err := c.client.Router().FindGroup(c.groupID)
	if err != nil {
		return &GroupNotAccessibleError{GroupID: c.groupID}
	}
	c.applyGroupState(state)
	return nil
}

// applyGroupState adopts a routing snapshot, placing the leader's
// replica first so it is tried before the followers.
func (c *GroupClient) applyGroupState(state v1.RouterGroupState) {
	var leaderNodeID *uint64
	if state.LeaderState != nil {
		if desc, ok := state.Replicas[state.LeaderState.ReplicaID]; ok {
			id := desc.NodeID
			leaderNodeID = &id
		}
	}

	c.leaderState = state.LeaderState
	c.epoch = state.Epoch
	c.replicas = c.replicas[:0]
	for _, desc := range state.Replicas {
		c.replicas = append(c.replicas, desc)
	}
	if leaderNodeID != nil {
		c.logger.Debug().Uint64("leader_node_id", *leaderNodeID).Msg("Refreshed group state")
		moveNodeToFirstElement(c.replicas, *leaderNodeID)
	}
}

// nextAccessNodeID returns the node for the next rotation slot.
//
// The guard is deliberately <= len(replicas): the replica at index 0 is
// the believed leader, and after a full rotation it gets one more try
// before the call gives up. A call therefore contacts at most
// len(replicas)+1 nodes.
func (c *GroupClient) nextAccessNodeID() (uint64, bool) {
	if len(c.replicas) == 0 || c.nextAccessIndex > len(c.replicas) {
		return 0, false
	}
	desc := c.replicas[c.nextAccessIndex%len(c.replicas)]
	c.nextAccessIndex++
	return desc.NodeID, true
}

func (c *GroupClient) fetchClient(nodeID uint64) NodeClient {
	if nc, ok := c.nodeClients[nodeID]; ok {
		return nc
	}

	addr, err := c.client.Router().FindNodeAddr(nodeID)
	if err != nil {
		c.logger.Warn().Uint64("node_id", nodeID).Msg("No address for node")
		return nil
	}

	nc, err := c.client.ConnMgr().GetNodeClient(addr)
	if err != nil {
		c.logger.Warn().Err(err).Uint64("node_id", nodeID).Str("addr", addr).Msg("Failed to connect to node")
		return nil
	}
	c.nodeClients[nodeID] = nc
	return nc
}

// applyStatus classifies one failed attempt. A nil return means the
// failure was absorbed into client state and the call should continue
// with the next recommended node; a non-nil return surfaces to the
// caller.
func (c *GroupClient) applyStatus(err error, opt *invokeOpt) error {
	err = errorFromRPC(err)
	switch e := err.(type) {
	case *GroupNotFoundError:
		c.logger.Debug().Msg("Target node does not host the group")
		c.accessNodeID = nil
		return nil
	case *NotLeaderError:
		c.applyNotLeaderStatus(e.Term, e.Leader)
		return nil
	case *ConnectError:
		c.logger.Debug().Err(e.Err).Msg("Failed to connect, trying next replica")
		c.accessNodeID = nil
		return nil
	case *TransportError:
		if opt.ignoreTransportError || (opt.request != nil && isReadOnlyRequest(opt.request)) {
			c.logger.Debug().Err(e.Err).Msg("Transport fault on idempotent request, trying next replica")
			c.accessNodeID = nil
			return nil
		}
		return e
	case *EpochNotMatchError:
		return c.applyEpochNotMatchStatus(e.Desc, opt)
	default:
		if !isExpectedError(err) {
			c.logger.Warn().Err(err).Uint64("epoch", c.epoch).Msg("Group request failed with unknown error")
		}
		return err
	}
}

// isExpectedError reports whether an error is a routine business outcome
// that should surface without warning-level telemetry.
func isExpectedError(err error) bool {
	if errors.Is(err, ErrTxnConflict) {
		return true
	}
	switch err.(type) {
	case *CasFailedError, *InvalidArgumentError:
		return true
	}
	return false
}

// applyNotLeaderStatus adopts a fresher leader hint. Hints for terms at
// or below the locally known term are stale and ignored.
func (c *GroupClient) applyNotLeaderStatus(term uint64, leader *v1.ReplicaDesc) {
	c.logger.Debug().
		Uint64("term", term).
		Interface("leader", leader).
		Msg("Replica is not leader")

	c.accessNodeID = nil
	if leader == nil {
		return
	}
	if c.leaderState != nil && c.leaderState.Term >= term {
		// Stale NotLeader response.
		return
	}

	id := leader.NodeID
	c.accessNodeID = &id
	c.leaderState = &v1.LeaderState{ReplicaID: leader.ID, Term: term}

	// The leader may be absent from the cached replicas when a stale
	// group descriptor is in use. Save it so it can be retried later.
	c.replicas = moveReplicaToFirstElement(c.replicas, *leader)
}

func (c *GroupClient) applyEpochNotMatchStatus(desc v1.GroupDesc, opt *invokeOpt) error {
	// If the exact epoch is required, don't retry if epoch isn't matched.
	if opt.accurateEpoch {
		return &EpochNotMatchError{Desc: desc}
	}

	if desc.Epoch <= c.epoch {
		panic(fmt.Sprintf(
			"group %d received EpochNotMatch, but local epoch %d is not less than remote %d: %+v",
			c.groupID, c.epoch, desc.Epoch, desc))
	}

	metrics.EpochNotMatchTotal.Inc()
	c.logger.Debug().
		Uint64("epoch", c.epoch).
		Uint64("remote_epoch", desc.Epoch).
		Msg("Epoch not match")

	if opt.request != nil && !isExecutable(&desc, opt.request) {
		// The target group would not execute the pending request.
		return &EpochNotMatchError{Desc: desc}
	}

	c.replicas = append(c.replicas[:0], desc.Replicas...)
	c.epoch = desc.Epoch
	c.nextAccessIndex = 1
	var sticky uint64
	if c.accessNodeID != nil {
		sticky = *c.accessNodeID
	}
	moveNodeToFirstElement(c.replicas, sticky)
	return nil
}

// Request submits a request union to the group and returns the matching
// response union.
func (c *GroupClient) Request(ctx context.Context, req *v1.RequestUnion) (*v1.ResponseUnion, error) {
	timer := prometheus.NewTimer(metrics.GroupRequestDuration.WithLabelValues(req.Name()))
	defer timer.ObserveDuration()

	var out *v1.ResponseUnion
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewGroupRequest(ic.GroupID, ic.Epoch, req))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		out = union
		return nil
	}

	opt := invokeOpt{request: req}
	if err := c.invokeWithOpt(ctx, op, opt); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchKey subscribes to changes of a key. The retry policy covers only
// establishing the stream; errors after that surface to the consumer
// as-is, since the version cursor belongs to the caller.
func (c *GroupClient) WatchKey(ctx context.Context, shardID uint64, key []byte, version uint64) (*WatchStream, error) {
	var out *WatchStream
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		req := v1.NewGroupRequest(ic.GroupID, ic.Epoch, &v1.RequestUnion{
			WatchKey: &v1.WatchKeyRequest{
				GroupID: ic.GroupID,
				ShardID: shardID,
				Key:     key,
				Version: version,
			},
		})
		stream, err := nc.GroupRequestStream(ctx, req)
		if err != nil {
			return err
		}
		out = &WatchStream{inner: stream}
		return nil
	}

	if err := c.invokeWithOpt(ctx, op, invokeOpt{}); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchStream decodes watch events out of a group response stream.
type WatchStream struct {
	inner GroupStream
}

// Recv returns the next watch event.
func (s *WatchStream) Recv() (*v1.WatchKeyResponse, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		return nil, err
	}
	union, err := groupResponse(resp)
	if err != nil {
		return nil, err
	}
	if union.WatchKey == nil {
		return nil, &InternalError{Message: "invalid response type, WatchKey is required"}
	}
	return union.WatchKey, nil
}

// groupResponse unwraps a group response envelope: a typed response
// passes through, an embedded error envelope becomes a typed error, and
// an empty envelope is a protocol fault.
func groupResponse(resp *v1.GroupResponse) (*v1.ResponseUnion, error) {
	if resp.Response != nil {
		return resp.Response, nil
	}
	if resp.Error != nil {
		return nil, errorFromEnvelope(resp.Error)
	}
	return nil, &InternalError{Message: "both response and error are unset in GroupResponse"}
}

func moveNodeToFirstElement(replicas []v1.ReplicaDesc, nodeID uint64) {
	for i := range replicas {
		if replicas[i].NodeID == nodeID {
			if i != 0 {
				replicas[0], replicas[i] = replicas[i], replicas[0]
			}
			return
		}
	}
}

func moveReplicaToFirstElement(replicas []v1.ReplicaDesc, replica v1.ReplicaDesc) []v1.ReplicaDesc {
	idx := -1
	for i := range replicas {
		if replicas[i].NodeID == replica.NodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		replicas = append(replicas, replica)
		idx = len(replicas) - 1
	}
	if idx != 0 {
		replicas[0], replicas[idx] = replicas[idx], replicas[0]
	}
	return replicas
}
