package client

import (
	"context"

	v1 "github.com/sekas-io/sekas/api/v1"
)

// Scheduling related operations. They surface GroupNotAccessibleError on
// replica exhaustion and are safe for the root scheduler to retry.

// CreateShard creates a shard inside the group.
func (c *GroupClient) CreateShard(ctx context.Context, shard v1.ShardDesc) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewCreateShardRequest(ic.GroupID, ic.Epoch, shard))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.CreateShard == nil {
			return &InternalError{Message: "invalid response type, CreateShard is required"}
		}
		return nil
	}
	return c.invoke(ctx, op)
}

// TransferLeader asks the group to transfer leadership to destReplica.
// The call's epoch is a precondition: an epoch mismatch surfaces
// immediately.
func (c *GroupClient) TransferLeader(ctx context.Context, destReplica uint64) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewTransferRequest(ic.GroupID, ic.Epoch, destReplica))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.Transfer == nil {
			return &InternalError{Message: "invalid response type, Transfer is required"}
		}
		return nil
	}
	return c.invokeWithOpt(ctx, op, invokeOpt{accurateEpoch: true, ignoreTransportError: true})
}

// RemoveGroupReplica removes a replica from the group.
func (c *GroupClient) RemoveGroupReplica(ctx context.Context, replicaID uint64) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewRemoveReplicaRequest(ic.GroupID, ic.Epoch, replicaID))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.ChangeReplicas == nil {
			return &InternalError{Message: "invalid response type, ChangeReplicas is required"}
		}
		return nil
	}
	return c.invoke(ctx, op)
}

// AddReplica adds a voter replica on a node.
func (c *GroupClient) AddReplica(ctx context.Context, replicaID, nodeID uint64) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewAddReplicaRequest(ic.GroupID, ic.Epoch, replicaID, nodeID))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.ChangeReplicas == nil {
			return &InternalError{Message: "invalid response type, ChangeReplicas is required"}
		}
		return nil
	}
	return c.invoke(ctx, op)
}

// AddLearner adds a learner replica on a node.
func (c *GroupClient) AddLearner(ctx context.Context, replicaID, nodeID uint64) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewAddLearnerRequest(ic.GroupID, ic.Epoch, replicaID, nodeID))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.ChangeReplicas == nil {
			return &InternalError{Message: "invalid response type, ChangeReplicas is required"}
		}
		return nil
	}
	return c.invoke(ctx, op)
}

// MoveReplicas starts replacing outgoing voters with incoming voters and
// returns the group's schedule state.
func (c *GroupClient) MoveReplicas(ctx context.Context, incoming, outgoing []v1.ReplicaDesc) (*v1.ScheduleState, error) {
	req := &v1.RequestUnion{MoveReplicas: &v1.MoveReplicasRequest{
		IncomingVoters: incoming,
		OutgoingVoters: outgoing,
	}}
	union, err := c.Request(ctx, req)
	if err != nil {
		return nil, err
	}
	if union.MoveReplicas == nil {
		return nil, &InternalError{Message: "invalid response type, MoveReplicas is required"}
	}
	if union.MoveReplicas.ScheduleState == nil {
		return nil, &InternalError{Message: "invalid response, schedule_state is required"}
	}
	return union.MoveReplicas.ScheduleState, nil
}

// AcceptShard asks the group to take ownership of a shard moving in from
// another group. Epoch is a precondition.
func (c *GroupClient) AcceptShard(ctx context.Context, srcGroup, srcEpoch uint64, shard v1.ShardDesc) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewAcceptShardRequest(ic.GroupID, ic.Epoch, srcGroup, srcEpoch, shard))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.AcceptShard == nil {
			return &InternalError{Message: "invalid response type, AcceptShard is required"}
		}
		return nil
	}
	return c.invokeWithOpt(ctx, op, invokeOpt{accurateEpoch: true, ignoreTransportError: true})
}

// SplitShard splits oldShard at splitKey into oldShard and newShard.
// A nil splitKey lets the server pick the midpoint. Epoch is a
// precondition.
func (c *GroupClient) SplitShard(ctx context.Context, oldShardID, newShardID uint64, splitKey []byte) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewSplitShardRequest(ic.GroupID, ic.Epoch, oldShardID, newShardID, splitKey))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.SplitShard == nil {
			return &InternalError{Message: "invalid response type, SplitShard is required"}
		}
		return nil
	}
	return c.invokeWithOpt(ctx, op, invokeOpt{accurateEpoch: true, ignoreTransportError: true})
}

// MergeShard merges two adjacent shards. Epoch is a precondition.
func (c *GroupClient) MergeShard(ctx context.Context, leftShardID, rightShardID uint64) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.UnaryGroupRequest(rpcCtx, v1.NewMergeShardRequest(ic.GroupID, ic.Epoch, leftShardID, rightShardID))
		if err != nil {
			return err
		}
		union, err := groupResponse(resp)
		if err != nil {
			return err
		}
		if union.MergeShard == nil {
			return &InternalError{Message: "invalid response type, MergeShard is required"}
		}
		return nil
	}
	return c.invokeWithOpt(ctx, op, invokeOpt{accurateEpoch: true, ignoreTransportError: true})
}

// Shard moving operations, retried by MigrateClient.

// AcquireShard installs the moving-shard state on the destination group.
// Epoch is a precondition.
func (c *GroupClient) AcquireShard(ctx context.Context, desc *v1.MoveShardDesc) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		return nc.AcquireShard(rpcCtx, desc)
	}
	return c.invokeWithOpt(ctx, op, invokeOpt{accurateEpoch: true, ignoreTransportError: true})
}

// MoveOut finalizes a shard's departure from the source group.
func (c *GroupClient) MoveOut(ctx context.Context, desc *v1.MoveShardDesc) error {
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		return nc.MoveOut(rpcCtx, desc)
	}
	return c.invokeWithOpt(ctx, op, invokeOpt{ignoreTransportError: true})
}

// Forward relays a request to the destination group of a migration.
// Epoch is a precondition.
func (c *GroupClient) Forward(ctx context.Context, req *v1.ForwardRequest) (*v1.ForwardResponse, error) {
	var out *v1.ForwardResponse
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		rpcCtx, cancel := ic.rpcContext(ctx)
		defer cancel()
		resp, err := nc.Forward(rpcCtx, req)
		if err != nil {
			return err
		}
		out = resp
		return nil
	}
	if err := c.invokeWithOpt(ctx, op, invokeOpt{accurateEpoch: true}); err != nil {
		return nil, err
	}
	return out, nil
}
