package transport

import (
	"context"

	"google.golang.org/grpc"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/client"
)

// Full method names of the node service.
const (
	methodUnaryGroupRequest = "/sekas.v1.Node/UnaryGroupRequest"
	methodGroupRequest      = "/sekas.v1.Node/GroupRequest"
	methodAcquireShard      = "/sekas.v1.Node/AcquireShard"
	methodMoveOut           = "/sekas.v1.Node/MoveOut"
	methodForward           = "/sekas.v1.Node/Forward"
	methodPullShardChunk    = "/sekas.v1.Node/PullShardChunk"
)

var (
	groupRequestStreamDesc = &grpc.StreamDesc{
		StreamName:    "GroupRequest",
		ServerStreams: true,
	}
	pullShardChunkStreamDesc = &grpc.StreamDesc{
		StreamName:    "PullShardChunk",
		ServerStreams: true,
	}
)

// NodeClient is the gRPC transport handle for one node. All instances
// for an address share one multiplexed connection.
type NodeClient struct {
	conn   *grpc.ClientConn
	addr   string
	connID string
}

// Addr returns the node address this client talks to.
func (nc *NodeClient) Addr() string {
	return nc.addr
}

// UnaryGroupRequest submits one group request and waits for the
// response envelope.
func (nc *NodeClient) UnaryGroupRequest(ctx context.Context, req *v1.GroupRequest) (*v1.GroupResponse, error) {
	out := new(v1.GroupResponse)
	if err := nc.conn.Invoke(ctx, methodUnaryGroupRequest, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupRequestStream opens a server-streaming group request, used for
// key watches.
func (nc *NodeClient) GroupRequestStream(ctx context.Context, req *v1.GroupRequest) (client.GroupStream, error) {
	stream, err := nc.conn.NewStream(ctx, groupRequestStreamDesc, methodGroupRequest)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &groupStream{stream}, nil
}

// AcquireShard installs moving-shard state on the addressed group.
func (nc *NodeClient) AcquireShard(ctx context.Context, desc *v1.MoveShardDesc) error {
	return nc.conn.Invoke(ctx, methodAcquireShard, desc, new(v1.MoveShardResponse))
}

// MoveOut finalizes a shard's departure from the addressed group.
func (nc *NodeClient) MoveOut(ctx context.Context, desc *v1.MoveShardDesc) error {
	return nc.conn.Invoke(ctx, methodMoveOut, desc, new(v1.MoveShardResponse))
}

// Forward relays a request to the addressed group.
func (nc *NodeClient) Forward(ctx context.Context, req *v1.ForwardRequest) (*v1.ForwardResponse, error) {
	out := new(v1.ForwardResponse)
	if err := nc.conn.Invoke(ctx, methodForward, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PullShardChunk opens a server-streaming pull of one shard's data.
func (nc *NodeClient) PullShardChunk(ctx context.Context, req *v1.PullRequest) (client.ShardChunkStream, error) {
	stream, err := nc.conn.NewStream(ctx, pullShardChunkStreamDesc, methodPullShardChunk)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &shardChunkStream{stream}, nil
}

type groupStream struct {
	grpc.ClientStream
}

func (s *groupStream) Recv() (*v1.GroupResponse, error) {
	out := new(v1.GroupResponse)
	if err := s.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

type shardChunkStream struct {
	grpc.ClientStream
}

func (s *shardChunkStream) Recv() (*v1.ShardChunk, error) {
	out := new(v1.ShardChunk)
	if err := s.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}
