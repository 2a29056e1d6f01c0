package client

import (
	"context"

	v1 "github.com/sekas-io/sekas/api/v1"
)

// Router supplies read-only routing snapshots. Implemented by
// pkg/router.Router.
type Router interface {
	FindGroup(groupID uint64) (v1.RouterGroupState, error)
	FindNodeAddr(nodeID uint64) (string, error)
}

// ConnManager hands out reusable node transports by address.
// Implemented by pkg/transport.ConnManager.
type ConnManager interface {
	GetNodeClient(addr string) (NodeClient, error)
}

// NodeClient is the transport handle for one node.
type NodeClient interface {
	UnaryGroupRequest(ctx context.Context, req *v1.GroupRequest) (*v1.GroupResponse, error)
	GroupRequestStream(ctx context.Context, req *v1.GroupRequest) (GroupStream, error)
	AcquireShard(ctx context.Context, desc *v1.MoveShardDesc) error
	MoveOut(ctx context.Context, desc *v1.MoveShardDesc) error
	Forward(ctx context.Context, req *v1.ForwardRequest) (*v1.ForwardResponse, error)
	PullShardChunk(ctx context.Context, req *v1.PullRequest) (ShardChunkStream, error)
}

// GroupStream is a server-streaming group response sequence.
type GroupStream interface {
	Recv() (*v1.GroupResponse, error)
}

// ShardChunkStream is a server-streaming shard data sequence.
type ShardChunkStream interface {
	Recv() (*v1.ShardChunk, error)
}

// Client bundles the shared collaborators every group client needs.
type Client struct {
	router  Router
	connMgr ConnManager
}

// New creates a client handle over a router and a connection manager.
func New(router Router, connMgr ConnManager) *Client {
	return &Client{router: router, connMgr: connMgr}
}

// Router returns the routing cache.
func (c *Client) Router() Router {
	return c.router
}

// ConnMgr returns the connection manager.
func (c *Client) ConnMgr() ConnManager {
	return c.connMgr
}
