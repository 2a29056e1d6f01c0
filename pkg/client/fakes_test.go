package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

var errFakeNotFound = errors.New("not found")

type fakeRouter struct {
	groups map[uint64]v1.RouterGroupState
	nodes  map[uint64]string
}

func (r *fakeRouter) FindGroup(groupID uint64) (v1.RouterGroupState, error) {
	state, ok := r.groups[groupID]
	if !ok {
		return v1.RouterGroupState{}, errFakeNotFound
	}
	return state, nil
}

func (r *fakeRouter) FindNodeAddr(nodeID uint64) (string, error) {
	addr, ok := r.nodes[nodeID]
	if !ok {
		return "", errFakeNotFound
	}
	return addr, nil
}

// attempt records one RPC as observed by the fake cluster.
type attempt struct {
	nodeID uint64
	epoch  uint64
}

// fakeCluster dispatches RPCs per node and records every attempt.
type fakeCluster struct {
	router *fakeRouter

	// unary handles UnaryGroupRequest per node.
	unary func(nodeID uint64, req *v1.GroupRequest) (*v1.GroupResponse, error)
	// acquire/moveOut/forward handle the migration surface per node.
	acquire func(nodeID uint64, desc *v1.MoveShardDesc) error
	moveOut func(nodeID uint64, desc *v1.MoveShardDesc) error
	forward func(nodeID uint64, req *v1.ForwardRequest) (*v1.ForwardResponse, error)
	// stream handles GroupRequestStream per node.
	stream func(nodeID uint64, req *v1.GroupRequest) (GroupStream, error)
	// pull handles PullShardChunk per node.
	pull func(nodeID uint64, req *v1.PullRequest) (ShardChunkStream, error)

	attempts []attempt
}

func (f *fakeCluster) GetNodeClient(addr string) (NodeClient, error) {
	for nodeID, nodeAddr := range f.router.nodes {
		if nodeAddr == addr {
			return &fakeNodeClient{cluster: f, nodeID: nodeID}, nil
		}
	}
	return nil, fmt.Errorf("unknown address %s", addr)
}

type fakeNodeClient struct {
	cluster *fakeCluster
	nodeID  uint64
}

func (nc *fakeNodeClient) UnaryGroupRequest(_ context.Context, req *v1.GroupRequest) (*v1.GroupResponse, error) {
	nc.cluster.attempts = append(nc.cluster.attempts, attempt{nodeID: nc.nodeID, epoch: req.Epoch})
	return nc.cluster.unary(nc.nodeID, req)
}

func (nc *fakeNodeClient) GroupRequestStream(_ context.Context, req *v1.GroupRequest) (GroupStream, error) {
	nc.cluster.attempts = append(nc.cluster.attempts, attempt{nodeID: nc.nodeID, epoch: req.Epoch})
	return nc.cluster.stream(nc.nodeID, req)
}

func (nc *fakeNodeClient) AcquireShard(_ context.Context, desc *v1.MoveShardDesc) error {
	nc.cluster.attempts = append(nc.cluster.attempts, attempt{nodeID: nc.nodeID})
	return nc.cluster.acquire(nc.nodeID, desc)
}

func (nc *fakeNodeClient) MoveOut(_ context.Context, desc *v1.MoveShardDesc) error {
	nc.cluster.attempts = append(nc.cluster.attempts, attempt{nodeID: nc.nodeID})
	return nc.cluster.moveOut(nc.nodeID, desc)
}

func (nc *fakeNodeClient) Forward(_ context.Context, req *v1.ForwardRequest) (*v1.ForwardResponse, error) {
	nc.cluster.attempts = append(nc.cluster.attempts, attempt{nodeID: nc.nodeID})
	return nc.cluster.forward(nc.nodeID, req)
}

func (nc *fakeNodeClient) PullShardChunk(_ context.Context, req *v1.PullRequest) (ShardChunkStream, error) {
	nc.cluster.attempts = append(nc.cluster.attempts, attempt{nodeID: nc.nodeID})
	return nc.cluster.pull(nc.nodeID, req)
}

// sliceStream replays fixed responses, then errors.
type sliceStream struct {
	responses []*v1.GroupResponse
	final     error
}

func (s *sliceStream) Recv() (*v1.GroupResponse, error) {
	if len(s.responses) == 0 {
		if s.final != nil {
			return nil, s.final
		}
		return nil, io.EOF
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type sliceChunkStream struct {
	chunks []*v1.ShardChunk
	final  error
}

func (s *sliceChunkStream) Recv() (*v1.ShardChunk, error) {
	if len(s.chunks) == 0 {
		if s.final != nil {
			return nil, s.final
		}
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

// testGroupState builds the canonical three-replica group: R1@N1 leading
// at the given term, R2@N2 and R3@N3 following.
func testGroupState(groupID, epoch, leaderTerm uint64) v1.RouterGroupState {
	return v1.RouterGroupState{
		ID:    groupID,
		Epoch: epoch,
		Replicas: map[uint64]v1.ReplicaDesc{
			1: {ID: 1, NodeID: 1},
			2: {ID: 2, NodeID: 2},
			3: {ID: 3, NodeID: 3},
		},
		LeaderState: &v1.LeaderState{ReplicaID: 1, Term: leaderTerm},
	}
}

func newFakeCluster(state v1.RouterGroupState) *fakeCluster {
	router := &fakeRouter{
		groups: map[uint64]v1.RouterGroupState{state.ID: state},
		nodes:  map[uint64]string{},
	}
	for _, desc := range state.Replicas {
		router.nodes[desc.NodeID] = fmt.Sprintf("127.0.0.1:%d", 21000+desc.NodeID)
	}
	return &fakeCluster{router: router}
}

func newTestGroupClient(cluster *fakeCluster, groupID uint64) *GroupClient {
	return Lazy(groupID, New(cluster.router, cluster))
}

func okResponse(value string) *v1.GroupResponse {
	return &v1.GroupResponse{Response: &v1.ResponseUnion{
		Get: &v1.GetResponse{Value: &v1.KeyValue{Value: []byte(value), Version: 1}},
	}}
}

func writeOKResponse() *v1.GroupResponse {
	return &v1.GroupResponse{Response: &v1.ResponseUnion{
		Write: &v1.WriteResponse{Version: 1},
	}}
}

func notLeaderResponse(groupID, term uint64, leader *v1.ReplicaDesc) *v1.GroupResponse {
	return &v1.GroupResponse{Error: &v1.Error{NotLeader: &v1.NotLeaderDetail{
		GroupID: groupID,
		Term:    term,
		Leader:  leader,
	}}}
}

func epochNotMatchResponse(desc v1.GroupDesc) *v1.GroupResponse {
	return &v1.GroupResponse{Error: &v1.Error{EpochNotMatch: &v1.EpochNotMatchDetail{Desc: desc}}}
}

func groupNotFoundResponse(groupID uint64) *v1.GroupResponse {
	return &v1.GroupResponse{Error: &v1.Error{GroupNotFound: &v1.GroupNotFoundDetail{GroupID: groupID}}}
}
