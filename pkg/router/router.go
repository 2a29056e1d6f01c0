package router

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/log"
	"github.com/sekas-io/sekas/pkg/metrics"
)

// ErrNotFound is returned when the router has no entry for a lookup.
var ErrNotFound = errors.New("router: not found")

// Snapshot is a full copy of the routing table.
type Snapshot struct {
	Groups map[uint64]v1.RouterGroupState `json:"groups"`
	Nodes  map[uint64]string              `json:"nodes"`
}

// Router is the shared routing cache. It is safe for concurrent use.
type Router struct {
	mu     sync.RWMutex
	groups map[uint64]v1.RouterGroupState
	nodes  map[uint64]string

	store  *SnapshotStore
	logger zerolog.Logger
}

// New creates an empty router.
func New() *Router {
	return &Router{
		groups: make(map[uint64]v1.RouterGroupState),
		nodes:  make(map[uint64]string),
		logger: log.WithComponent("router"),
	}
}

// NewWithStore creates a router that persists its table to store and
// warm-starts from whatever snapshot the store already holds.
func NewWithStore(store *SnapshotStore) (*Router, error) {
	r := New()
	r.store = store
	snapshot, ok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		r.ApplySnapshot(snapshot)
		r.logger.Info().
			Int("groups", len(snapshot.Groups)).
			Int("nodes", len(snapshot.Nodes)).
			Msg("Restored routing table from snapshot store")
	}
	return r, nil
}

// FindGroup returns a copy of the group's routing state.
func (r *Router) FindGroup(groupID uint64) (v1.RouterGroupState, error) {
	r.mu.RLock()
	state, ok := r.groups[groupID]
	r.mu.RUnlock()
	if !ok {
		metrics.RouterLookupTotal.WithLabelValues("group", "miss").Inc()
		return v1.RouterGroupState{}, ErrNotFound
	}
	metrics.RouterLookupTotal.WithLabelValues("group", "hit").Inc()
	return cloneGroupState(state), nil
}

// FindNodeAddr returns the transport address of a node.
func (r *Router) FindNodeAddr(nodeID uint64) (string, error) {
	r.mu.RLock()
	addr, ok := r.nodes[nodeID]
	r.mu.RUnlock()
	if !ok {
		metrics.RouterLookupTotal.WithLabelValues("node", "miss").Inc()
		return "", ErrNotFound
	}
	metrics.RouterLookupTotal.WithLabelValues("node", "hit").Inc()
	return addr, nil
}

// UpdateGroup replaces the state of one group. Stale updates (lower
// epoch than the cached entry) are ignored.
func (r *Router) UpdateGroup(state v1.RouterGroupState) {
	r.mu.Lock()
	if cur, ok := r.groups[state.ID]; ok && cur.Epoch > state.Epoch {
		r.mu.Unlock()
		r.logger.Debug().
			Uint64("group_id", state.ID).
			Uint64("cached_epoch", cur.Epoch).
			Uint64("update_epoch", state.Epoch).
			Msg("Ignoring stale group update")
		return
	}
	r.groups[state.ID] = cloneGroupState(state)
	metrics.RouterGroupsTotal.Set(float64(len(r.groups)))
	r.mu.Unlock()
	r.persist()
}

// UpdateNodeAddr records or replaces a node's transport address.
func (r *Router) UpdateNodeAddr(nodeID uint64, addr string) {
	r.mu.Lock()
	r.nodes[nodeID] = addr
	r.mu.Unlock()
	r.persist()
}

// ApplySnapshot replaces the whole routing table, as on a full heartbeat.
func (r *Router) ApplySnapshot(snapshot Snapshot) {
	groups := make(map[uint64]v1.RouterGroupState, len(snapshot.Groups))
	for id, state := range snapshot.Groups {
		groups[id] = cloneGroupState(state)
	}
	nodes := make(map[uint64]string, len(snapshot.Nodes))
	for id, addr := range snapshot.Nodes {
		nodes[id] = addr
	}

	r.mu.Lock()
	r.groups = groups
	r.nodes = nodes
	metrics.RouterGroupsTotal.Set(float64(len(r.groups)))
	r.mu.Unlock()
	r.persist()
}

// Snapshot returns a full copy of the routing table.
func (r *Router) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := Snapshot{
		Groups: make(map[uint64]v1.RouterGroupState, len(r.groups)),
		Nodes:  make(map[uint64]string, len(r.nodes)),
	}
	for id, state := range r.groups {
		snapshot.Groups[id] = cloneGroupState(state)
	}
	for id, addr := range r.nodes {
		snapshot.Nodes[id] = addr
	}
	return snapshot
}

func (r *Router) persist() {
	if r.store == nil {
		return
	}
	if err := r.store.Save(r.Snapshot()); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to persist routing snapshot")
	}
}

func cloneGroupState(state v1.RouterGroupState) v1.RouterGroupState {
	out := v1.RouterGroupState{ID: state.ID, Epoch: state.Epoch}
	out.Replicas = make(map[uint64]v1.ReplicaDesc, len(state.Replicas))
	for id, desc := range state.Replicas {
		out.Replicas[id] = desc
	}
	if state.LeaderState != nil {
		leader := *state.LeaderState
		out.LeaderState = &leader
	}
	return out
}
