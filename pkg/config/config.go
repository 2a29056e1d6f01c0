package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/router"
)

// ReplicaSeed names one replica of a seed group.
type ReplicaSeed struct {
	ReplicaID uint64 `yaml:"replica_id"`
	NodeID    uint64 `yaml:"node_id"`
}

// GroupSeed is the initial routing entry for one group.
type GroupSeed struct {
	GroupID  uint64        `yaml:"group_id"`
	Epoch    uint64        `yaml:"epoch"`
	Replicas []ReplicaSeed `yaml:"replicas"`
	// LeaderReplicaID hints the current leader; zero means unknown.
	LeaderReplicaID uint64 `yaml:"leader_replica_id"`
	LeaderTerm      uint64 `yaml:"leader_term"`
}

// Config is the sekasctl client configuration.
type Config struct {
	// Nodes maps node ids to transport addresses.
	Nodes map[uint64]string `yaml:"nodes"`
	// Groups seeds the routing table.
	Groups []GroupSeed `yaml:"groups"`

	RequestTimeout Duration      `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	LogJSON        bool          `yaml:"log_json"`
	// RouteCacheDir enables the persisted route snapshot when set.
	RouteCacheDir string `yaml:"route_cache_dir"`
}

// Default returns a config with everything but the cluster layout set.
func Default() *Config {
	return &Config{
		RequestTimeout: Duration(10 * time.Second),
		LogLevel:       "info",
	}
}

// Load reads and validates a config file, applying defaults for unset
// fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("config: at least one node is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout must be positive")
	}
	for _, group := range c.Groups {
		if group.GroupID == 0 {
			return fmt.Errorf("config: group_id must be non-zero")
		}
		if len(group.Replicas) == 0 {
			return fmt.Errorf("config: group %d has no replicas", group.GroupID)
		}
		for _, replica := range group.Replicas {
			if _, ok := c.Nodes[replica.NodeID]; !ok {
				return fmt.Errorf("config: group %d references unknown node %d", group.GroupID, replica.NodeID)
			}
		}
	}
	return nil
}

// SeedRouter loads the config's cluster layout into a router.
func (c *Config) SeedRouter(r *router.Router) {
	snapshot := router.Snapshot{
		Groups: make(map[uint64]v1.RouterGroupState, len(c.Groups)),
		Nodes:  make(map[uint64]string, len(c.Nodes)),
	}
	for id, addr := range c.Nodes {
		snapshot.Nodes[id] = addr
	}
	for _, group := range c.Groups {
		state := v1.RouterGroupState{
			ID:       group.GroupID,
			Epoch:    group.Epoch,
			Replicas: make(map[uint64]v1.ReplicaDesc, len(group.Replicas)),
		}
		for _, replica := range group.Replicas {
			state.Replicas[replica.ReplicaID] = v1.ReplicaDesc{
				ID:     replica.ReplicaID,
				NodeID: replica.NodeID,
				Role:   v1.ReplicaRoleVoter,
			}
		}
		if group.LeaderReplicaID != 0 {
			state.LeaderState = &v1.LeaderState{
				ReplicaID: group.LeaderReplicaID,
				Term:      group.LeaderTerm,
			}
		}
		snapshot.Groups[group.GroupID] = state
	}
	r.ApplySnapshot(snapshot)
}
