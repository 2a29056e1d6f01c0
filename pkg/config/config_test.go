package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekas-io/sekas/pkg/log"
	"github.com/sekas-io/sekas/pkg/router"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	os.Exit(m.Run())
}

const sampleConfig = `
nodes:
  1: 127.0.0.1:21001
  2: 127.0.0.1:21002
  3: 127.0.0.1:21003
groups:
  - group_id: 1
    epoch: 5
    replicas:
      - {replica_id: 1, node_id: 1}
      - {replica_id: 2, node_id: 2}
      - {replica_id: 3, node_id: 3}
    leader_replica_id: 1
    leader_term: 6
request_timeout: 2s
log_level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sekasctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Len(t, cfg.Nodes, 3)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout.Std())
	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Groups, 1)
	assert.Equal(t, uint64(6), cfg.Groups[0].LeaderTerm)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "nodes:\n  1: 127.0.0.1:21001\n"))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout.Std())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "no nodes",
			mutate:  func(cfg *Config) { cfg.Nodes = nil },
			wantErr: "at least one node",
		},
		{
			name:    "bad timeout",
			mutate:  func(cfg *Config) { cfg.RequestTimeout = 0 },
			wantErr: "request_timeout",
		},
		{
			name: "unknown node reference",
			mutate: func(cfg *Config) {
				cfg.Groups = []GroupSeed{{GroupID: 1, Replicas: []ReplicaSeed{{ReplicaID: 1, NodeID: 99}}}}
			},
			wantErr: "unknown node",
		},
		{
			name: "group without replicas",
			mutate: func(cfg *Config) {
				cfg.Groups = []GroupSeed{{GroupID: 1}}
			},
			wantErr: "no replicas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Nodes = map[uint64]string{1: "127.0.0.1:21001"}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSeedRouter(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	rt := router.New()
	cfg.SeedRouter(rt)

	state, err := rt.FindGroup(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), state.Epoch)
	assert.Len(t, state.Replicas, 3)
	require.NotNil(t, state.LeaderState)
	assert.Equal(t, uint64(1), state.LeaderState.ReplicaID)

	addr, err := rt.FindNodeAddr(2)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:21002", addr)
}
