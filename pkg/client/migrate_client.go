package client

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/log"
	"github.com/sekas-io/sekas/pkg/metrics"
)

// MigrateClient wraps GroupClient with retry for migration-scope RPCs.
//
// Each iteration manufactures a fresh GroupClient so cached leader hints
// and replica orderings reset cleanly between attempts. That reset is a
// correctness property: a hint poisoned by the previous iteration must
// not steer the next one.
type MigrateClient struct {
	groupID uint64
	client  *Client
	logger  zerolog.Logger
}

// NewMigrateClient creates a migrate client for a group.
func NewMigrateClient(groupID uint64, client *Client) *MigrateClient {
	return &MigrateClient{
		groupID: groupID,
		client:  client,
		logger:  log.WithComponent("migrate-client").With().Uint64("group_id", groupID).Logger(),
	}
}

// SetupMigration installs the moving-shard state on the destination
// group. Every error is retried except EpochNotMatch, which means the
// migration was superseded and is the caller's to handle.
func (m *MigrateClient) SetupMigration(ctx context.Context, desc *v1.MoveShardDesc) error {
	state := NewRetryState(0)
	for {
		gc := m.groupClient()
		err := gc.AcquireShard(ctx, desc)
		if err == nil {
			return nil
		}
		var epochErr *EpochNotMatchError
		if errors.As(err, &epochErr) {
			return err
		}
		m.logger.Debug().Err(err).Msg("Setup migration failed, retrying")
		metrics.MigrateRetryTotal.WithLabelValues("setup").Inc()
		if err := state.Retry(ctx, err); err != nil {
			return err
		}
	}
}

// CommitMigration finalizes the shard's departure from the source group,
// retrying until it succeeds or the context is cancelled.
func (m *MigrateClient) CommitMigration(ctx context.Context, desc *v1.MoveShardDesc) error {
	state := NewRetryState(0)
	for {
		gc := m.groupClient()
		err := gc.MoveOut(ctx, desc)
		if err == nil {
			return nil
		}
		m.logger.Debug().Err(err).Msg("Commit migration failed, retrying")
		metrics.MigrateRetryTotal.WithLabelValues("commit").Inc()
		if err := state.Retry(ctx, err); err != nil {
			return err
		}
	}
}

// PullShardChunk pulls shard data, constructing a fresh ShardClient per
// iteration.
func (m *MigrateClient) PullShardChunk(ctx context.Context, shardID uint64, lastKey []byte) ([]v1.ShardChunk, error) {
	state := NewRetryState(0)
	for {
		sc := NewShardClient(m.groupID, shardID, m.client)
		chunks, err := sc.Pull(ctx, lastKey)
		if err == nil {
			return chunks, nil
		}
		m.logger.Debug().Err(err).Uint64("shard_id", shardID).Msg("Pull shard chunk failed, retrying")
		metrics.MigrateRetryTotal.WithLabelValues("pull").Inc()
		if err := state.Retry(ctx, err); err != nil {
			return nil, err
		}
	}
}

// Forward relays a request to the migration's destination group.
func (m *MigrateClient) Forward(ctx context.Context, req *v1.ForwardRequest) (*v1.ForwardResponse, error) {
	state := NewRetryState(0)
	for {
		gc := m.groupClient()
		resp, err := gc.Forward(ctx, req)
		if err == nil {
			return resp, nil
		}
		m.logger.Debug().Err(err).Msg("Forward failed, retrying")
		metrics.MigrateRetryTotal.WithLabelValues("forward").Inc()
		if err := state.Retry(ctx, err); err != nil {
			return nil, err
		}
	}
}

func (m *MigrateClient) groupClient() *GroupClient {
	return Lazy(m.groupID, m.client)
}
