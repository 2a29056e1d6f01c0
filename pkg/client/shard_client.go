package client

import (
	"context"
	"errors"
	"io"

	v1 "github.com/sekas-io/sekas/api/v1"
)

// ShardClient pulls one shard's data from the group that owns it.
type ShardClient struct {
	groupID uint64
	shardID uint64
	client  *Client
}

// NewShardClient creates a shard client.
func NewShardClient(groupID, shardID uint64, client *Client) *ShardClient {
	return &ShardClient{groupID: groupID, shardID: shardID, client: client}
}

// Pull fetches the shard's chunks, resuming after lastKey when set. The
// pull is read-only, so transport faults rotate to the next replica.
func (sc *ShardClient) Pull(ctx context.Context, lastKey []byte) ([]v1.ShardChunk, error) {
	gc := Lazy(sc.groupID, sc.client)

	var chunks []v1.ShardChunk
	op := func(ctx context.Context, ic InvokeContext, nc NodeClient) error {
		stream, err := nc.PullShardChunk(ctx, &v1.PullRequest{
			GroupID: ic.GroupID,
			ShardID: sc.shardID,
			LastKey: lastKey,
		})
		if err != nil {
			return err
		}
		chunks = chunks[:0]
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
		}
	}

	if err := gc.invokeWithOpt(ctx, op, invokeOpt{ignoreTransportError: true}); err != nil {
		return nil, err
	}
	return chunks, nil
}
