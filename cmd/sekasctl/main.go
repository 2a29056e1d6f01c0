package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	v1 "github.com/sekas-io/sekas/api/v1"
	"github.com/sekas-io/sekas/pkg/client"
	"github.com/sekas-io/sekas/pkg/config"
	"github.com/sekas-io/sekas/pkg/log"
	"github.com/sekas-io/sekas/pkg/metrics"
	"github.com/sekas-io/sekas/pkg/router"
	"github.com/sekas-io/sekas/pkg/transport"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sekasctl",
	Short: "sekasctl - admin client for Sekas groups",
	Long: `sekasctl drives Sekas group operations directly through the
group client: reads, writes, key watches, leadership transfers and
shard management. It routes to the current leader and retries through
followers exactly the way embedded clients do.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("sekasctl version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("config", "sekasctl.yaml", "Path to the client config file")
	rootCmd.PersistentFlags().Uint64("group", 0, "Target group id")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Expose client metrics on this address")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(transferLeaderCmd)
	rootCmd.AddCommand(splitShardCmd)
	rootCmd.AddCommand(mergeShardCmd)
	rootCmd.AddCommand(addReplicaCmd)
	rootCmd.AddCommand(removeReplicaCmd)
	rootCmd.AddCommand(moveReplicasCmd)
}

// clientEnv is the wired-up client context every subcommand runs with.
type clientEnv struct {
	cfg     *config.Config
	router  *router.Router
	connMgr *transport.ConnManager
	client  *client.Client
	groupID uint64
}

func setupClient(cmd *cobra.Command) (*clientEnv, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	log.Init(log.Config{Level: log.Level(level), JSONOutput: cfg.LogJSON, Output: os.Stderr})
	metrics.RegisterDefault()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go func() {
			if err := metrics.Serve(addr); err != nil {
				log.Errorf("metrics server stopped", err)
			}
		}()
	}

	var rt *router.Router
	if cfg.RouteCacheDir != "" {
		store, err := router.OpenSnapshotStore(cfg.RouteCacheDir)
		if err != nil {
			return nil, err
		}
		rt, err = router.NewWithStore(store)
		if err != nil {
			return nil, err
		}
	} else {
		rt = router.New()
	}
	cfg.SeedRouter(rt)

	groupID, _ := cmd.Flags().GetUint64("group")
	if groupID == 0 {
		return nil, fmt.Errorf("--group is required")
	}

	connMgr := transport.NewConnManager()
	return &clientEnv{
		cfg:     cfg,
		router:  rt,
		connMgr: connMgr,
		client:  client.New(rt, connMgr),
		groupID: groupID,
	}, nil
}

func (env *clientEnv) groupClient() *client.GroupClient {
	gc := client.Lazy(env.groupID, env.client)
	gc.SetTimeout(env.cfg.RequestTimeout.Std())
	return gc
}

var getCmd = &cobra.Command{
	Use:   "get <shard-id> <key>",
	Short: "Read a key from a shard",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		shardID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}

		resp, err := env.groupClient().Request(context.Background(), &v1.RequestUnion{
			Get: &v1.GetRequest{ShardID: shardID, UserKey: []byte(args[1])},
		})
		if err != nil {
			return err
		}
		if resp.Get == nil || resp.Get.Value == nil {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Printf("%s\n", resp.Get.Value.Value)
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put <shard-id> <key> <value>",
	Short: "Write a key into a shard",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		shardID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}

		resp, err := env.groupClient().Request(context.Background(), &v1.RequestUnion{
			Write: &v1.WriteRequest{
				ShardID: shardID,
				Puts:    []v1.PutRequest{{Key: []byte(args[1]), Value: []byte(args[2])}},
			},
		})
		if err != nil {
			return err
		}
		if resp.Write == nil {
			return fmt.Errorf("unexpected response variant")
		}
		fmt.Printf("OK (version %d)\n", resp.Write.Version)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <shard-id> <key>",
	Short: "Delete a key from a shard",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		shardID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}

		resp, err := env.groupClient().Request(context.Background(), &v1.RequestUnion{
			Write: &v1.WriteRequest{
				ShardID: shardID,
				Deletes: []v1.DeleteRequest{{Key: []byte(args[1])}},
			},
		})
		if err != nil {
			return err
		}
		if resp.Write == nil {
			return fmt.Errorf("unexpected response variant")
		}
		fmt.Println("OK")
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <shard-id> <key>",
	Short: "Watch a key for changes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		shardID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}

		gc := client.Lazy(env.groupID, env.client)
		stream, err := gc.WatchKey(context.Background(), shardID, []byte(args[1]), 0)
		if err != nil {
			return err
		}
		for {
			event, err := stream.Recv()
			if err != nil {
				return err
			}
			if event.Deleted {
				fmt.Println("(deleted)")
				continue
			}
			if event.Value != nil {
				fmt.Printf("version %d: %s\n", event.Value.Version, event.Value.Value)
			}
		}
	},
}

var transferLeaderCmd = &cobra.Command{
	Use:   "transfer-leader <replica-id>",
	Short: "Transfer group leadership to a replica",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		replicaID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid replica id: %w", err)
		}
		if err := env.groupClient().TransferLeader(context.Background(), replicaID); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

var splitShardCmd = &cobra.Command{
	Use:   "split-shard <old-shard-id> <new-shard-id> [split-key]",
	Short: "Split a shard in two",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		oldID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}
		newID, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}
		var splitKey []byte
		if len(args) == 3 {
			splitKey = []byte(args[2])
		}
		if err := env.groupClient().SplitShard(context.Background(), oldID, newID, splitKey); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

var mergeShardCmd = &cobra.Command{
	Use:   "merge-shard <left-shard-id> <right-shard-id>",
	Short: "Merge two adjacent shards",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		leftID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}
		rightID, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard id: %w", err)
		}
		if err := env.groupClient().MergeShard(context.Background(), leftID, rightID); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

var addReplicaCmd = &cobra.Command{
	Use:   "add-replica <replica-id> <node-id>",
	Short: "Add a voter replica on a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		replicaID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid replica id: %w", err)
		}
		nodeID, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid node id: %w", err)
		}
		if err := env.groupClient().AddReplica(context.Background(), replicaID, nodeID); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

var removeReplicaCmd = &cobra.Command{
	Use:   "remove-replica <replica-id>",
	Short: "Remove a replica from the group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		replicaID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid replica id: %w", err)
		}
		if err := env.groupClient().RemoveGroupReplica(context.Background(), replicaID); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

var moveReplicasCmd = &cobra.Command{
	Use:   "move-replicas",
	Short: "Replace outgoing voters with incoming voters",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupClient(cmd)
		if err != nil {
			return err
		}
		defer env.connMgr.Close()

		incoming, err := parseReplicaList(cmd, "incoming")
		if err != nil {
			return err
		}
		outgoing, err := parseReplicaList(cmd, "outgoing")
		if err != nil {
			return err
		}

		state, err := env.groupClient().MoveReplicas(context.Background(), incoming, outgoing)
		if err != nil {
			return err
		}
		fmt.Printf("schedule: %d incoming, %d outgoing\n", len(state.Incoming), len(state.Outgoing))
		return nil
	},
}

func init() {
	moveReplicasCmd.Flags().StringSlice("incoming", nil, "Incoming voters as replica-id:node-id pairs")
	moveReplicasCmd.Flags().StringSlice("outgoing", nil, "Outgoing voters as replica-id:node-id pairs")
}

func parseReplicaList(cmd *cobra.Command, flag string) ([]v1.ReplicaDesc, error) {
	raw, _ := cmd.Flags().GetStringSlice(flag)
	replicas := make([]v1.ReplicaDesc, 0, len(raw))
	for _, pair := range raw {
		var replicaID, nodeID uint64
		if _, err := fmt.Sscanf(pair, "%d:%d", &replicaID, &nodeID); err != nil {
			return nil, fmt.Errorf("invalid %s pair %q: %w", flag, pair, err)
		}
		replicas = append(replicas, v1.ReplicaDesc{ID: replicaID, NodeID: nodeID, Role: v1.ReplicaRoleVoter})
	}
	return replicas, nil
}
