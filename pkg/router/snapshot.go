package router

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	v1 "github.com/sekas-io/sekas/api/v1"
)

var (
	// Bucket names
	bucketGroups = []byte("groups")
	bucketNodes  = []byte("nodes")
)

// SnapshotStore persists routing snapshots to a BoltDB file so a fresh
// process can route before its first heartbeat.
type SnapshotStore struct {
	db *bolt.DB
}

// OpenSnapshotStore opens (creating if needed) the snapshot database
// under dataDir.
func OpenSnapshotStore(dataDir string) (*SnapshotStore, error) {
	dbPath := filepath.Join(dataDir, "routes.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open route database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketGroups, bucketNodes} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotStore{db: db}, nil
}

// Close closes the database
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save replaces the persisted snapshot.
func (s *SnapshotStore) Save(snapshot Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		groups, err := recreateBucket(tx, bucketGroups)
		if err != nil {
			return err
		}
		for id, state := range snapshot.Groups {
			data, err := json.Marshal(state)
			if err != nil {
				return fmt.Errorf("failed to marshal group %d: %w", id, err)
			}
			if err := groups.Put(u64Key(id), data); err != nil {
				return err
			}
		}

		nodes, err := recreateBucket(tx, bucketNodes)
		if err != nil {
			return err
		}
		for id, addr := range snapshot.Nodes {
			if err := nodes.Put(u64Key(id), []byte(addr)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the persisted snapshot, reporting whether one exists.
func (s *SnapshotStore) Load() (Snapshot, bool, error) {
	snapshot := Snapshot{
		Groups: make(map[uint64]v1.RouterGroupState),
		Nodes:  make(map[uint64]string),
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(bucketGroups).ForEach(func(k, v []byte) error {
			var state v1.RouterGroupState
			if err := json.Unmarshal(v, &state); err != nil {
				return fmt.Errorf("failed to unmarshal group state: %w", err)
			}
			snapshot.Groups[binary.BigEndian.Uint64(k)] = state
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			snapshot.Nodes[binary.BigEndian.Uint64(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return Snapshot{}, false, err
	}
	return snapshot, len(snapshot.Groups) > 0 || len(snapshot.Nodes) > 0, nil
}

func recreateBucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	if tx.Bucket(name) != nil {
		if err := tx.DeleteBucket(name); err != nil {
			return nil, err
		}
	}
	return tx.CreateBucket(name)
}

func u64Key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}
