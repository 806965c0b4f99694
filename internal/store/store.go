package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tako-tv/tako/internal/domain"
)

// Bucket names
var (
	bucketProgress    = []byte("progress")
	bucketCredentials = []byte("credentials")
)

const credentialsKey = "current"

// Store persists watch progress and credentials in BoltDB. Progress is
// one row per video ID with upsert semantics; credentials are a single
// blob for the signed-in user.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at dir/tako.db. An empty
// dir yields a memory-only store that forgets everything on Close.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "tako.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketProgress, bucketCredentials} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Progress ===

// GetProgress returns the stored row for a video ID.
func (s *Store) GetProgress(videoID string) (domain.WatchProgress, bool) {
	var p domain.WatchProgress
	if s.db == nil {
		return p, false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketProgress).Get([]byte(videoID)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return p, false
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.WatchProgress{}, false
	}
	return p, true
}

// PutProgress upserts a row keyed by video ID. CreatedAt is preserved
// from the existing row; a new row gets CreatedAt = ModifiedAt.
func (s *Store) PutProgress(p domain.WatchProgress) error {
	if s.db == nil {
		return nil
	}

	if existing, ok := s.GetProgress(p.VideoID); ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = p.ModifiedAt
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProgress).Put([]byte(p.VideoID), data)
	})
}

// AllProgress returns every row, most recently modified first.
func (s *Store) AllProgress() ([]domain.WatchProgress, error) {
	if s.db == nil {
		return nil, nil
	}

	var rows []domain.WatchProgress
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProgress).ForEach(func(k, v []byte) error {
			var p domain.WatchProgress
			if err := json.Unmarshal(v, &p); err != nil {
				return nil // skip a corrupt row rather than fail the scan
			}
			rows = append(rows, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ModifiedAt.After(rows[j].ModifiedAt)
	})
	return rows, nil
}

// DeleteProgress removes the row for a video ID.
func (s *Store) DeleteProgress(videoID string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProgress).Delete([]byte(videoID))
	})
}

// ClearProgress removes every progress row.
func (s *Store) ClearProgress() error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketProgress); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketProgress)
		return err
	})
}

// === Credentials ===

// Credentials returns the persisted token set, if any.
func (s *Store) Credentials() (domain.Credentials, bool) {
	var c domain.Credentials
	if s.db == nil {
		return c, false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketCredentials).Get([]byte(credentialsKey)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return c, false
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Credentials{}, false
	}
	return c, c.Valid()
}

// SaveCredentials persists the token set for the next run.
func (s *Store) SaveCredentials(c domain.Credentials) error {
	if s.db == nil {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Put([]byte(credentialsKey), data)
	})
}

// ClearCredentials forgets the persisted token set.
func (s *Store) ClearCredentials() error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Delete([]byte(credentialsKey))
	})
}
