// Package history persists completed analyses in a local bbolt database.
// The pipeline core never depends on it; the serve command wires it in as
// the agent's recorder.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

const analysesBucket = "analyses"

// Store is an append-only record of analysis results.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(analysesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init history bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveAnalysis appends one analysis result. Keys are a monotonically
// increasing sequence so iteration order is insertion order.
func (s *Store) SaveAnalysis(result models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(analysesBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

// Recent returns up to limit analyses, newest first.
func (s *Store) Recent(limit int) ([]models.AnalysisResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var results []models.AnalysisResult
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(analysesBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(results) < limit; k, v = c.Prev() {
			var result models.AnalysisResult
			if err := json.Unmarshal(v, &result); err != nil {
				return fmt.Errorf("unmarshal analysis: %w", err)
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
