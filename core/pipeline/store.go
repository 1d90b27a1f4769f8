package pipeline

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	"go.etcd.io/bbolt"
)

// VectorStore persists the id to vector mapping of the embedding pipeline.
type VectorStore interface {
	// Replace atomically replaces all records.
	Replace(ctx context.Context, records []model.EmbeddingRecord) error
	// Load returns all records in insertion order.
	Load(ctx context.Context) ([]model.EmbeddingRecord, error)
}

var bucketEmbeddings = []byte("embeddings")

// BoltVectorStore keeps the embedding records in a single bbolt file.
// Every Replace writes a new file and renames it over the old one,
// so readers see either the previous or the next mapping.
type BoltVectorStore struct {
	path    string
	timeout time.Duration
}

// NewBoltVectorStore creates a store at path. The file is created on the first Replace.
func NewBoltVectorStore(path string) *BoltVectorStore {
	return &BoltVectorStore{path: path, timeout: 5 * time.Second}
}

// Path returns the location of the store file.
func (s *BoltVectorStore) Path() string {
	return s.path
}

func (s *BoltVectorStore) Replace(ctx context.Context, records []model.EmbeddingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return helper.NewError("create store directory", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return helper.NewError("create temp file", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return helper.NewError("close temp file", err)
	}

	if err := writeRecords(tmpPath, s.timeout, records); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return helper.NewError("rename store file", err)
	}

	return nil
}

func writeRecords(path string, timeout time.Duration, records []model.EmbeddingRecord) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return helper.NewError("open store", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		if err != nil {
			return err
		}
		for i, record := range records {
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}
			if err := b.Put(sequenceKey(uint64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return helper.NewError("write records", err)
	}

	return helper.NewError("close store", db.Close())
}

func (s *BoltVectorStore) Load(ctx context.Context) ([]model.EmbeddingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: s.timeout, ReadOnly: true})
	if err != nil {
		return nil, helper.NewError("open store", err)
	}
	defer db.Close()

	var records []model.EmbeddingRecord
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var record model.EmbeddingRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, helper.NewError("read records", err)
	}

	return records, nil
}

// sequenceKey encodes big endian so the cursor order is the insertion order.
func sequenceKey(i uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, i)
	return key
}
