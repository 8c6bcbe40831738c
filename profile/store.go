// Package profile persists enrolled voice profiles so the pipeline can
// be handed the owner's reference embedding explicitly instead of
// keeping it in process-wide state.
package profile

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"lukechampine.com/blake3"
)

var ErrProfileNotFound = fmt.Errorf("profile not found")

// Profile is one enrolled voice: the owner's reference embedding plus a
// fingerprint of the audio sample it was computed from.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Embedding []float64 `json:"embedding"`
	AudioHash string    `json:"audio_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProfile builds a profile with a fresh ID and a blake3 fingerprint
// of the enrollment audio.
func NewProfile(name string, embedding []float64, audio []byte) *Profile {
	h := blake3.New(32, nil)
	h.Write(audio)
	return &Profile{
		ID:        uuid.New().String(),
		Name:      name,
		Embedding: embedding,
		AudioHash: hex.EncodeToString(h.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}
}

type Store interface {
	Put(p *Profile) error
	Get(id string) (*Profile, error)
	List() ([]*Profile, error)
	Close() error
}

type badgerStore struct {
	db *badger.DB
}

func NewStore(path string) (Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Put(p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(p.ID), data)
	})
}

func (s *badgerStore) Get(id string) (*Profile, error) {
	var p Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (s *badgerStore) List() ([]*Profile, error) {
	var out []*Profile
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var p Profile
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			})
			if err != nil {
				return err
			}
			out = append(out, &p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return out, nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
