package amazon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/timshannon/badgerhold/v4"
)

// NodeStore is the local cache of library node metadata, keyed by node id.
// The duplicate tooling reads the whole table; the refresh path upserts into
// it. It is a cache of remote state, never authoritative.
type NodeStore struct {
	store *badgerhold.Store
}

// OpenNodeStore opens (creating if needed) the store at path.
func OpenNodeStore(path string) (*NodeStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // zerolog covers it

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open node store: %w", err)
	}

	log.Debug().Str("path", path).Msg("Node store opened")

	return &NodeStore{store: store}, nil
}

// Upsert writes nodes into the store. Re-upserting a node id overwrites the
// previous record, which makes refreshes idempotent even when the remote
// search returns the same node on multiple pages.
func (s *NodeStore) Upsert(nodes []Node) error {
	for i := range nodes {
		if nodes[i].ID == "" {
			continue
		}
		if err := s.store.Upsert(nodes[i].ID, &nodes[i]); err != nil {
			return fmt.Errorf("failed to store node %s: %w", nodes[i].ID, err)
		}
	}
	return nil
}

// All returns every cached node.
func (s *NodeStore) All() ([]Node, error) {
	var nodes []Node
	if err := s.store.Find(&nodes, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to read node store: %w", err)
	}
	return nodes, nil
}

// Count returns the number of cached nodes.
func (s *NodeStore) Count() (int, error) {
	count, err := s.store.Count(&Node{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count node store: %w", err)
	}
	return int(count), nil
}

// Close closes the underlying database.
func (s *NodeStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
