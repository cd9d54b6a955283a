// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package snapshot keeps CBOR encoded ledger state in badger, keyed by the
// cycle it was taken in. Writing the same cycle again replaces the
// previous snapshot for that cycle.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	keyPrefix  = "snapshot_"
	gcInterval = 5 * time.Minute
)

var ErrNotFound = errors.New("snapshot not found")

// Store holds snapshots in badger. It is safe for concurrent use.
type Store struct {
	promRegistry prometheus.Registerer
	db           *badger.DB
	logger       *slog.Logger
	metrics      *storeMetrics
	encMode      cbor.EncMode
	gcTicker     *time.Ticker
	gcStopCh     chan struct{}
	dataDir      string
	gcWg         sync.WaitGroup
	retain       uint64
	gcEnabled    bool
}

// New opens a snapshot store. Without a data directory the store is in
// memory only.
func New(opts ...StoreOptionFunc) (*Store, error) {
	s := &Store{
		gcEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Create logger to throw away logs
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	s.encMode = encMode
	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithInMemory(true)
		// Nothing to collect in memory
		s.gcEnabled = false
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(s.dataDir, "snapshot")).
			WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(NewBadgerLogger(s.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	s.db = db
	if s.promRegistry != nil {
		s.metrics = &storeMetrics{}
		s.metrics.init(s.promRegistry)
	}
	if s.gcEnabled {
		s.gcTicker = time.NewTicker(gcInterval)
		s.gcStopCh = make(chan struct{})
		s.gcWg.Add(1)
		go s.valueLogGc(s.gcTicker, s.gcStopCh)
	}
	return s, nil
}

func (s *Store) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer s.gcWg.Done()
	for {
		select {
		case <-t.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just ran successfully
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn(
						fmt.Sprintf("snapshot DB: GC failure: %s", err),
						"component", "database",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

func cycleKey(cycle uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], cycle)
	return key
}

func keyCycle(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(keyPrefix):])
}

// Save encodes state and stores it as the snapshot for cycle
func (s *Store) Save(cycle uint64, state any) error {
	data, err := s.encMode.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cycleKey(cycle), data)
	})
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if s.metrics != nil {
		s.metrics.saves.Inc()
		s.metrics.lastBytes.Set(float64(len(data)))
		s.metrics.lastCycle.Set(float64(cycle))
	}
	if s.retain > 0 && cycle >= s.retain {
		if err := s.pruneBefore(cycle - s.retain + 1); err != nil {
			return err
		}
	}
	return nil
}

// At decodes the snapshot taken in cycle into dst
func (s *Store) At(cycle uint64, dst any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cycleKey(cycle))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("cycle %d: %w", cycle, ErrNotFound)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, dst)
		})
	})
}

// Latest decodes the most recent snapshot into dst and returns its cycle
func (s *Store) Latest(dst any) (uint64, error) {
	var cycle uint64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:  []byte(keyPrefix),
			Reverse: true,
		})
		defer it.Close()
		// Reverse iteration seeks to the largest key at or before the target
		it.Seek(cycleKey(^uint64(0)))
		if !it.ValidForPrefix([]byte(keyPrefix)) {
			return ErrNotFound
		}
		item := it.Item()
		cycle = keyCycle(item.Key())
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, dst)
		})
	})
	if err != nil {
		return 0, err
	}
	return cycle, nil
}

// LatestCycle returns the cycle of the most recent snapshot without
// decoding it
func (s *Store) LatestCycle() (uint64, bool, error) {
	var raw cbor.RawMessage
	cycle, err := s.Latest(&raw)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return cycle, true, nil
}

// Cycles lists the cycles with a stored snapshot in ascending order
func (s *Store) Cycles() ([]uint64, error) {
	var ret []uint64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix: []byte(keyPrefix),
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ret = append(ret, keyCycle(it.Item().Key()))
		}
		return nil
	})
	return ret, err
}

func (s *Store) pruneBefore(cycle uint64) error {
	limit := cycleKey(cycle)
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix: []byte(keyPrefix),
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, limit) >= 0 {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	s.logger.Debug(
		"pruned snapshots",
		"component", "database",
		"count", len(keys),
		"before", cycle,
	)
	if s.metrics != nil {
		s.metrics.pruned.Add(float64(len(keys)))
	}
	return nil
}

// Close stops background GC and closes the underlying database
func (s *Store) Close() error {
	if s.gcTicker != nil {
		s.gcTicker.Stop()
		close(s.gcStopCh)
		s.gcWg.Wait()
		s.gcTicker = nil
	}
	return s.db.Close()
}
