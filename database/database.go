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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/blinklabs-io/lockledger/database/snapshot"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrCommitCycleMismatch = errors.New(
	"journal commit cycle is ahead of the latest snapshot",
)

// Database pairs the operation journal with the snapshot store
type Database struct {
	logger    *slog.Logger
	journal   *journal.Journal
	snapshots *snapshot.Store
	dataDir   string
}

// Config holds the settings for New. An empty DataDir keeps everything in
// memory.
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	SnapshotRetain uint64
}

// New opens the journal and snapshot store and checks that they agree
func New(cfg Config) (*Database, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	j, err := journal.New(cfg.DataDir, cfg.Logger, cfg.PromRegistry)
	if err != nil {
		if j != nil {
			_ = j.Close()
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	s, err := snapshot.New(
		snapshot.WithDataDir(cfg.DataDir),
		snapshot.WithLogger(cfg.Logger),
		snapshot.WithPromRegistry(cfg.PromRegistry),
		snapshot.WithRetain(cfg.SnapshotRetain),
	)
	if err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	db := &Database{
		logger:    cfg.Logger,
		journal:   j,
		snapshots: s,
		dataDir:   cfg.DataDir,
	}
	if err := db.checkCommitCycle(); err != nil {
		return db, err
	}
	return db, nil
}

func (d *Database) Journal() *journal.Journal {
	return d.journal
}

func (d *Database) Snapshots() *snapshot.Store {
	return d.snapshots
}

func (d *Database) DataDir() string {
	return d.dataDir
}

func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Commit writes a snapshot of state for cycle and records it as the commit
// cycle. The snapshot is written first so a crash in between leaves the
// snapshot ahead, which checkCommitCycle repairs.
func (d *Database) Commit(cycle uint64, state any) error {
	if err := d.snapshots.Save(cycle, state); err != nil {
		return err
	}
	if err := d.journal.SetCommitCycle(cycle); err != nil {
		return fmt.Errorf("set commit cycle: %w", err)
	}
	return nil
}

// Restore decodes the latest committed snapshot into dst. It returns false
// when nothing has been committed yet.
func (d *Database) Restore(dst any) (uint64, bool, error) {
	cycle, err := d.snapshots.Latest(dst)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return cycle, true, nil
}

// Record appends an operation to the journal
func (d *Database) Record(entry *journal.Entry) error {
	return d.journal.Append(entry)
}

func (d *Database) checkCommitCycle() error {
	journalCycle, journalOk, err := d.journal.GetCommitCycle()
	if err != nil {
		return fmt.Errorf("get journal commit cycle: %w", err)
	}
	snapshotCycle, snapshotOk, err := d.snapshots.LatestCycle()
	if err != nil {
		return fmt.Errorf("get latest snapshot cycle: %w", err)
	}
	switch {
	case !journalOk && !snapshotOk:
		return nil
	case journalOk && !snapshotOk:
		return fmt.Errorf(
			"%w: journal %d, no snapshot",
			ErrCommitCycleMismatch,
			journalCycle,
		)
	case journalOk && journalCycle > snapshotCycle:
		return fmt.Errorf(
			"%w: journal %d, snapshot %d",
			ErrCommitCycleMismatch,
			journalCycle,
			snapshotCycle,
		)
	case !journalOk || journalCycle < snapshotCycle:
		d.logger.Warn(
			"snapshot ahead of journal commit cycle, repairing",
			"component", "database",
			"snapshot_cycle", snapshotCycle,
		)
		return d.journal.SetCommitCycle(snapshotCycle)
	}
	return nil
}

// Close closes the journal and snapshot store
func (d *Database) Close() error {
	var err error
	err = errors.Join(err, d.journal.Close())
	err = errors.Join(err, d.snapshots.Close())
	return err
}
