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

// Package journal is an append-only SQLite record of applied ledger
// operations
package journal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	DefaultListLimit = 100
	vacuumInterval   = 24 * time.Hour
)

// ListOptions filters List results. Zero values match everything.
type ListOptions struct {
	Operation  string
	PositionID uint64
	FromCycle  uint64
	Limit      int
	Offset     int
	// Descending returns the newest entries first
	Descending bool
}

type Journal struct {
	db          *gorm.DB
	logger      *slog.Logger
	entries     *prometheus.CounterVec
	timerVacuum *time.Timer
	dataDir     string
	timerMutex  sync.Mutex
	vacuumWG    sync.WaitGroup
	closed      bool
}

// New opens the journal. Uses an in-memory database if dataDir is empty.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Journal, error) {
	if logger == nil {
		// Create logger to throw away logs
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	var db *gorm.DB
	var err error
	if dataDir == "" {
		db, err = gorm.Open(sqlite.Open(":memory:"), gormConfig)
		if err != nil {
			return nil, err
		}
		// Each connection to :memory: is a separate database
		sqlDb, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDb.SetMaxOpenConns(1)
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		journalPath := filepath.Join(dataDir, "journal.sqlite")
		// WAL journal mode keeps readers from blocking the writer
		connOpts := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		db, err = gorm.Open(
			sqlite.Open(fmt.Sprintf("file:%s?%s", journalPath, connOpts)),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
	}
	j := &Journal{
		db:      db,
		logger:  logger,
		dataDir: dataDir,
	}
	if promRegistry != nil {
		j.entries = promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockledger_journal_entries_total",
				Help: "total journal entries appended by operation",
			},
			[]string{"operation"},
		)
	}
	if err := j.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return j, err
	}
	for _, model := range MigrateModels {
		j.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := j.db.AutoMigrate(model); err != nil {
			return j, err
		}
	}
	j.scheduleVacuum()
	return j, nil
}

func (j *Journal) runVacuum() error {
	j.timerMutex.Lock()
	if j.dataDir == "" || j.closed {
		j.timerMutex.Unlock()
		return nil
	}
	j.vacuumWG.Add(1)
	j.timerMutex.Unlock()
	defer j.vacuumWG.Done()
	return j.db.Exec("VACUUM").Error
}

func (j *Journal) scheduleVacuum() {
	j.timerMutex.Lock()
	defer j.timerMutex.Unlock()
	if j.closed || j.dataDir == "" {
		return
	}
	if j.timerVacuum != nil {
		j.timerVacuum.Stop()
	}
	j.timerVacuum = time.AfterFunc(vacuumInterval, func() {
		defer j.scheduleVacuum()
		if err := j.runVacuum(); err != nil {
			j.logger.Error(
				"failed to vacuum journal",
				"component", "database",
				"error", err,
			)
		}
	})
}

// Append stores the entry, assigning its ID and timestamp
func (j *Journal) Append(entry *Entry) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	entry.ID = id.String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if result := j.db.Create(entry); result.Error != nil {
		return fmt.Errorf("append journal entry: %w", result.Error)
	}
	if j.entries != nil {
		j.entries.WithLabelValues(entry.Operation).Inc()
	}
	return nil
}

// List returns entries matching opts in insertion order
func (j *Journal) List(opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var ret []Entry
	result := j.filter(opts).
		Order(clause.OrderByColumn{
			Column: clause.Column{Name: "id"},
			Desc:   opts.Descending,
		}).
		Limit(limit).
		Offset(opts.Offset).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// Count returns the number of stored entries matching the filters in opts.
// Limit and Offset are ignored.
func (j *Journal) Count(opts ListOptions) (int64, error) {
	var count int64
	if result := j.filter(opts).Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

func (j *Journal) filter(opts ListOptions) *gorm.DB {
	query := j.db.Model(&Entry{})
	if opts.Operation != "" {
		query = query.Where("operation = ?", opts.Operation)
	}
	if opts.PositionID != 0 {
		query = query.Where("position_id = ?", opts.PositionID)
	}
	if opts.FromCycle != 0 {
		query = query.Where("cycle >= ?", opts.FromCycle)
	}
	return query
}

// GetCommitCycle returns the recorded snapshot cycle, if any
func (j *Journal) GetCommitCycle() (uint64, bool, error) {
	var tmp CommitCycle
	result := j.db.Where("id = ?", 1).Limit(1).Find(&tmp)
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	return tmp.Cycle, true, nil
}

// SetCommitCycle records the cycle of the last written snapshot
func (j *Journal) SetCommitCycle(cycle uint64) error {
	tmp := CommitCycle{ID: 1, Cycle: cycle}
	result := j.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"cycle"}),
	}).Create(&tmp)
	return result.Error
}

// DB returns the underlying GORM database handle
func (j *Journal) DB() *gorm.DB {
	return j.db
}

// Close stops the vacuum timer and closes the database
func (j *Journal) Close() error {
	j.timerMutex.Lock()
	j.closed = true
	if j.timerVacuum != nil {
		j.timerVacuum.Stop()
		j.timerVacuum = nil
	}
	j.timerMutex.Unlock()
	j.vacuumWG.Wait()
	sqlDb, err := j.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDb.Close()
}
