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
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blinklabs-io/lockledger"
	"github.com/blinklabs-io/lockledger/database/journal"
	"github.com/blinklabs-io/lockledger/internal/config"
	"github.com/spf13/cobra"
)

// inspectReport is the summary printed by the inspect command
type inspectReport struct {
	Cycle          lockledger.CycleInfo     `json:"cycle"`
	Locks          lockledger.LockTotals    `json:"locks"`
	Staking        lockledger.StakingTotals `json:"staking"`
	LockPositions  int                      `json:"lockPositions"`
	StakePositions int                      `json:"stakePositions"`
	JournalEntries int64                    `json:"journalEntries"`
}

// openSystem opens the ledger from the configured database without
// starting the API or the cycle ticker
func openSystem(cfg *config.Config, logger *slog.Logger) (*lockledger.System, error) {
	opts, err := cfg.LedgerOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, lockledger.WithLogger(logger))
	return lockledger.New(lockledger.NewConfig(opts...))
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func inspectRun(cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := openSystem(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	info := s.Cycle()
	locks, err := s.LockTotalsAt(info.Current)
	if err != nil {
		return err
	}
	var open int
	for _, pos := range s.LockPositions() {
		if !pos.Burned {
			open++
		}
	}
	count, err := s.JournalCount(journal.ListOptions{})
	if err != nil {
		return err
	}
	return writeIndentedJSON(os.Stdout, inspectReport{
		Cycle:          info,
		Locks:          locks,
		Staking:        s.StakingTotalsAt(info.Current),
		LockPositions:  open,
		StakePositions: len(s.StakePositions()),
		JournalEntries: count,
	})
}

func inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a summary of the stored ledger state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return fmt.Errorf("no config found in context")
			}
			return inspectRun(cfg)
		},
	}
	return cmd
}

func journalCommand() *cobra.Command {
	var opts journal.ListOptions
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recorded ledger operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return fmt.Errorf("no config found in context")
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			s, err := openSystem(cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()
			entries, err := s.Journal(opts)
			if err != nil {
				return err
			}
			return writeIndentedJSON(os.Stdout, entries)
		},
	}
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "only list this operation")
	cmd.Flags().Uint64Var(&opts.PositionID, "position", 0, "only list operations on this position")
	cmd.Flags().Uint64Var(&opts.FromCycle, "from-cycle", 0, "only list operations from this cycle on")
	cmd.Flags().IntVar(&opts.Limit, "limit", journal.DefaultListLimit, "maximum number of entries")
	cmd.Flags().BoolVar(&opts.Descending, "newest-first", false, "list the newest entries first")
	return cmd
}
