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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/lockledger"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "lockledger.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultCycleSchedule   = "@weekly"
	DefaultApiPort         = 8080
	DefaultMetricsPort     = 12798
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// GenesisBalance is an initial asset balance credited on first start
type GenesisBalance struct {
	Asset   string `yaml:"asset"`
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"`
}

type Config struct {
	DatabasePath       string           `yaml:"databasePath"       split_words:"true"`
	BindAddr           string           `yaml:"bindAddr"           split_words:"true"`
	ShutdownTimeout    string           `yaml:"shutdownTimeout"    split_words:"true"`
	CycleSchedule      string           `yaml:"cycleSchedule"      split_words:"true"`
	MaxHoldDuration    string           `yaml:"maxHoldDuration"    split_words:"true"`
	PrincipalAsset     string           `yaml:"principalAsset"     split_words:"true"`
	StakedAsset        string           `yaml:"stakedAsset"        split_words:"true"`
	PrimaryAsset       string           `yaml:"primaryAsset"       split_words:"true"`
	Advancer           string           `yaml:"advancer"`
	Treasury           string           `yaml:"treasury"`
	StakingAdmin       string           `yaml:"stakingAdmin"       split_words:"true"`
	Processor          string           `yaml:"processor"`
	EmissionPerCycle   string           `yaml:"emissionPerCycle"   split_words:"true"`
	Managers           []string         `yaml:"managers"`
	GenesisBalances    []GenesisBalance `yaml:"genesisBalances"    ignored:"true"`
	Genesis            uint64           `yaml:"genesis"`
	CheckpointInterval uint64           `yaml:"checkpointInterval" split_words:"true"`
	MaxLockCycles      uint64           `yaml:"maxLockCycles"      split_words:"true"`
	HistoryFloor       uint64           `yaml:"historyFloor"       split_words:"true"`
	SnapshotRetain     uint64           `yaml:"snapshotRetain"     split_words:"true"`
	ApiPort            uint             `yaml:"apiPort"            split_words:"true"`
	MetricsPort        uint             `yaml:"metricsPort"        split_words:"true"`
	Debug              bool             `yaml:"debug"`
	Tracing            bool             `yaml:"tracing"`
	TracingStdout      bool             `yaml:"tracingStdout"      split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:       ".lockledger",
		BindAddr:           "0.0.0.0",
		ShutdownTimeout:    DefaultShutdownTimeout,
		CycleSchedule:      DefaultCycleSchedule,
		MaxHoldDuration:    locking.DefaultMaxHoldDuration.String(),
		Genesis:            cycle.DefaultGenesis,
		CheckpointInterval: cycle.DefaultCheckpointInterval,
		MaxLockCycles:      locking.DefaultMaxLockCycles,
		ApiPort:            DefaultApiPort,
		MetricsPort:        DefaultMetricsPort,
	}
}

var globalConfig = defaultConfig()

// LoadConfig reads the YAML config file and then applies environment
// overrides with the LOCKLEDGER_ prefix. With no path given, the user and
// system config locations are tried in turn.
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		// Check for config file in this path: ~/.lockledger/lockledger.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".lockledger", "lockledger.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/lockledger/lockledger.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	cfg := defaultConfig()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("lockledger", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks the values that cannot be caught when the ledger is built
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdownTimeout %q: %w", c.ShutdownTimeout, err)
	}
	if c.MaxHoldDuration != "" {
		if _, err := time.ParseDuration(c.MaxHoldDuration); err != nil {
			return fmt.Errorf("invalid maxHoldDuration %q: %w", c.MaxHoldDuration, err)
		}
	}
	if c.CycleSchedule == "" {
		return errors.New("cycleSchedule must not be empty")
	}
	if c.EmissionPerCycle != "" {
		if _, err := amount.Parse(c.EmissionPerCycle); err != nil {
			return fmt.Errorf("invalid emissionPerCycle: %w", err)
		}
	}
	for _, gb := range c.GenesisBalances {
		if gb.Asset == "" || gb.Account == "" {
			return errors.New("genesis balance requires an asset and an account")
		}
		if _, err := amount.Parse(gb.Amount); err != nil {
			return fmt.Errorf(
				"invalid genesis balance for %s/%s: %w",
				gb.Account,
				gb.Asset,
				err,
			)
		}
	}
	return nil
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultShutdownTimeout)
	}
	return d
}

// LedgerOptions translates the file configuration into ledger options.
// Runtime collaborators such as the logger and metrics registry are added
// by the caller.
func (c *Config) LedgerOptions() ([]lockledger.ConfigOptionFunc, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := []lockledger.ConfigOptionFunc{
		lockledger.WithDatabasePath(c.DatabasePath),
		lockledger.WithSnapshotRetain(c.SnapshotRetain),
		lockledger.WithGenesis(c.Genesis),
		lockledger.WithCheckpointInterval(c.CheckpointInterval),
		lockledger.WithMaxLockCycles(c.MaxLockCycles),
		lockledger.WithHistoryFloor(c.HistoryFloor),
		lockledger.WithPrincipalAsset(asset.ID(c.PrincipalAsset)),
		lockledger.WithStakedAsset(asset.ID(c.StakedAsset)),
		lockledger.WithPrimaryAsset(asset.ID(c.PrimaryAsset)),
		lockledger.WithAdvancer(asset.Account(c.Advancer)),
		lockledger.WithTreasury(asset.Account(c.Treasury)),
		lockledger.WithStakingAdmin(asset.Account(c.StakingAdmin)),
		lockledger.WithProcessor(asset.Account(c.Processor)),
	}
	if c.MaxHoldDuration != "" {
		// Validated above
		d, _ := time.ParseDuration(c.MaxHoldDuration)
		opts = append(opts, lockledger.WithMaxHoldDuration(d))
	}
	if len(c.Managers) > 0 {
		managers := make([]asset.Account, 0, len(c.Managers))
		for _, m := range c.Managers {
			managers = append(managers, asset.Account(m))
		}
		opts = append(opts, lockledger.WithManagers(managers...))
	}
	if c.EmissionPerCycle != "" {
		perCycle, _ := amount.Parse(c.EmissionPerCycle)
		opts = append(opts, lockledger.WithEmissionPerCycle(perCycle))
	}
	if len(c.GenesisBalances) > 0 {
		balances := make([]asset.Balance, 0, len(c.GenesisBalances))
		for _, gb := range c.GenesisBalances {
			value, _ := amount.Parse(gb.Amount)
			balances = append(balances, asset.Balance{
				Asset:   asset.ID(gb.Asset),
				Account: asset.Account(gb.Account),
				Value:   value,
			})
		}
		opts = append(opts, lockledger.WithGenesisBalances(balances...))
	}
	return opts, nil
}
