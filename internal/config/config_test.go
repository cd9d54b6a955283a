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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test-lockledger.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o644))
	return tmpFile
}

func TestLoad_CompareFullStruct(t *testing.T) {
	yamlContent := `
databasePath: "/var/lib/lockledger"
bindAddr: "127.0.0.1"
shutdownTimeout: "10s"
cycleSchedule: "0 0 * * 4"
maxHoldDuration: "48h"
principalAsset: "CVG"
stakedAsset: "stCVG"
primaryAsset: "CVG"
advancer: "keeper"
treasury: "treasury"
stakingAdmin: "admin"
processor: "processor"
emissionPerCycle: "1000"
managers:
  - "manager"
genesisBalances:
  - asset: "CVG"
    account: "alice"
    amount: "5000"
genesis: 3
checkpointInterval: 12
maxLockCycles: 96
historyFloor: 2
snapshotRetain: 10
apiPort: 9000
metricsPort: 9100
debug: true
tracing: true
tracingStdout: true
`
	expected := &Config{
		DatabasePath:     "/var/lib/lockledger",
		BindAddr:         "127.0.0.1",
		ShutdownTimeout:  "10s",
		CycleSchedule:    "0 0 * * 4",
		MaxHoldDuration:  "48h",
		PrincipalAsset:   "CVG",
		StakedAsset:      "stCVG",
		PrimaryAsset:     "CVG",
		Advancer:         "keeper",
		Treasury:         "treasury",
		StakingAdmin:     "admin",
		Processor:        "processor",
		EmissionPerCycle: "1000",
		Managers:         []string{"manager"},
		GenesisBalances: []GenesisBalance{
			{Asset: "CVG", Account: "alice", Amount: "5000"},
		},
		Genesis:            3,
		CheckpointInterval: 12,
		MaxLockCycles:      96,
		HistoryFloor:       2,
		SnapshotRetain:     10,
		ApiPort:            9000,
		MetricsPort:        9100,
		Debug:              true,
		Tracing:            true,
		TracingStdout:      true,
	}
	cfg, err := LoadConfig(writeConfig(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, expected, cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "advancer: keeper\n"))
	require.NoError(t, err)
	expected := defaultConfig()
	expected.Advancer = "keeper"
	assert.Equal(t, expected, cfg)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeoutDuration())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LOCKLEDGER_API_PORT", "7070")
	t.Setenv("LOCKLEDGER_CYCLE_SCHEDULE", "@every 1m")
	t.Setenv("LOCKLEDGER_TREASURY", "env-treasury")
	cfg, err := LoadConfig(writeConfig(t, "apiPort: 9000\ntreasury: file-treasury\n"))
	require.NoError(t, err)
	assert.Equal(t, uint(7070), cfg.ApiPort)
	assert.Equal(t, "@every 1m", cfg.CycleSchedule)
	assert.Equal(t, "env-treasury", cfg.Treasury)
}

func TestLoad_Invalid(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "apiPort: [\n"},
		{name: "bad shutdown timeout", content: "shutdownTimeout: soon\n"},
		{name: "bad emission", content: "emissionPerCycle: lots\n"},
		{name: "empty schedule", content: "cycleSchedule: \"\"\n"},
		{
			name:    "genesis balance without account",
			content: "genesisBalances:\n  - asset: CVG\n    amount: \"1\"\n",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, testDef.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLedgerOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.PrincipalAsset = "CVG"
	cfg.StakedAsset = "stCVG"
	cfg.PrimaryAsset = "CVG"
	cfg.Advancer = "keeper"
	cfg.Treasury = "treasury"
	cfg.EmissionPerCycle = "100"
	cfg.Managers = []string{"manager"}
	cfg.GenesisBalances = []GenesisBalance{
		{Asset: "CVG", Account: "alice", Amount: "10"},
	}
	opts, err := cfg.LedgerOptions()
	require.NoError(t, err)
	// Base options plus hold duration, managers, emission and genesis
	assert.Len(t, opts, 17)

	cfg.EmissionPerCycle = "-1"
	_, err = cfg.LedgerOptions()
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
