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

package lockledger

import (
	"testing"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/locking"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() []ConfigOptionFunc {
	return []ConfigOptionFunc{
		WithAdvancer("keeper"),
		WithTreasury("treasury"),
		WithPrincipalAsset("CVG"),
		WithStakedAsset("stCVG"),
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.NotNil(t, cfg.delegation)
	assert.NotNil(t, cfg.now)
	assert.Equal(t, uint64(cycle.DefaultGenesis), cfg.genesis)
	assert.Equal(t, uint64(cycle.DefaultCheckpointInterval), cfg.checkpointInterval)
	assert.Equal(t, uint64(locking.DefaultMaxLockCycles), cfg.maxLockCycles)
	assert.Equal(t, locking.DefaultMaxHoldDuration, cfg.maxHoldDuration)
}

func TestConfigOptionsApply(t *testing.T) {
	cfg := NewConfig(
		WithManagers("manager-a"),
		WithManagers("manager-b"),
		WithGenesisBalances(asset.Balance{
			Asset:   "CVG",
			Account: "alice",
			Value:   uint256.NewInt(5),
		}),
		WithEmissionPerCycle(uint256.NewInt(100)),
		WithCheckpointInterval(4),
		WithMaxLockCycles(48),
	)
	assert.Equal(t, []asset.Account{"manager-a", "manager-b"}, cfg.managers)
	require.Len(t, cfg.genesisBalances, 1)
	require.NotNil(t, cfg.emission)
	assert.Equal(t, "100", cfg.emission.AmountFor(7).Dec())
	assert.Equal(t, uint64(4), cfg.checkpointInterval)
	assert.Equal(t, uint64(48), cfg.maxLockCycles)
}

func TestConfigValidate(t *testing.T) {
	testDefs := []struct {
		name    string
		opts    []ConfigOptionFunc
		wantErr bool
	}{
		{name: "valid", opts: validOptions()},
		{
			name:    "missing advancer",
			opts:    append(validOptions(), WithAdvancer("")),
			wantErr: true,
		},
		{
			name:    "missing treasury",
			opts:    append(validOptions(), WithTreasury("")),
			wantErr: true,
		},
		{
			name:    "emission without primary asset",
			opts:    append(validOptions(), WithEmissionPerCycle(uint256.NewInt(1))),
			wantErr: true,
		},
		{
			name:    "max lock not a checkpoint multiple",
			opts:    append(validOptions(), WithMaxLockCycles(50)),
			wantErr: true,
		},
		{
			name:    "zero checkpoint interval",
			opts:    append(validOptions(), WithCheckpointInterval(0)),
			wantErr: true,
		},
		{
			name: "incomplete genesis balance",
			opts: append(
				validOptions(),
				WithGenesisBalances(asset.Balance{Asset: "CVG", Account: "alice"}),
			),
			wantErr: true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			cfg := NewConfig(testDef.opts...)
			err := cfg.validate()
			if testDef.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
