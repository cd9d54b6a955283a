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

package amount_test

import (
	"testing"

	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	v, err := amount.MulDivUint64(uint256.NewInt(200), 7, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(116), v.Uint64())

	max := new(uint256.Int).SetAllOne()
	v, err = amount.MulDiv(max, uint256.NewInt(2), uint256.NewInt(2))
	require.NoError(t, err)
	assert.True(t, v.Eq(max))

	_, err = amount.MulDiv(max, uint256.NewInt(2), uint256.NewInt(1))
	require.ErrorIs(t, err, amount.ErrOverflow)

	_, err = amount.MulDivUint64(max, 1, 0)
	require.Error(t, err)
}

func TestSubFloor(t *testing.T) {
	assert.True(t, amount.SubFloor(uint256.NewInt(1), uint256.NewInt(2)).IsZero())
	assert.Equal(t, uint64(3), amount.SubFloor(uint256.NewInt(5), uint256.NewInt(2)).Uint64())
}

func TestDisplay(t *testing.T) {
	v := uint256.MustFromDecimal("1500000000000000000")
	assert.Equal(t, "1.5", amount.Display(v, 18))
	back, err := amount.ParseDisplay("1.5", 18)
	require.NoError(t, err)
	assert.True(t, back.Eq(v))

	_, err = amount.ParseDisplay("0.0000001", 6)
	require.Error(t, err)
	_, err = amount.ParseDisplay("-1", 6)
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	v, err := amount.Parse(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v.Uint64())
	_, err = amount.Parse("")
	require.Error(t, err)
	_, err = amount.Parse("1.5")
	require.Error(t, err)
}
