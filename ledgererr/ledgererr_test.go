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

package ledgererr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/stretchr/testify/assert"
)

var errTest = ledgererr.New(
	ledgererr.ClassTemporal,
	"LOCK_OVER",
	"lock is over",
)

func TestClassOfWrapped(t *testing.T) {
	err := fmt.Errorf("increase lock amount for position %d: %w", 7, errTest)
	assert.ErrorIs(t, err, errTest)
	assert.Equal(t, ledgererr.ClassTemporal, ledgererr.ClassOf(err))
	assert.Equal(t, "LOCK_OVER", ledgererr.CodeOf(err))
}

func TestClassOfPlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, ledgererr.ClassUnknown, ledgererr.ClassOf(err))
	assert.Empty(t, ledgererr.CodeOf(err))
	assert.Equal(t, "unknown", ledgererr.ClassOf(err).String())
}
