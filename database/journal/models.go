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

package journal

import (
	"encoding/json"
	"time"
)

// Entry is one successfully applied ledger operation. IDs are UUIDv7 so
// that ordering by ID follows insertion order.
type Entry struct {
	CreatedAt  time.Time
	ID         string `gorm:"primaryKey;size:36"`
	Operation  string `gorm:"index"`
	Caller     string
	Detail     string
	PositionID uint64 `gorm:"index"`
	Cycle      uint64 `gorm:"index"`
}

func (Entry) TableName() string {
	return "journal_entry"
}

// NewEntry builds an Entry with detail encoded as JSON
func NewEntry(
	operation string,
	caller string,
	positionID uint64,
	cycle uint64,
	detail any,
) (*Entry, error) {
	e := &Entry{
		Operation:  operation,
		Caller:     caller,
		PositionID: positionID,
		Cycle:      cycle,
	}
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			return nil, err
		}
		e.Detail = string(data)
	}
	return e, nil
}

// CommitCycle records the cycle of the last snapshot written alongside the
// journal. There is only ever one row.
type CommitCycle struct {
	ID    uint `gorm:"primaryKey"`
	Cycle uint64
}

func (CommitCycle) TableName() string {
	return "commit_cycle"
}

// MigrateModels lists the models managed by the journal
var MigrateModels = []any{
	&Entry{},
	&CommitCycle{},
}
