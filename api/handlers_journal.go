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

package api

import (
	"net/http"

	"github.com/blinklabs-io/lockledger/database/journal"
)

// handleJournal handles GET /api/v1/journal. It accepts the pagination
// parameters plus operation, position and from_cycle filters.
func (s *Server) handleJournal(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	positionID, err := queryUint(r, "position", 0)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	fromCycle, err := queryUint(r, "from_cycle", 0)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	opts := journal.ListOptions{
		Operation:  r.URL.Query().Get("operation"),
		PositionID: positionID,
		FromCycle:  fromCycle,
		Limit:      params.Count,
		Offset:     params.Offset(),
		Descending: params.Order == PaginationOrderDesc,
	}
	total, err := s.ledger.JournalCount(opts)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	entries, err := s.ledger.Journal(opts)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	ret := make([]JournalEntryResponse, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, JournalEntryResponse{
			CreatedAt:  e.CreatedAt.UTC(),
			ID:         e.ID,
			Operation:  e.Operation,
			Caller:     e.Caller,
			Detail:     e.Detail,
			PositionID: e.PositionID,
			Cycle:      e.Cycle,
		})
	}
	SetPaginationHeaders(w, int(total), params)
	writeJSON(w, http.StatusOK, ret)
}
