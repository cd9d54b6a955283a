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
	"errors"
	"net/http"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/locking"
)

func (s *Server) lockResponse(pos locking.Position) (LockPositionResponse, error) {
	var owner asset.Account
	if !pos.Burned {
		var err error
		owner, err = s.ledger.LockOwnerOf(pos.ID)
		if err != nil {
			return LockPositionResponse{}, err
		}
	}
	ret := LockPositionResponse{
		Owner:             string(owner),
		TotalLocked:       formatValue(pos.TotalLocked),
		ID:                pos.ID,
		StartCycle:        pos.StartCycle,
		EndCycle:          pos.EndCycle,
		YieldSharePercent: pos.YieldSharePercent,
		Managed:           pos.Managed,
		Burned:            pos.Burned,
	}
	if !pos.HoldUntil.IsZero() {
		holdUntil := pos.HoldUntil.UTC()
		ret.HoldUntil = &holdUntil
	}
	return ret, nil
}

// handleLockList handles GET /api/v1/locks with optional owner filter
func (s *Server) handleLockList(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	owner := r.URL.Query().Get("owner")
	all := make([]LockPositionResponse, 0)
	for _, pos := range s.ledger.LockPositions() {
		resp, err := s.lockResponse(pos)
		if err != nil {
			s.writeLedgerError(w, r, err)
			return
		}
		if owner != "" && resp.Owner != owner {
			continue
		}
		all = append(all, resp)
	}
	SetPaginationHeaders(w, len(all), params)
	writeJSON(w, http.StatusOK, paginate(all, params))
}

func (s *Server) handleLockCreate(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req CreateLockRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	pos, err := s.ledger.CreateLock(caller, locking.CreateRequest{
		Amount:            amt,
		Recipient:         asset.Account(req.Recipient),
		Duration:          req.Duration,
		YieldSharePercent: req.YieldSharePercent,
		Managed:           req.Managed,
	})
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	resp, err := s.lockResponse(pos)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLockGet(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	pos, err := s.ledger.LockPosition(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	resp, err := s.lockResponse(pos)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLockBalances handles GET /api/v1/locks/{id}/balances?cycle=N. The
// cycle defaults to the current one.
func (s *Server) handleLockBalances(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cycleNum, err := queryUint(r, "cycle", s.ledger.Cycle().Current)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	balances, err := s.ledger.LockBalancesAt([]uint64{id}, cycleNum)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	b := balances[0]
	writeJSON(w, http.StatusOK, LockBalancesResponse{
		Governance:     formatValue(b.Governance),
		Metagovernance: formatValue(b.Metagovernance),
		YieldShare:     formatValue(b.YieldShare),
		ID:             id,
		Cycle:          b.Cycle,
	})
}

func (s *Server) handleLockVotingPower(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cycleNum, err := queryUint(r, "cycle", s.ledger.Cycle().Current)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	power, err := s.ledger.VotingPowerAt(caller, id, cycleNum)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	ret := VotingPowerResponse{ID: id, Cycle: power.Cycle}
	if power.Governance != nil {
		ret.Governance = power.Governance.Dec()
	}
	if power.Metagovernance != nil {
		ret.Metagovernance = power.Metagovernance.Dec()
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleLockTotals(
	w http.ResponseWriter,
	r *http.Request,
) {
	cycleNum, err := queryUint(r, "cycle", s.ledger.Cycle().Current)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	totals, err := s.ledger.LockTotalsAt(cycleNum)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LockTotalsResponse{
		Governance:     formatValue(totals.Governance),
		Metagovernance: formatValue(totals.Metagovernance),
		YieldShare:     formatValue(totals.YieldShare),
		Locked:         formatValue(totals.Locked),
		Cycle:          totals.Cycle,
	})
}

// handleLockIncrease picks the increase operation from which fields are set
func (s *Server) handleLockIncrease(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req IncreaseLockRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	onBehalfOf := asset.Account(req.OnBehalfOf)
	amt, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	switch {
	case req.Amount != "" && req.ExtraCycles > 0:
		err = s.ledger.IncreaseLockTimeAndAmount(caller, id, req.ExtraCycles, amt, onBehalfOf)
	case req.Amount != "":
		err = s.ledger.IncreaseLockAmount(caller, id, amt, onBehalfOf)
	case req.ExtraCycles > 0:
		err = s.ledger.IncreaseLockTime(caller, id, req.ExtraCycles, onBehalfOf)
	default:
		writeBadRequest(w, errors.New("amount or extra_cycles is required"))
		return
	}
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.handleLockGet(w, r)
}

func (s *Server) handleLockHold(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req HoldRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.ledger.SetHold(caller, id, req.Until); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.handleLockGet(w, r)
}

func (s *Server) handleLockTransfer(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var req TransferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.ledger.TransferLock(caller, id, asset.Account(req.To)); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.handleLockGet(w, r)
}

func (s *Server) handleLockBurn(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	released, err := s.ledger.BurnLock(caller, id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BurnResponse{Released: formatValue(released)})
}
