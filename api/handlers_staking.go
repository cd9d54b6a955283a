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
	"io"
	"net/http"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/staking"
)

func (s *Server) stakeResponse(info staking.Info) StakePositionResponse {
	return StakePositionResponse{
		Owner:                string(info.Owner),
		TotalStaked:          formatValue(info.TotalStaked),
		Eligible:             formatValue(info.Eligible),
		Pending:              formatValue(info.Pending),
		ID:                   info.ID,
		LastClaimedPrimary:   info.LastClaimedPrimary,
		LastClaimedSecondary: info.LastClaimedSecondary,
	}
}

func (s *Server) stakingClaimResponse(res staking.ClaimResult) StakingClaimResponse {
	return StakingClaimResponse{
		Primary:   formatValue(res.Primary),
		Secondary: s.formatAmounts(res.Secondary),
	}
}

// decodeClaimOptions reads an optional claim body. An empty body means the
// default options.
func decodeClaimOptions(w http.ResponseWriter, r *http.Request) (staking.ClaimOptions, error) {
	var req ClaimStakingRequest
	if r.Body != nil && r.ContentLength != 0 {
		err := decodeBody(w, r, &req)
		if err != nil && !errors.Is(err, io.EOF) {
			return staking.ClaimOptions{}, err
		}
	}
	return staking.ClaimOptions{Convert: req.Convert}, nil
}

func (s *Server) handleStakeList(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	owner := r.URL.Query().Get("owner")
	all := make([]StakePositionResponse, 0)
	for _, id := range s.ledger.StakePositions() {
		info, err := s.ledger.StakePosition(id)
		if err != nil {
			s.writeLedgerError(w, r, err)
			return
		}
		if owner != "" && string(info.Owner) != owner {
			continue
		}
		all = append(all, s.stakeResponse(info))
	}
	SetPaginationHeaders(w, len(all), params)
	writeJSON(w, http.StatusOK, paginate(all, params))
}

func (s *Server) handleStakeDeposit(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req StakeDepositRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	id, err := s.ledger.StakeDeposit(caller, req.ID, amt, asset.Account(req.Recipient))
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	status := http.StatusOK
	if req.ID == staking.MintNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, StakeDepositResponse{ID: id})
}

func (s *Server) handleStakeTotals(
	w http.ResponseWriter,
	r *http.Request,
) {
	cycleNum, err := queryUint(r, "cycle", s.ledger.Cycle().Current)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	totals := s.ledger.StakingTotalsAt(cycleNum)
	writeJSON(w, http.StatusOK, StakingTotalsResponse{
		Staked:          formatValue(totals.Staked),
		EligibleAtCycle: formatValue(totals.EligibleAtCycle),
		Cycle:           totals.Cycle,
		LastProcessed:   totals.LastProcessed,
		DepositPaused:   totals.DepositPaused,
	})
}

func (s *Server) handleStakePause(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req PauseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.ledger.SetStakingDepositPaused(caller, req.Paused); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.handleStakeTotals(w, r)
}

func (s *Server) handleProcessSecondary(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req ProcessSecondaryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amounts, err := parseAmounts(req.Amounts)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.ledger.ProcessSecondary(caller, req.Cycle, amounts); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStakeGet(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	info, err := s.ledger.StakePosition(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stakeResponse(info))
}

// handleStakeEligible handles GET /api/v1/stakes/{id}/eligible?from=A&as_of=B
func (s *Server) handleStakeEligible(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	current := s.ledger.Cycle().Current
	from, err := queryUint(r, "from", current)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	asOf, err := queryUint(r, "as_of", current)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amt, err := s.ledger.StakedEligibleAt(from, id, asOf)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StakedEligibleResponse{
		Amount:    formatValue(amt),
		ID:        id,
		FromCycle: from,
		AsOfCycle: asOf,
	})
}

func (s *Server) handleStakeClaimable(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := s.ledger.ClaimableStaking(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stakingClaimResponse(res))
}

func (s *Server) handleStakeClaimableCycles(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cycles, err := s.ledger.ClaimableStakingCycles(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	ret := make([]CycleRewardsResponse, 0, len(cycles))
	for _, c := range cycles {
		ret = append(ret, CycleRewardsResponse{
			Primary:   formatValue(c.Primary),
			Secondary: s.formatAmounts(c.Secondary),
			Cycle:     c.Cycle,
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleStakeWithdraw(
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
	var req WithdrawRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.ledger.StakeWithdraw(caller, id, amt); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.handleStakeGet(w, r)
}

func (s *Server) handleStakeBurn(
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
	if err := s.ledger.BurnStake(caller, id); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClaimPrimary(
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
	paid, err := s.ledger.ClaimPrimary(caller, id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stakingClaimResponse(staking.ClaimResult{Primary: paid}))
}

func (s *Server) handleClaimSecondary(
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
	opts, err := decodeClaimOptions(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	paid, err := s.ledger.ClaimSecondary(caller, id, opts)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stakingClaimResponse(staking.ClaimResult{Secondary: paid}))
}

func (s *Server) handleClaimAll(
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
	opts, err := decodeClaimOptions(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := s.ledger.ClaimAllStaking(caller, id, opts)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stakingClaimResponse(res))
}
