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
	"github.com/blinklabs-io/lockledger/distributor"
)

func (s *Server) claimResponses(results []distributor.ClaimResult) []CheckpointClaimResponse {
	ret := make([]CheckpointClaimResponse, 0, len(results))
	for _, res := range results {
		ret = append(ret, CheckpointClaimResponse{
			Share:      formatValue(res.Share),
			Recipient:  string(res.Recipient),
			Payouts:    s.formatAmounts(res.Payouts),
			PositionID: res.PositionID,
			Tde:        res.Tde,
		})
	}
	return ret
}

func (s *Server) handleCheckpointDeposit(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req DepositCheckpointRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amounts, err := parseAmounts(req.Amounts)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	tde, err := s.ledger.DepositCheckpoint(caller, amounts)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DepositCheckpointResponse{Tde: tde})
}

func (s *Server) handleCheckpointGet(
	w http.ResponseWriter,
	r *http.Request,
) {
	tde, err := pathUint(r, "tde")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckpointResponse{
		Amounts: s.formatAmounts(s.ledger.TokensDepositedAtTde(tde)),
		Tde:     tde,
	})
}

// handleCheckpointRewards handles GET /api/v1/locks/{id}/rewards?tde=N
func (s *Server) handleCheckpointRewards(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	tdes, err := queryUints(r, "tde")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if len(tdes) == 0 {
		writeBadRequest(w, errors.New("at least one tde is required"))
		return
	}
	results, err := s.ledger.CheckpointRewards(id, tdes)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.claimResponses(results))
}

func (s *Server) handleCheckpointClaimed(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	tde, err := pathUint(r, "tde")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimedResponse{
		ID:      id,
		Tde:     tde,
		Claimed: s.ledger.IsCheckpointClaimed(id, tde),
	})
}

func (s *Server) handleCheckpointClaim(
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
	var req ClaimCheckpointRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if len(req.Tdes) == 0 {
		writeBadRequest(w, errors.New("at least one tde is required"))
		return
	}
	results, err := s.ledger.ClaimCheckpoints(caller, id, req.Tdes, asset.Account(req.Recipient))
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.claimResponses(results))
}
