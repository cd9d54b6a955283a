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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/internal/amount"
	"github.com/blinklabs-io/lockledger/internal/version"
	"github.com/blinklabs-io/lockledger/ledgererr"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

var errMissingCaller = errors.New("missing " + CallerHeader + " header")

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	code string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Code:       code,
		Message:    message,
	})
}

// writeBadRequest reports a request the API layer itself could not parse
func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
}

// statusForClass maps a ledger error class to an HTTP status
func statusForClass(class ledgererr.Class) int {
	switch class {
	case ledgererr.ClassValidation:
		return http.StatusBadRequest
	case ledgererr.ClassAuthorization:
		return http.StatusForbidden
	case ledgererr.ClassTemporal, ledgererr.ClassIdempotence:
		return http.StatusConflict
	case ledgererr.ClassNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeLedgerError reports an error returned by the ledger. Rejections keep
// their message. Anything else is logged and hidden from the client.
func (s *Server) writeLedgerError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	class := ledgererr.ClassOf(err)
	status := statusForClass(class)
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "INTERNAL", "internal error")
		return
	}
	s.logger.Debug(
		"request rejected",
		"method", r.Method,
		"path", r.URL.Path,
		"class", class.String(),
		"error", err,
	)
	writeError(w, status, ledgererr.CodeOf(err), err.Error())
}

func callerOf(r *http.Request) (asset.Account, error) {
	caller := strings.TrimSpace(r.Header.Get(CallerHeader))
	if caller == "" {
		return "", errMissingCaller
	}
	return asset.Account(caller), nil
}

// requireCaller writes a 401 response when the caller header is missing
func requireCaller(w http.ResponseWriter, r *http.Request) (asset.Account, bool) {
	caller, err := callerOf(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "MISSING_CALLER", err.Error())
		return "", false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

// queryUint reads an optional unsigned query parameter
func queryUint(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

// queryUints reads a repeated unsigned query parameter. Comma separated
// values are accepted too.
func queryUints(r *http.Request, name string) ([]uint64, error) {
	var ret []uint64
	for _, raw := range r.URL.Query()[name] {
		for part := range strings.SplitSeq(raw, ",") {
			if part == "" {
				continue
			}
			v, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", name, err)
			}
			ret = append(ret, v)
		}
	}
	return ret, nil
}

// parseAmount parses a base-unit amount. An empty string is zero.
func parseAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return new(uint256.Int), nil
	}
	return amount.Parse(raw)
}

func parseAmounts(in []AmountJSON) ([]asset.Amount, error) {
	ret := make([]asset.Amount, 0, len(in))
	for _, a := range in {
		if a.Asset == "" {
			return nil, errors.New("amount requires an asset")
		}
		v, err := amount.Parse(a.Amount)
		if err != nil {
			return nil, err
		}
		ret = append(ret, asset.Amount{Asset: asset.ID(a.Asset), Value: v})
	}
	return ret, nil
}

func formatValue(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func (s *Server) formatAmount(a asset.Amount) AmountJSON {
	ret := AmountJSON{
		Asset:  string(a.Asset),
		Amount: formatValue(a.Value),
	}
	if s.config.Decimals > 0 {
		ret.Display = amount.Display(a.Value, s.config.Decimals)
	}
	return ret
}

func (s *Server) formatAmounts(amounts []asset.Amount) []AmountJSON {
	ret := make([]AmountJSON, 0, len(amounts))
	for _, a := range amounts {
		ret = append(ret, s.formatAmount(a))
	}
	return ret
}

// handleRoot handles GET / and returns API metadata.
func (s *Server) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "lockledger",
		Version: version.GetVersionString(),
	})
}

func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

func (s *Server) handleCycle(
	w http.ResponseWriter,
	_ *http.Request,
) {
	info := s.ledger.Cycle()
	writeJSON(w, http.StatusOK, CycleResponse{
		Current:            info.Current,
		Tde:                info.Tde,
		Genesis:            info.Genesis,
		CheckpointInterval: info.CheckpointInterval,
		NextCheckpoint:     info.NextCheckpoint,
	})
}

func (s *Server) handleAdvance(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	next, err := s.ledger.Advance(caller)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AdvanceResponse{Cycle: next})
}

func (s *Server) handleBalance(
	w http.ResponseWriter,
	r *http.Request,
) {
	vars := mux.Vars(r)
	account := asset.Account(vars["account"])
	id := asset.ID(vars["asset"])
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account:    string(account),
		AmountJSON: s.formatAmount(asset.NewAmount(id, s.ledger.BalanceOf(id, account))),
	})
}
