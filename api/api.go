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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// CallerHeader carries the account an API request acts as. The server
// trusts it, so it must sit behind a gateway that authenticates callers.
const CallerHeader = "X-Lockledger-Account"

const DefaultListenAddress = ":8080"

type Config struct {
	ListenAddress string
	// Decimals scales the display form of amounts in responses
	Decimals int32
}

// Server is the REST API over the ledger system
type Server struct {
	config     Config
	logger     *slog.Logger
	ledger     Ledger
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

func New(
	cfg Config,
	ledger Ledger,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config: cfg,
		logger: logger,
		ledger: ledger,
	}
}

// Handler returns the API router
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/cycle", s.handleCycle).Methods(http.MethodGet)
	v1.HandleFunc("/cycle/advance", s.handleAdvance).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{account}/balances/{asset}", s.handleBalance).Methods(http.MethodGet)

	// Lock positions
	v1.HandleFunc("/locks", s.handleLockList).Methods(http.MethodGet)
	v1.HandleFunc("/locks", s.handleLockCreate).Methods(http.MethodPost)
	v1.HandleFunc("/locks/totals", s.handleLockTotals).Methods(http.MethodGet)
	v1.HandleFunc("/locks/{id:[0-9]+}", s.handleLockGet).Methods(http.MethodGet)
	v1.HandleFunc("/locks/{id:[0-9]+}/balances", s.handleLockBalances).Methods(http.MethodGet)
	v1.HandleFunc("/locks/{id:[0-9]+}/voting-power", s.handleLockVotingPower).Methods(http.MethodGet)
	v1.HandleFunc("/locks/{id:[0-9]+}/increase", s.handleLockIncrease).Methods(http.MethodPost)
	v1.HandleFunc("/locks/{id:[0-9]+}/hold", s.handleLockHold).Methods(http.MethodPost)
	v1.HandleFunc("/locks/{id:[0-9]+}/transfer", s.handleLockTransfer).Methods(http.MethodPost)
	v1.HandleFunc("/locks/{id:[0-9]+}/burn", s.handleLockBurn).Methods(http.MethodPost)

	// Checkpoint distribution
	v1.HandleFunc("/checkpoints", s.handleCheckpointDeposit).Methods(http.MethodPost)
	v1.HandleFunc("/checkpoints/{tde:[0-9]+}", s.handleCheckpointGet).Methods(http.MethodGet)
	v1.HandleFunc("/locks/{id:[0-9]+}/rewards", s.handleCheckpointRewards).Methods(http.MethodGet)
	v1.HandleFunc("/locks/{id:[0-9]+}/rewards/{tde:[0-9]+}", s.handleCheckpointClaimed).Methods(http.MethodGet)
	v1.HandleFunc("/locks/{id:[0-9]+}/claim", s.handleCheckpointClaim).Methods(http.MethodPost)

	// Staking
	v1.HandleFunc("/stakes", s.handleStakeList).Methods(http.MethodGet)
	v1.HandleFunc("/stakes", s.handleStakeDeposit).Methods(http.MethodPost)
	v1.HandleFunc("/stakes/totals", s.handleStakeTotals).Methods(http.MethodGet)
	v1.HandleFunc("/stakes/pause", s.handleStakePause).Methods(http.MethodPost)
	v1.HandleFunc("/stakes/secondary", s.handleProcessSecondary).Methods(http.MethodPost)
	v1.HandleFunc("/stakes/{id:[0-9]+}", s.handleStakeGet).Methods(http.MethodGet)
	v1.HandleFunc("/stakes/{id:[0-9]+}/eligible", s.handleStakeEligible).Methods(http.MethodGet)
	v1.HandleFunc("/stakes/{id:[0-9]+}/claimable", s.handleStakeClaimable).Methods(http.MethodGet)
	v1.HandleFunc("/stakes/{id:[0-9]+}/claimable/cycles", s.handleStakeClaimableCycles).Methods(http.MethodGet)
	v1.HandleFunc("/stakes/{id:[0-9]+}/withdraw", s.handleStakeWithdraw).Methods(http.MethodPost)
	v1.HandleFunc("/stakes/{id:[0-9]+}/burn", s.handleStakeBurn).Methods(http.MethodPost)
	v1.HandleFunc("/stakes/{id:[0-9]+}/claim/primary", s.handleClaimPrimary).Methods(http.MethodPost)
	v1.HandleFunc("/stakes/{id:[0-9]+}/claim/secondary", s.handleClaimSecondary).Methods(http.MethodPost)
	v1.HandleFunc("/stakes/{id:[0-9]+}/claim", s.handleClaimAll).Methods(http.MethodPost)

	v1.HandleFunc("/journal", s.handleJournal).Methods(http.MethodGet)
	return r
}

// Start binds the listener and serves in a background goroutine. The
// server shuts down when ctx is cancelled.
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	addr, err := s.startServer(server)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.listenAddr = addr
	s.mu.Unlock()

	s.logger.Info(
		"API listener started on " + addr.String(),
	)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()
		if srv != nil {
			s.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(
	ctx context.Context,
) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv != nil {
		s.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown API server: %w",
				err,
			)
		}
	}
	return nil
}

// Addr returns the bound listen address once started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// startServer binds the listening socket first so port conflicts are
// reported to the caller, then serves in a background goroutine.
func (s *Server) startServer(
	server *http.Server,
) (net.Addr, error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return ln.Addr(), nil
}
