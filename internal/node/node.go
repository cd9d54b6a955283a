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

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/blinklabs-io/lockledger"
	"github.com/blinklabs-io/lockledger/api"
	"github.com/blinklabs-io/lockledger/asset"
	"github.com/blinklabs-io/lockledger/cycle"
	"github.com/blinklabs-io/lockledger/event"
	"github.com/blinklabs-io/lockledger/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

// Node runs the ledger system behind its API, metrics listener and cycle
// ticker
type Node struct {
	cfg            *config.Config
	logger         *slog.Logger
	registerer     prometheus.Registerer
	gatherer       prometheus.Gatherer
	system         *lockledger.System
	api            *api.Server
	ticker         *cycle.Ticker
	tracerProvider *sdktrace.TracerProvider
	metricsServer  *http.Server
	metricsAddr    net.Addr
	mu             sync.Mutex
}

// New builds the ledger system from cfg. A nil registry uses the default
// prometheus registry.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	registry *prometheus.Registry,
) (*Node, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	n := &Node{
		cfg:        cfg,
		logger:     logger,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	if registry != nil {
		n.registerer = registry
		n.gatherer = registry
	}
	opts, err := cfg.LedgerOptions()
	if err != nil {
		return nil, err
	}
	// The database tracing plugin picks up the global tracer provider
	if cfg.Tracing {
		if err := n.setupTracing(context.Background()); err != nil {
			return nil, err
		}
	}
	opts = append(
		opts,
		lockledger.WithLogger(logger),
		lockledger.WithPrometheusRegistry(n.registerer),
	)
	system, err := lockledger.New(lockledger.NewConfig(opts...))
	if err != nil {
		return nil, errors.Join(err, n.shutdownTracing(context.Background()))
	}
	n.system = system
	n.api = api.New(
		api.Config{
			ListenAddress: fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
		},
		system,
		logger,
	)
	advancer := asset.Account(cfg.Advancer)
	ticker, err := cycle.NewTicker(
		cfg.CycleSchedule,
		func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := system.Advance(advancer)
			return err
		},
		logger,
	)
	if err != nil {
		return nil, errors.Join(
			err,
			system.Close(),
			n.shutdownTracing(context.Background()),
		)
	}
	n.ticker = ticker
	system.EventBus().SubscribeFunc(
		event.CycleAdvancedEventType,
		func(evt event.Event) {
			data, ok := evt.Data.(event.CycleAdvancedEvent)
			if !ok {
				return
			}
			logger.Info(
				fmt.Sprintf("advanced to cycle %d", data.Current),
				"component", "node",
				"checkpoint", data.Checkpoint,
			)
		},
	)
	return n, nil
}

// System returns the ledger system run by the node
func (n *Node) System() *lockledger.System {
	return n.system
}

// MetricsAddr returns the bound metrics listen address once running
func (n *Node) MetricsAddr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.metricsAddr
}

// APIAddr returns the bound API listen address once running
func (n *Node) APIAddr() net.Addr {
	return n.api.Addr()
}

// Run serves until ctx is done or a listener fails, then shuts everything
// down and closes the ledger system
func (n *Node) Run(ctx context.Context) error {
	shutdownTimeout := n.cfg.ShutdownTimeoutDuration()
	g, gctx := errgroup.WithContext(ctx)

	// Metrics listener
	mux := http.NewServeMux()
	mux.Handle(
		"/metrics",
		promhttp.HandlerFor(n.gatherer, promhttp.HandlerOpts{}),
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			n.cfg.BindAddr,
			n.cfg.MetricsPort,
		),
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ln, err := net.Listen("tcp", metricsServer.Addr)
	if err != nil {
		return errors.Join(
			fmt.Errorf("failed to start metrics listener: %w", err),
			n.system.Close(),
		)
	}
	n.mu.Lock()
	n.metricsServer = metricsServer
	n.metricsAddr = ln.Addr()
	n.mu.Unlock()
	n.logger.Info(
		"serving prometheus metrics on "+ln.Addr().String(),
		"component", "node",
	)
	g.Go(func() error {
		if err := metricsServer.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return nil
	})

	if err := n.api.Start(gctx); err != nil {
		_ = metricsServer.Close()
		return errors.Join(err, n.system.Close())
	}
	if err := n.ticker.Start(gctx); err != nil {
		_ = metricsServer.Close()
		return errors.Join(err, n.api.Stop(context.Background()), n.system.Close())
	}

	g.Go(func() error {
		<-gctx.Done()
		n.logger.Info(
			"initiating graceful shutdown",
			"component", "node",
		)
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		n.ticker.Stop()
		//nolint:contextcheck
		return errors.Join(
			n.api.Stop(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
		)
	})

	runErr := g.Wait()
	if err := n.system.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close ledger: %w", err))
	}
	//nolint:contextcheck
	tracingCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := n.shutdownTracing(tracingCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown tracing: %w", err))
	}
	if runErr != nil {
		n.logger.Error(
			"shutdown errors occurred",
			"component", "node",
			"error", runErr,
		)
		return runErr
	}
	n.logger.Info("shutdown complete", "component", "node")
	return nil
}

// Run starts a node from cfg and serves until SIGINT or SIGTERM
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	n, err := New(cfg, logger, nil)
	if err != nil {
		return err
	}
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	return n.Run(signalCtx)
}
