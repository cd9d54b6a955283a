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

package cycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTickTimeout bounds a single scheduled advancement
const DefaultTickTimeout = 25 * time.Second

// TickFunc performs one scheduled advancement
type TickFunc func(ctx context.Context) error

// Ticker drives cycle advancement from a cron schedule. The schedule accepts
// an optional leading seconds field.
type Ticker struct {
	logger   *slog.Logger
	cron     *cron.Cron
	tick     TickFunc
	schedule string
	timeout  time.Duration
	entryID  cron.EntryID
	mutex    sync.Mutex
	running  bool
}

func NewTicker(schedule string, tick TickFunc, logger *slog.Logger) (*Ticker, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if tick == nil {
		return nil, fmt.Errorf("ticker requires a tick function")
	}
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid cycle schedule %q: %w", schedule, err)
	}
	cLogger := &cronLogger{logger: logger}
	t := &Ticker{
		logger: logger,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cLogger)),
			cron.WithLogger(cLogger),
		),
		tick:     tick,
		schedule: schedule,
		timeout:  DefaultTickTimeout,
	}
	return t, nil
}

// Start schedules the tick function. Each run gets a context derived from
// ctx that is bounded by the tick timeout.
func (t *Ticker) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return nil
	}
	entryID, err := t.cron.AddFunc(t.schedule, func() {
		rctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		if err := t.tick(rctx); err != nil {
			t.logger.Error(
				"scheduled cycle advance failed",
				"component", "cycle",
				"error", err,
			)
		}
	})
	if err != nil {
		return err
	}
	t.entryID = entryID
	t.cron.Start()
	t.running = true
	t.logger.Info(
		"cycle ticker started",
		"component", "cycle",
		"schedule", t.schedule,
	)
	return nil
}

// Stop halts scheduling and waits for a running tick to finish
func (t *Ticker) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.running {
		return
	}
	<-t.cron.Stop().Done()
	t.cron.Remove(t.entryID)
	t.running = false
}

// cronLogger adapts slog to the cron.Logger interface
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, append([]any{"component", "cycle"}, keysAndValues...)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(
		msg,
		append([]any{"component", "cycle", "error", err}, keysAndValues...)...,
	)
}
