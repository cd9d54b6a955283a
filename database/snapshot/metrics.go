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

package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type storeMetrics struct {
	saves     prometheus.Counter
	pruned    prometheus.Counter
	lastBytes prometheus.Gauge
	lastCycle prometheus.Gauge
}

func (m *storeMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.saves = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_snapshot_saves_total",
		Help: "total state snapshots written",
	})
	m.pruned = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_snapshot_pruned_total",
		Help: "total snapshots removed by retention",
	})
	m.lastBytes = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_snapshot_last_bytes",
		Help: "encoded size of the most recent snapshot",
	})
	m.lastCycle = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_snapshot_last_cycle",
		Help: "cycle of the most recent snapshot",
	})
}
