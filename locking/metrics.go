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

package locking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type lockMetrics struct {
	principalLocked  prometheus.Gauge
	openPositions    prometheus.Gauge
	yieldShareSupply prometheus.Gauge
	positionsCreated prometheus.Counter
	positionsBurned  prometheus.Counter
	increases        *prometheus.CounterVec
}

func (m *lockMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.principalLocked = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_locking_principal_locked",
		Help: "principal currently held in lock custody, in base units",
	})
	m.openPositions = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_locking_positions_open",
		Help: "number of lock positions that have not been burned",
	})
	m.yieldShareSupply = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_locking_yield_share_supply",
		Help: "total yield share weight at the current cycle",
	})
	m.positionsCreated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_locking_positions_created_total",
		Help: "total lock positions created",
	})
	m.positionsBurned = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_locking_positions_burned_total",
		Help: "total lock positions burned",
	})
	m.increases = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockledger_locking_increases_total",
			Help: "total lock increases by kind",
		},
		[]string{"kind"},
	)
}
