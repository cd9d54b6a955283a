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

package staking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stakingMetrics struct {
	staked             prometheus.Gauge
	deposits           prometheus.Counter
	withdrawals        prometheus.Counter
	secondaryProcessed prometheus.Counter
	primaryMinted      prometheus.Counter
	primaryClaimed     prometheus.Counter
	claims             *prometheus.CounterVec
}

func (m *stakingMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.staked = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_staking_staked",
		Help: "stake held in custody including pending deposits, in base units",
	})
	m.deposits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_staking_deposits_total",
		Help: "total stake deposits",
	})
	m.withdrawals = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_staking_withdrawals_total",
		Help: "total stake withdrawals",
	})
	m.secondaryProcessed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_staking_secondary_cycles_processed_total",
		Help: "total cycles with processed secondary rewards",
	})
	m.primaryMinted = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_staking_primary_minted_total",
		Help: "primary reward minted into custody, in base units",
	})
	m.primaryClaimed = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_staking_primary_claimed_total",
		Help: "primary reward paid to positions, in base units",
	})
	m.claims = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockledger_staking_claims_total",
			Help: "total reward claims by stream",
		},
		[]string{"stream"},
	)
}
