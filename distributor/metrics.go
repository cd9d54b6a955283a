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

package distributor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type distributorMetrics struct {
	deposits  prometheus.Counter
	claims    prometheus.Counter
	deposited *prometheus.CounterVec
	paid      *prometheus.CounterVec
}

func (m *distributorMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.deposits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_distributor_deposits_total",
		Help: "total treasury deposit calls",
	})
	m.claims = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "lockledger_distributor_claims_total",
		Help: "total checkpoint epoch claims paid",
	})
	m.deposited = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockledger_distributor_deposited_amount_total",
			Help: "amount deposited by the treasury per asset, in base units",
		},
		[]string{"asset"},
	)
	m.paid = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockledger_distributor_paid_amount_total",
			Help: "amount paid to positions per asset, in base units",
		},
		[]string{"asset"},
	)
}
