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

package lockledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type systemMetrics struct {
	cycle      prometheus.Gauge
	tde        prometheus.Gauge
	operations *prometheus.CounterVec
}

func (m *systemMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.cycle = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_cycle",
		Help: "current cycle",
	})
	m.tde = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "lockledger_tde",
		Help: "current checkpoint epoch",
	})
	m.operations = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lockledger_operations_total",
			Help: "total operations by name and result class",
		},
		[]string{"operation", "result"},
	)
}
