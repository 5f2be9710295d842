// Copyright 2026 The Winefox Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sourceHistory = "history"
	sourceLive    = "live"

	pathStructured = "structured"
	pathRecovered  = "recovered"
)

var (
	linesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winefox",
		Subsystem: "log_stream",
		Name:      "lines_total",
		Help:      "Log lines ingested, by source and by parser path",
	}, []string{"source", "path"})

	droppedHistoryBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "winefox",
		Subsystem: "log_stream",
		Name:      "dropped_history_batches_total",
		Help:      "History batches dropped because their envelope wasn't a JSON array",
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "winefox",
		Subsystem: "log_stream",
		Name:      "sessions_total",
		Help:      "Session attempts, by outcome",
	}, []string{"outcome"})

	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "winefox",
		Subsystem: "log_stream",
		Name:      "connected",
		Help:      "1 when the log stream session is established",
	})
)
