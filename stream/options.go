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
	"time"

	"github.com/winefox/winefox-cli/config"
)

type Options struct {
	// BrokerPath is appended to the backend base URL
	BrokerPath string
	// HistoryDestination delivers a single message, a JSON array of raw log lines
	HistoryDestination string
	// LiveDestination delivers one raw log line per message
	LiveDestination string
	// ReplayHistory controls the subscription to HistoryDestination
	ReplayHistory bool
	// HistoryTimeout is how long live lines are held back waiting for the history batch
	HistoryTimeout time.Duration
	// ReconnectDelay is the fixed delay between two session attempts
	ReconnectDelay time.Duration
	// ReconnectGrace is the pause between the disconnection and the connection in Reconnect
	ReconnectGrace time.Duration
	// HeartBeat is the STOMP heartbeat interval in both directions
	HeartBeat time.Duration
}

var DefaultOptions = Options{
	BrokerPath:         config.LogBrokerPath,
	HistoryDestination: "/app/logs/history",
	LiveDestination:    "/topic/logs",
	ReplayHistory:      true,
	HistoryTimeout:     3 * time.Second,
	ReconnectDelay:     5 * time.Second,
	ReconnectGrace:     200 * time.Millisecond,
	HeartBeat:          4 * time.Second,
}
