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
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/winefox/winefox-cli/config"
	"github.com/winefox/winefox-cli/logs"
	"github.com/winefox/winefox-cli/utils"
)

var log = logrus.WithField("component", "stream")

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("unknown(%d)", int(state))
	}
}

// Settings provides the credential and the backend location, read on each Connect
type Settings interface {
	Token() string
	APIConfig() config.APIConfig
}

// Reloader is implemented by settings backed by a source that can change
// while the manager runs, such as a configuration file.
type Reloader interface {
	Load() error
}

var errSubscriptionClosed = errors.New("subscription closed")

// Manager maintains the log stream session and feeds the received lines to a store.
//
// Connection problems are never returned to the caller, they are logged and
// reflected by Connected and State.
type Manager struct {
	options   Options
	store     *logs.Store
	transport Transport
	settings  Settings
	parser    *logs.Parser

	lock            sync.Mutex
	state           State
	cancel          context.CancelFunc
	done            chan struct{}
	reconnectTimer  *time.Timer
	connected       atomic.Bool
	stateObservable *utils.Observable
}

func NewManager(store *logs.Store, transport Transport, settings Settings, options Options) *Manager {
	return &Manager{
		options:         options,
		store:           store,
		transport:       transport,
		settings:        settings,
		parser:          &logs.Parser{},
		state:           StateIdle,
		stateObservable: utils.NewObservable(),
	}
}

func (m *Manager) Store() *logs.Store {
	return m.store
}

func (m *Manager) Connected() bool {
	return m.connected.Load()
}

func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

func (m *Manager) setStateLocked(state State) {
	if m.state == state {
		return
	}
	m.state = state
	connected := state == StateConnected
	m.connected.Store(connected)
	if connected {
		connectedGauge.Set(1)
	} else {
		connectedGauge.Set(0)
	}
	m.stateObservable.Emit()
}

// sessionTransition applies a state change coming from the session goroutine,
// unless that session is being torn down.
func (m *Manager) sessionTransition(ctx context.Context, state State) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if ctx.Err() != nil {
		return
	}
	m.setStateLocked(state)
}

// WaitForState blocks until the manager state satisfies the test or the context is done
func (m *Manager) WaitForState(ctx context.Context, test func(state State) bool) error {
	observer := m.stateObservable.Subscribe()
	defer m.stateObservable.Unsubscribe(observer)
	for {
		if test(m.State()) {
			return nil
		}
		select {
		case <-observer.Receive():
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Connect starts the session in the background, it is a no-op when already
// started or when no token is available.
func (m *Manager) Connect() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.state != StateIdle {
		return
	}

	token := m.settings.Token()
	if token == "" {
		log.Warn("No token available, not connecting to the log stream")
		return
	}

	brokerURL, err := m.settings.APIConfig().BrokerURL(m.options.BrokerPath)
	if err != nil {
		log.WithField("error", err).Error("Unable to resolve the log stream endpoint")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.setStateLocked(StateConnecting)

	go m.run(ctx, brokerURL, token, m.done)
}

// Disconnect stops the session immediately, it is idempotent
func (m *Manager) Disconnect() {
	m.lock.Lock()
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.cancel == nil {
		m.lock.Unlock()
		return
	}
	done := m.done
	m.cancel()
	m.cancel, m.done = nil, nil
	m.setStateLocked(StateDisconnecting)
	m.lock.Unlock()

	<-done

	m.lock.Lock()
	m.setStateLocked(StateIdle)
	m.lock.Unlock()
	log.Debug("Log stream disconnected")
}

// Reconnect disconnects then connects again after a short grace period, picking
// up the current token and backend location. Settings implementing Reloader
// are reloaded first, a failed reload keeps the previous values.
func (m *Manager) Reconnect() {
	m.Disconnect()

	if reloader, ok := m.settings.(Reloader); ok {
		if err := reloader.Load(); err != nil {
			log.WithField("error", err).Warn("Unable to reload the settings, reconnecting with the previous ones")
		}
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.reconnectTimer = time.AfterFunc(m.options.ReconnectGrace, m.Connect)
}

func (m *Manager) run(ctx context.Context, brokerURL string, token string, done chan<- struct{}) {
	defer close(done)

	retry := &backoff.Backoff{
		Min:    m.options.ReconnectDelay,
		Max:    m.options.ReconnectDelay,
		Factor: 1,
		Jitter: false,
	}

	for {
		sessionLog := log.WithFields(logrus.Fields{
			"session": uuid.NewString(),
			"url":     brokerURL,
		})

		established, err := m.runSession(ctx, sessionLog, brokerURL, token)
		if ctx.Err() != nil {
			return
		}
		m.sessionTransition(ctx, StateConnecting)
		if established {
			retry.Reset()
		}

		delay := retry.Duration()
		sessionLog.WithFields(logrus.Fields{
			"error":    err,
			"attempt":  int(retry.Attempt()),
			"retry_in": delay,
		}).Warn("Log stream unavailable")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runSession returns when the session ends, the returned boolean tells if the
// session was established at all.
func (m *Manager) runSession(
	ctx context.Context,
	sessionLog *logrus.Entry,
	brokerURL string,
	token string,
) (bool, error) {
	session, err := m.transport.Dial(ctx, brokerURL, map[string]string{"Authorization": token})
	if err != nil {
		sessionsTotal.WithLabelValues("failed").Inc()
		return false, err
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			sessionLog.WithField("error", err).Debug("Unclean session disconnection")
		}
	}()
	sessionsTotal.WithLabelValues("established").Inc()

	m.sessionTransition(ctx, StateConnected)
	sessionLog.Info("Log stream connected")

	var history Subscription
	if m.options.ReplayHistory {
		history, err = session.Subscribe(m.options.HistoryDestination)
		if err != nil {
			return true, err
		}
	}
	live, err := session.Subscribe(m.options.LiveDestination)
	if err != nil {
		return true, err
	}

	return true, m.consume(ctx, sessionLog, history, live)
}

// consume is the only writer to the store for the session.
//
// Live lines received before the history batch are held back and appended right
// after it, so that the store stays in chronological order.
func (m *Manager) consume(
	ctx context.Context,
	sessionLog *logrus.Entry,
	history Subscription,
	live Subscription,
) error {
	var historyMessages <-chan Message
	var historyTimeout <-chan time.Time
	historyApplied := true
	if history != nil {
		historyApplied = false
		historyMessages = history.C()
		timer := time.NewTimer(m.options.HistoryTimeout)
		defer timer.Stop()
		historyTimeout = timer.C
	}

	pending := []string{}
	releasePending := func() {
		historyApplied = true
		historyTimeout = nil
		if len(pending) > 0 {
			m.ingest(sourceLive, pending)
			pending = []string{}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-historyMessages:
			if !ok {
				return fmt.Errorf("%s: %w", history.Destination(), errSubscriptionClosed)
			}
			if msg.Err != nil {
				return msg.Err
			}
			m.replayHistory(sessionLog, msg.Body)
			if !historyApplied {
				releasePending()
			}
		case msg, ok := <-live.C():
			if !ok {
				return fmt.Errorf("%s: %w", live.Destination(), errSubscriptionClosed)
			}
			if msg.Err != nil {
				return msg.Err
			}
			if len(msg.Body) == 0 {
				sessionLog.Debug("Skipping an empty live message")
				continue
			}
			if historyApplied {
				m.ingest(sourceLive, []string{string(msg.Body)})
			} else {
				pending = append(pending, string(msg.Body))
			}
		case <-historyTimeout:
			sessionLog.WithField("pending", len(pending)).Debug("No history received in time, releasing live lines")
			releasePending()
		}
	}
}

// replayHistory appends a history batch, a batch whose envelope isn't a JSON
// array is dropped as a whole.
func (m *Manager) replayHistory(sessionLog *logrus.Entry, body []byte) {
	lines, err := parseHistoryEnvelope(body)
	if err != nil {
		droppedHistoryBatchesTotal.Inc()
		sessionLog.WithField("error", err).Error("Unable to parse the log history batch, dropping it")
		return
	}
	sessionLog.WithField("lines", len(lines)).Debug("Replaying log history")
	m.ingest(sourceHistory, lines)
}

func parseHistoryEnvelope(body []byte) ([]string, error) {
	var parser fastjson.Parser
	value, err := parser.ParseBytes(body)
	if err != nil {
		return nil, err
	}
	items, err := value.Array()
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type() == fastjson.TypeString {
			lines = append(lines, string(item.GetStringBytes()))
		} else {
			lines = append(lines, item.String())
		}
	}
	return lines, nil
}

func (m *Manager) ingest(source string, lines []string) {
	records := make([]logs.Record, 0, len(lines))
	for _, line := range lines {
		record, err := m.parser.Decode(line)
		if err != nil {
			linesTotal.WithLabelValues(source, pathRecovered).Inc()
			log.WithField("error", err).Trace("Recovering a malformed log line")
			record = m.parser.Salvage(line)
		} else {
			linesTotal.WithLabelValues(source, pathStructured).Inc()
		}
		records = append(records, record)
	}
	m.store.AppendMany(records)
}
