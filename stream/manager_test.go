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
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winefox/winefox-cli/config"
	"github.com/winefox/winefox-cli/logs"
)

const (
	testToken       = "Bearer secret"
	waitFor         = 2 * time.Second
	pollingInterval = 5 * time.Millisecond
)

type fakeSubscription struct {
	destination string
	channel     chan Message
}

func (s *fakeSubscription) Destination() string {
	return s.destination
}

func (s *fakeSubscription) C() <-chan Message {
	return s.channel
}

type fakeSession struct {
	lock          sync.Mutex
	subscriptions map[string]*fakeSubscription
	subscribed    []string
	disconnected  chan struct{}
	closeOnce     sync.Once
}

func newFakeSession(destinations ...string) *fakeSession {
	session := &fakeSession{
		subscriptions: map[string]*fakeSubscription{},
		disconnected:  make(chan struct{}),
	}
	for _, destination := range destinations {
		session.subscriptions[destination] = &fakeSubscription{
			destination: destination,
			channel:     make(chan Message, 16),
		}
	}
	return session
}

func (s *fakeSession) Subscribe(destination string) (Subscription, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	subscription, ok := s.subscriptions[destination]
	if !ok {
		return nil, errors.New("unknown destination")
	}
	s.subscribed = append(s.subscribed, destination)
	return subscription, nil
}

func (s *fakeSession) Subscribed() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string{}, s.subscribed...)
}

func (s *fakeSession) Disconnect() error {
	s.closeOnce.Do(func() { close(s.disconnected) })
	return nil
}

func (s *fakeSession) send(destination string, body string) {
	s.subscriptions[destination].channel <- Message{Body: []byte(body)}
}

// drop simulates the broker going away
func (s *fakeSession) drop() {
	for _, subscription := range s.subscriptions {
		close(subscription.channel)
	}
}

func (s *fakeSession) isDisconnected() bool {
	select {
	case <-s.disconnected:
		return true
	default:
		return false
	}
}

type dial struct {
	brokerURL string
	headers   map[string]string
}

type fakeTransport struct {
	options    Options
	sessions   chan *fakeSession
	dialErrors chan error

	lock  sync.Mutex
	dials []dial
}

func newFakeTransport(options Options) *fakeTransport {
	return &fakeTransport{
		options:    options,
		sessions:   make(chan *fakeSession, 16),
		dialErrors: make(chan error, 16),
	}
}

func (t *fakeTransport) Dial(_ context.Context, brokerURL string, headers map[string]string) (Session, error) {
	t.lock.Lock()
	t.dials = append(t.dials, dial{brokerURL: brokerURL, headers: headers})
	t.lock.Unlock()

	select {
	case err := <-t.dialErrors:
		return nil, err
	default:
	}

	session := newFakeSession(t.options.HistoryDestination, t.options.LiveDestination)
	t.sessions <- session
	return session, nil
}

func (t *fakeTransport) Dials() []dial {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]dial{}, t.dials...)
}

func (t *fakeTransport) nextSession(tt *testing.T) *fakeSession {
	select {
	case session := <-t.sessions:
		return session
	case <-time.After(waitFor):
		require.FailNow(tt, "no session was dialed")
		return nil
	}
}

type fakeSettings struct {
	token     string
	apiConfig config.APIConfig
}

func (s *fakeSettings) Token() string {
	return s.token
}

func (s *fakeSettings) APIConfig() config.APIConfig {
	return s.apiConfig
}

func testOptions() Options {
	options := DefaultOptions
	options.HistoryTimeout = time.Second
	options.ReconnectDelay = 20 * time.Millisecond
	options.ReconnectGrace = 10 * time.Millisecond
	return options
}

func newTestManager(t *testing.T, options Options) (*Manager, *fakeTransport, *logs.Store) {
	store := logs.NewStore(100)
	transport := newFakeTransport(options)
	settings := &fakeSettings{
		token:     testToken,
		apiConfig: config.APIConfig{Host: "http://backend", Port: "9000"},
	}
	manager := NewManager(store, transport, settings, options)
	t.Cleanup(manager.Disconnect)
	return manager, transport, store
}

func waitConnected(t *testing.T, manager *Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	err := manager.WaitForState(ctx, func(state State) bool { return state == StateConnected })
	require.NoError(t, err)
	assert.True(t, manager.Connected())
}

func messages(store *logs.Store) []string {
	result := []string{}
	for _, record := range store.Logs() {
		result = append(result, record.Message)
	}
	return result
}

func TestConnectWithoutToken(t *testing.T) {
	store := logs.NewStore(10)
	transport := newFakeTransport(DefaultOptions)
	manager := NewManager(store, transport, &fakeSettings{}, DefaultOptions)

	manager.Connect()

	assert.Equal(t, StateIdle, manager.State())
	assert.False(t, manager.Connected())
	assert.Empty(t, transport.Dials())
}

func TestConnectAuthenticates(t *testing.T) {
	manager, transport, _ := newTestManager(t, testOptions())

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	dials := transport.Dials()
	require.Len(t, dials, 1)
	assert.Equal(t, "ws://backend:9000/ws-log", dials[0].brokerURL)
	assert.Equal(t, testToken, dials[0].headers["Authorization"])

	assert.Eventually(t, func() bool {
		return len(session.Subscribed()) == 2
	}, waitFor, pollingInterval)
	assert.Equal(t, []string{"/app/logs/history", "/topic/logs"}, session.Subscribed())
}

func TestConnectWithoutHistory(t *testing.T) {
	options := testOptions()
	options.ReplayHistory = false
	manager, transport, store := newTestManager(t, options)

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	session.send(options.LiveDestination, `{"level":"INFO","message":"live"}`)
	assert.Eventually(t, func() bool { return store.Len() == 1 }, waitFor, pollingInterval)
	assert.Equal(t, []string{"/topic/logs"}, session.Subscribed())
}

func TestConnectTwiceDialsOnce(t *testing.T) {
	manager, transport, _ := newTestManager(t, testOptions())

	manager.Connect()
	manager.Connect()
	transport.nextSession(t)
	waitConnected(t, manager)
	manager.Connect()

	assert.Len(t, transport.Dials(), 1)
}

func TestHistoryThenLive(t *testing.T) {
	options := testOptions()
	manager, transport, store := newTestManager(t, options)

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	session.send(options.HistoryDestination, `[
		"{\"@timestamp\":\"2024-01-01T10:00:00Z\",\"level\":\"INFO\",\"message\":\"first\"}",
		"{\"timestamp\":\"2024-01-01 10:00:01\",\"level\":\"WARN\",\"message\":\"second\"} tail"
	]`)
	assert.Eventually(t, func() bool { return store.Len() == 2 }, waitFor, pollingInterval)

	session.send(options.LiveDestination, `{"level":"ERROR","message":"third"}`)
	assert.Eventually(t, func() bool { return store.Len() == 3 }, waitFor, pollingInterval)

	records := store.Logs()
	assert.Equal(t, []string{"first", "second", "third"}, messages(store))
	assert.Equal(t, "2024-01-01T10:00:01", records[1].Timestamp)
	assert.Equal(t, logs.RecoveredThread, records[1].Thread)
	assert.Equal(t, logs.LevelError, records[2].Level)
}

func TestLiveIsHeldUntilHistory(t *testing.T) {
	options := testOptions()
	manager, transport, store := newTestManager(t, options)

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	session.send(options.LiveDestination, `{"message":"live"}`)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, store.Len())

	session.send(options.HistoryDestination, `["{\"message\":\"old\"}"]`)
	assert.Eventually(t, func() bool { return store.Len() == 2 }, waitFor, pollingInterval)
	assert.Equal(t, []string{"old", "live"}, messages(store))
}

func TestHistoryTimeoutReleasesLive(t *testing.T) {
	options := testOptions()
	options.HistoryTimeout = 30 * time.Millisecond
	manager, transport, store := newTestManager(t, options)

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	session.send(options.LiveDestination, `{"message":"live"}`)
	assert.Eventually(t, func() bool { return store.Len() == 1 }, waitFor, pollingInterval)

	// A late history batch is still applied
	session.send(options.HistoryDestination, `["{\"message\":\"late\"}"]`)
	assert.Eventually(t, func() bool { return store.Len() == 2 }, waitFor, pollingInterval)
	assert.Equal(t, []string{"live", "late"}, messages(store))
}

func TestInvalidHistoryIsDropped(t *testing.T) {
	options := testOptions()
	manager, transport, store := newTestManager(t, options)

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	session.send(options.HistoryDestination, `{"not":"an array"`)
	session.send(options.LiveDestination, `{"message":"live"}`)

	assert.Eventually(t, func() bool { return store.Len() == 1 }, waitFor, pollingInterval)
	assert.Equal(t, []string{"live"}, messages(store))
	assert.True(t, manager.Connected())
	assert.Len(t, transport.Dials(), 1)
}

func TestEmptyLiveMessagesAreSkipped(t *testing.T) {
	options := testOptions()
	options.ReplayHistory = false
	manager, transport, store := newTestManager(t, options)

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	session.send(options.LiveDestination, "")
	session.send(options.LiveDestination, "not json at all")

	assert.Eventually(t, func() bool { return store.Len() == 1 }, waitFor, pollingInterval)
	record := store.Logs()[0]
	assert.Equal(t, logs.RecoveredThread, record.Thread)
	assert.Equal(t, "log line partially unparseable: not json at all...", record.Message)
}

func TestRedialAfterSessionDrop(t *testing.T) {
	manager, transport, _ := newTestManager(t, testOptions())

	manager.Connect()
	first := transport.nextSession(t)
	waitConnected(t, manager)

	first.drop()
	second := transport.nextSession(t)
	waitConnected(t, manager)

	assert.True(t, first.isDisconnected())
	assert.False(t, second.isDisconnected())
	assert.Len(t, transport.Dials(), 2)
}

func TestDialFailureIsRetried(t *testing.T) {
	manager, transport, _ := newTestManager(t, testOptions())
	transport.dialErrors <- errors.New("connection refused")

	manager.Connect()
	transport.nextSession(t)
	waitConnected(t, manager)

	assert.Len(t, transport.Dials(), 2)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	manager, transport, _ := newTestManager(t, testOptions())

	manager.Disconnect()
	assert.Equal(t, StateIdle, manager.State())

	manager.Connect()
	session := transport.nextSession(t)
	waitConnected(t, manager)

	manager.Disconnect()
	manager.Disconnect()

	assert.Equal(t, StateIdle, manager.State())
	assert.False(t, manager.Connected())
	assert.True(t, session.isDisconnected())
}

func TestDisconnectStopsRetries(t *testing.T) {
	manager, transport, _ := newTestManager(t, testOptions())
	for i := 0; i < 10; i++ {
		transport.dialErrors <- errors.New("connection refused")
	}

	manager.Connect()
	assert.Eventually(t, func() bool { return len(transport.Dials()) >= 2 }, waitFor, pollingInterval)
	manager.Disconnect()

	dials := len(transport.Dials())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, dials, len(transport.Dials()))
	assert.Equal(t, StateIdle, manager.State())
}

func TestReconnect(t *testing.T) {
	manager, transport, store := newTestManager(t, testOptions())

	manager.Connect()
	first := transport.nextSession(t)
	waitConnected(t, manager)
	first.send(DefaultOptions.HistoryDestination, `["{\"message\":\"kept\"}"]`)
	assert.Eventually(t, func() bool { return store.Len() == 1 }, waitFor, pollingInterval)

	manager.Reconnect()
	assert.True(t, first.isDisconnected())

	transport.nextSession(t)
	waitConnected(t, manager)
	assert.Len(t, transport.Dials(), 2)
	assert.Equal(t, 1, store.Len())
}

func TestReconnectReloadsSettings(t *testing.T) {
	const filename = "/tmp/.winefox.yaml"
	fs := afero.NewMemMapFs()
	settings := config.NewStore(fs, filename)
	require.NoError(t, settings.Load())
	require.NoError(t, settings.SaveAPIConfig(config.APIConfig{Host: "http://backend", Port: "9000"}))
	require.NoError(t, settings.SetToken("Bearer first"))

	options := testOptions()
	transport := newFakeTransport(options)
	manager := NewManager(logs.NewStore(10), transport, settings, options)
	t.Cleanup(manager.Disconnect)

	manager.Connect()
	transport.nextSession(t)
	waitConnected(t, manager)

	// Another process edits the configuration file
	other := config.NewStore(fs, filename)
	require.NoError(t, other.Load())
	require.NoError(t, other.SaveAPIConfig(config.APIConfig{Host: "http://backend", Port: "9001"}))
	require.NoError(t, other.SetToken("Bearer second"))

	manager.Reconnect()
	transport.nextSession(t)
	waitConnected(t, manager)

	dials := transport.Dials()
	require.Len(t, dials, 2)
	assert.Equal(t, "ws://backend:9000/ws-log", dials[0].brokerURL)
	assert.Equal(t, "Bearer first", dials[0].headers["Authorization"])
	assert.Equal(t, "ws://backend:9001/ws-log", dials[1].brokerURL)
	assert.Equal(t, "Bearer second", dials[1].headers["Authorization"])

	// An unreadable file keeps the previous values
	require.NoError(t, afero.WriteFile(fs, filename, []byte("host: [unterminated"), 0o600))
	manager.Reconnect()
	transport.nextSession(t)
	waitConnected(t, manager)

	dials = transport.Dials()
	require.Len(t, dials, 3)
	assert.Equal(t, "ws://backend:9001/ws-log", dials[2].brokerURL)
	assert.Equal(t, "Bearer second", dials[2].headers["Authorization"])
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	manager, transport, _ := newTestManager(t, testOptions())

	manager.Connect()
	transport.nextSession(t)
	waitConnected(t, manager)

	manager.Reconnect()
	manager.Disconnect()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, StateIdle, manager.State())
	assert.Len(t, transport.Dials(), 1)
}

func TestWaitForStateHonorsContext(t *testing.T) {
	manager, _, _ := newTestManager(t, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := manager.WaitForState(ctx, func(state State) bool { return state == StateConnected })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseHistoryEnvelope(t *testing.T) {
	lines, err := parseHistoryEnvelope([]byte(`["a", {"message":"b"}, 3]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", `{"message":"b"}`, "3"}, lines)

	_, err = parseHistoryEnvelope([]byte(`{"lines":[]}`))
	assert.Error(t, err)

	_, err = parseHistoryEnvelope([]byte(`[`))
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnecting", StateDisconnecting.String())
	assert.Equal(t, "unknown(7)", State(7).String())
}
