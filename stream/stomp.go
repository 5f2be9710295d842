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
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

var stompSubprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

const defaultReadLimit = 16 * 1024 * 1024

// StompTransport speaks STOMP over a WebSocket, the way browser STOMP clients do
type StompTransport struct {
	// HeartBeat is used for both directions
	HeartBeat time.Duration
	// ReadLimit is the maximum size of a single WebSocket message, a history batch can be large
	ReadLimit int64
}

func NewStompTransport(heartBeat time.Duration) *StompTransport {
	return &StompTransport{
		HeartBeat: heartBeat,
		ReadLimit: defaultReadLimit,
	}
}

func (t *StompTransport) Dial(ctx context.Context, brokerURL string, headers map[string]string) (Session, error) {
	parsedURL, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL [%s]: %w", brokerURL, err)
	}

	wsConn, _, err := websocket.Dial(ctx, brokerURL, &websocket.DialOptions{
		Subprotocols: stompSubprotocols,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open a websocket to [%s]: %w", brokerURL, err)
	}
	readLimit := t.ReadLimit
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	wsConn.SetReadLimit(readLimit)

	// The net.Conn lives as long as the given context
	netConn := websocket.NetConn(ctx, wsConn, websocket.MessageText)

	options := []func(*stomp.Conn) error{
		stomp.ConnOpt.HeartBeat(t.HeartBeat, t.HeartBeat),
		stomp.ConnOpt.Host(parsedURL.Hostname()),
		stomp.ConnOpt.Logger(stompLogger{log.WithField("broker", brokerURL)}),
	}
	for key, value := range headers {
		options = append(options, stomp.ConnOpt.Header(key, value))
	}

	conn, err := stomp.Connect(netConn, options...)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("STOMP handshake with [%s] failed: %w", brokerURL, err)
	}

	return &stompSession{
		conn:    conn,
		netConn: netConn,
		done:    make(chan struct{}),
	}, nil
}

// stompLogger routes the STOMP library messages to logrus
type stompLogger struct {
	entry *logrus.Entry
}

func (l stompLogger) Debugf(format string, value ...interface{}) {
	l.entry.Debugf(format, value...)
}

func (l stompLogger) Infof(format string, value ...interface{}) {
	l.entry.Infof(format, value...)
}

func (l stompLogger) Warningf(format string, value ...interface{}) {
	l.entry.Warnf(format, value...)
}

func (l stompLogger) Errorf(format string, value ...interface{}) {
	l.entry.Errorf(format, value...)
}

func (l stompLogger) Debug(message string) {
	l.entry.Debug(message)
}

func (l stompLogger) Info(message string) {
	l.entry.Info(message)
}

func (l stompLogger) Warning(message string) {
	l.entry.Warn(message)
}

func (l stompLogger) Error(message string) {
	l.entry.Error(message)
}

var _ stomp.Logger = stompLogger{}

// disconnectTimeout bounds the polite DISCONNECT exchange before the socket is closed
const disconnectTimeout = 500 * time.Millisecond

type stompSession struct {
	conn      *stomp.Conn
	netConn   net.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (s *stompSession) Subscribe(destination string) (Subscription, error) {
	sub, err := s.conn.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("unable to subscribe to [%s]: %w", destination, err)
	}

	subscription := &stompSubscription{
		destination: destination,
		messages:    make(chan Message),
	}
	go func() {
		defer close(subscription.messages)
		for msg := range sub.C {
			if msg == nil {
				return
			}
			select {
			case subscription.messages <- Message{Body: msg.Body, Err: msg.Err}:
			case <-s.done:
				return
			}
			if msg.Err != nil {
				return
			}
		}
	}()

	return subscription, nil
}

func (s *stompSession) Disconnect() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)

		disconnected := make(chan error, 1)
		go func() {
			disconnected <- s.conn.Disconnect()
		}()
		select {
		case err = <-disconnected:
		case <-time.After(disconnectTimeout):
			err = fmt.Errorf("no DISCONNECT receipt after %v", disconnectTimeout)
		}

		// Already closed by a successful DISCONNECT
		_ = s.netConn.Close()
	})
	return err
}

type stompSubscription struct {
	destination string
	messages    chan Message
}

func (s *stompSubscription) Destination() string {
	return s.destination
}

func (s *stompSubscription) C() <-chan Message {
	return s.messages
}
