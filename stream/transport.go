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
)

// Message is one message received on a subscription.
//
// A message with a non nil Err reports the failure of the whole session.
type Message struct {
	Body []byte
	Err  error
}

// Subscription delivers the messages sent to one destination, its channel is
// closed when the session ends.
type Subscription interface {
	Destination() string
	C() <-chan Message
}

// Session is an established, authenticated, streaming session with the broker
type Session interface {
	Subscribe(destination string) (Subscription, error)
	// Disconnect tears the session down immediately, in-flight messages are dropped
	Disconnect() error
}

// Transport opens sessions, the headers are sent with the session handshake
type Transport interface {
	Dial(ctx context.Context, brokerURL string, headers map[string]string) (Session, error)
}
