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

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/winefox/winefox-cli/logs"
	"github.com/winefox/winefox-cli/stream"
)

type Options struct {
	Port    uint
	MaxLogs int
	Stream  stream.Options
}

var DefaultOptions = Options{
	Port:    8081,
	MaxLogs: logs.DefaultMaxLogs,
	Stream:  stream.DefaultOptions,
}

// Run streams the backend logs into a store and serves it until the context is done
func Run(ctx context.Context, settings stream.Settings, transport stream.Transport, options Options) error {
	store := logs.NewStore(options.MaxLogs)
	manager := stream.NewManager(store, transport, settings, options.Stream)
	httpServer := New(options.Port, store, manager)

	manager.Connect()
	if manager.State() == stream.StateIdle {
		log.Warn("Serving without a log stream, configure a token then reconnect")
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.WithField("port", options.Port).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("unexpected error while serving http routes: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("Gracefully stopping")

		log.Debug("Disconnecting the log stream")
		manager.Disconnect()

		log.Debug("Stopping the http server")
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(stopCtx); err != nil {
			log.WithField("error", err).Warning("Error while stopping")
		}
		return ctx.Err()
	})

	return group.Wait()
}
