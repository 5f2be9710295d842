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

package cmd

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/winefox/winefox-cli/cmd/utils"
	"github.com/winefox/winefox-cli/server"
	"github.com/winefox/winefox-cli/stream"
	"github.com/winefox/winefox-cli/version"
)

// serveViper represents the configuration of the serve command
var serveViper = viper.New()

const (
	servePortKey      = "port"
	servePortEnv      = "WINEFOX_SERVE_PORT"
	serveMaxLogsKey   = "max_logs"
	serveMaxLogsEnv   = "WINEFOX_SERVE_MAX_LOGS"
	serveNoHistoryKey = "no_history"
	serveNoHistoryEnv = "WINEFOX_SERVE_NO_HISTORY"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the streamed backend logs over a local HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"version": version.Version,
			"hash":    version.Hash,
		}).Info("Starting the local log server")

		options := server.DefaultOptions
		options.Port = serveViper.GetUint(servePortKey)
		options.MaxLogs = serveViper.GetInt(serveMaxLogsKey)
		options.Stream.ReplayHistory = !serveViper.GetBool(serveNoHistoryKey)

		ctx := utils.ContextWithUserTermination(context.Background())
		err = server.Run(ctx, settings, stream.NewStompTransport(options.Stream.HeartBeat), options)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	serveViper.SetDefault(servePortKey, server.DefaultOptions.Port)
	_ = serveViper.BindEnv(servePortKey, servePortEnv)
	serveCmd.Flags().Uint(
		servePortKey,
		serveViper.GetUint(servePortKey),
		"The port to listen on",
	)

	serveViper.SetDefault(serveMaxLogsKey, server.DefaultOptions.MaxLogs)
	_ = serveViper.BindEnv(serveMaxLogsKey, serveMaxLogsEnv)
	serveCmd.Flags().Int(
		serveMaxLogsKey,
		serveViper.GetInt(serveMaxLogsKey),
		"Number of records kept in memory",
	)

	serveViper.SetDefault(serveNoHistoryKey, !server.DefaultOptions.Stream.ReplayHistory)
	_ = serveViper.BindEnv(serveNoHistoryKey, serveNoHistoryEnv)
	serveCmd.Flags().Bool(
		serveNoHistoryKey,
		serveViper.GetBool(serveNoHistoryKey),
		"Don't replay the recent history on connection",
	)

	_ = serveViper.BindPFlags(serveCmd.Flags())
}
