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
	"fmt"
	"io"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/winefox/winefox-cli/api"
	"github.com/winefox/winefox-cli/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured backend and its resource usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		client := api.NewClient(settings.APIConfig(), settings)
		return runStatusCmd(cmd.Context(), settings, client, cmd.OutOrStdout())
	},
}

func runStatusCmd(ctx context.Context, settings *config.Store, client *api.Client, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	apiConfig := settings.APIConfig()
	brokerURL, err := apiConfig.BrokerURL(config.LogBrokerPath)
	if err != nil {
		return err
	}

	token := "not configured"
	if settings.Token() != "" {
		token = "configured"
	}

	rows := []string{
		"API|" + apiConfig.BaseURL(),
		"LOG STREAM|" + brokerURL,
		"TOKEN|" + token,
	}

	status, err := client.GetSystemStatus(ctx)
	if err != nil {
		rows = append(rows, "BACKEND|unreachable ("+err.Error()+")")
	} else {
		rows = append(rows,
			"CPU|"+status.CPUUsage,
			"MEMORY|"+status.MemoryUsage,
			"DISK|"+status.DiskUsage,
		)
	}

	_, err = fmt.Fprintln(out, columnize.SimpleFormat(rows))
	return err
}
