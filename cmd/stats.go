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

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/winefox/winefox-cli/api"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the daily message and call counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		client := api.NewClient(settings.APIConfig(), settings)
		return runStatsCmd(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runStatsCmd(ctx context.Context, client *api.Client, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stats, err := client.GetConsoleStats(ctx)
	if err != nil {
		return err
	}

	trend := stats.Trend
	table := tablewriter.NewWriter(out)
	table.SetBorder(false)
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"date", "messages", "calls"})

	var totalMessages, totalCalls int64
	for i, date := range trend.Dates {
		// The series are expected to have the same length, missing values count as zero
		var messages, calls int64
		if i < len(trend.MsgCounts) {
			messages = trend.MsgCounts[i]
		}
		if i < len(trend.CallCounts) {
			calls = trend.CallCounts[i]
		}
		totalMessages += messages
		totalCalls += calls
		table.Append([]string{date, humanize.Comma(messages), humanize.Comma(calls)})
	}
	table.SetFooter([]string{"total", humanize.Comma(totalMessages), humanize.Comma(totalCalls)})
	table.SetCaption(true, fmt.Sprintf("%d day(s) retrieved", len(trend.Dates)))

	table.Render()
	return nil
}
