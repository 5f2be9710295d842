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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/winefox/winefox-cli/api"
	"github.com/winefox/winefox-cli/cmd/utils"
	"github.com/winefox/winefox-cli/logs"
	"github.com/winefox/winefox-cli/stream"
)

// logsViper represents the configuration of the logs commands
var logsViper = viper.New()

const (
	logsOutputKey     = "output"
	logsOutputEnv     = "WINEFOX_LOGS_OUTPUT"
	logsLevelKey      = "level"
	logsLevelEnv      = "WINEFOX_LOGS_LEVEL"
	logsNoColorKey    = "no_color"
	logsNoColorEnv    = "WINEFOX_LOGS_NO_COLOR"
	logsNoHistoryKey  = "no_history"
	logsNoHistoryEnv  = "WINEFOX_LOGS_NO_HISTORY"
	logsMaxLogsKey    = "max_logs"
	logsMaxLogsEnv    = "WINEFOX_LOGS_MAX_LOGS"
	logsDateKey       = "date"
	logsTypeKey       = "type"
	logsTypeEnv       = "WINEFOX_LOGS_TYPE"
	logsListDatesKey  = "list_dates"
	maxLineLength     = 16 * 1024 * 1024
	entriesBufferSize = 64
)

var errNoToken = errors.New("no API token configured, use `winefox configure` or WINEFOX_TOKEN")

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Follow or normalize backend logs",
	Args:  cobra.NoArgs,
}

var logsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream the backend logs, starting with the recent history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		printer, err := makePrinter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		options := stream.DefaultOptions
		options.ReplayHistory = !logsViper.GetBool(logsNoHistoryKey)

		store := logs.NewStore(logsViper.GetInt(logsMaxLogsKey))
		manager := stream.NewManager(store, stream.NewStompTransport(options.HeartBeat), settings, options)

		ctx := utils.ContextWithUserTermination(context.Background())
		return runLogsTailCmd(ctx, manager, printer, logsViper.GetStringSlice(logsLevelKey))
	},
}

var logsParseCmd = &cobra.Command{
	Use:   "parse [FILE]",
	Short: "Normalize raw log lines read from a file or the standard input",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := makePrinter(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		var in io.Reader = os.Stdin
		if len(args) > 0 && args[0] != "-" {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			in = file
		}

		return runLogsParseCmd(in, printer, logsViper.GetStringSlice(logsLevelKey))
	},
}

var logsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the lines archived by the backend for a day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		archive, err := api.ParseArchive(logsViper.GetString(logsTypeKey))
		if err != nil {
			return err
		}
		printer, err := makePrinter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		client := api.NewClient(settings.APIConfig(), settings)

		query := historyQuery{
			archive:   archive,
			date:      logsViper.GetString(logsDateKey),
			listDates: logsViper.GetBool(logsListDatesKey),
		}
		return runLogsHistoryCmd(cmd.Context(), client, cmd.OutOrStdout(), printer, query, logsViper.GetStringSlice(logsLevelKey))
	},
}

func makePrinter(out io.Writer) (*logs.Printer, error) {
	format, err := logs.ParseFormat(logsViper.GetString(logsOutputKey))
	if err != nil {
		return nil, err
	}
	colors := !color.NoColor && !logsViper.GetBool(logsNoColorKey)
	return logs.NewPrinter(out, format, colors), nil
}

// runLogsTailCmd prints the stored entries as they arrive, until the context is done
func runLogsTailCmd(ctx context.Context, manager *stream.Manager, printer *logs.Printer, levels []string) error {
	manager.Connect()
	if manager.State() == stream.StateIdle {
		return errNoToken
	}
	defer manager.Disconnect()

	g, ctx := errgroup.WithContext(ctx)
	entries := make(chan logs.Entry, entriesBufferSize)
	g.Go(func() error {
		return manager.Store().Observe(ctx, 0, entries)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case entry := <-entries:
				if !logs.MatchLevel(entry.Record, levels) {
					continue
				}
				if err := printer.Print(entry.Record); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runLogsParseCmd prints every non blank line of the input as a normalized record
func runLogsParseCmd(in io.Reader, printer *logs.Printer, levels []string) error {
	parser := &logs.Parser{}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		record := parser.Parse(line)
		if !logs.MatchLevel(record, levels) {
			continue
		}
		if err := printer.Print(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("unable to read log lines: %w", err)
	}
	return nil
}

type historyQuery struct {
	archive   api.Archive
	date      string
	listDates bool
}

// runLogsHistoryCmd prints the archived lines of a day, or the available days.
//
// Without a date, today is shown when archived, otherwise the most recent archived day.
func runLogsHistoryCmd(
	ctx context.Context,
	client *api.Client,
	out io.Writer,
	printer *logs.Printer,
	query historyQuery,
	levels []string,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if query.listDates {
		dates, err := client.GetLogDates(ctx, query.archive)
		if err != nil {
			return err
		}
		for _, date := range dates {
			fmt.Fprintln(out, date)
		}
		return nil
	}

	date := query.date
	if date == "" {
		var err error
		if date, err = defaultArchiveDate(ctx, client, query.archive); err != nil {
			return err
		}
	} else if _, err := time.Parse(api.ArchiveDateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, expecting the YYYY-MM-DD format", date)
	}

	lines, err := client.GetLogContent(ctx, date, query.archive)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"date":    date,
		"archive": query.archive,
		"lines":   len(lines),
	}).Debug("Archived log lines retrieved")

	parser := &logs.Parser{}
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		record := parser.Parse(line)
		if !logs.MatchLevel(record, levels) {
			continue
		}
		if err := printer.Print(record); err != nil {
			return err
		}
	}
	return nil
}

func defaultArchiveDate(ctx context.Context, client *api.Client, archive api.Archive) (string, error) {
	today := time.Now().Format(api.ArchiveDateLayout)
	dates, err := client.GetLogDates(ctx, archive)
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		return today, nil
	}
	for _, date := range dates {
		if date == today {
			return today, nil
		}
	}
	return dates[0], nil
}

func init() {
	logsViper.SetDefault(logsOutputKey, string(logs.FormatText))
	_ = logsViper.BindEnv(logsOutputKey, logsOutputEnv)
	logsCmd.PersistentFlags().StringP(
		logsOutputKey,
		"o",
		logsViper.GetString(logsOutputKey),
		fmt.Sprintf("Output format as one of %v", logs.Formats),
	)

	_ = logsViper.BindEnv(logsLevelKey, logsLevelEnv)
	logsCmd.PersistentFlags().StringSliceP(
		logsLevelKey,
		"l",
		nil,
		"Only show records having one of these levels, case insensitive",
	)

	logsViper.SetDefault(logsNoColorKey, false)
	_ = logsViper.BindEnv(logsNoColorKey, logsNoColorEnv)
	logsCmd.PersistentFlags().Bool(
		logsNoColorKey,
		logsViper.GetBool(logsNoColorKey),
		"Disable the colored text output",
	)

	logsViper.SetDefault(logsNoHistoryKey, false)
	_ = logsViper.BindEnv(logsNoHistoryKey, logsNoHistoryEnv)
	logsTailCmd.Flags().Bool(
		logsNoHistoryKey,
		logsViper.GetBool(logsNoHistoryKey),
		"Only show the lines emitted after the connection",
	)

	logsViper.SetDefault(logsMaxLogsKey, logs.DefaultMaxLogs)
	_ = logsViper.BindEnv(logsMaxLogsKey, logsMaxLogsEnv)
	logsTailCmd.Flags().Int(
		logsMaxLogsKey,
		logsViper.GetInt(logsMaxLogsKey),
		"Number of records kept in memory",
	)

	logsHistoryCmd.Flags().String(
		logsDateKey,
		"",
		"Day to show as YYYY-MM-DD, defaults to today or the most recent archived day",
	)

	logsViper.SetDefault(logsTypeKey, string(api.ArchiveHistory))
	_ = logsViper.BindEnv(logsTypeKey, logsTypeEnv)
	logsHistoryCmd.Flags().String(
		logsTypeKey,
		logsViper.GetString(logsTypeKey),
		fmt.Sprintf("Archive to read as one of %v", api.Archives),
	)

	logsHistoryCmd.Flags().Bool(
		logsListDatesKey,
		false,
		"List the archived days instead of showing a day",
	)

	logsCmd.PersistentFlags().SortFlags = false

	_ = logsViper.BindPFlags(logsCmd.PersistentFlags())
	_ = logsViper.BindPFlags(logsTailCmd.Flags())
	_ = logsViper.BindPFlags(logsHistoryCmd.Flags())

	logsCmd.AddCommand(logsTailCmd)
	logsCmd.AddCommand(logsParseCmd)
	logsCmd.AddCommand(logsHistoryCmd)
}
