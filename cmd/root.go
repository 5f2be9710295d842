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
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/winefox/winefox-cli/config"
)

// rootViper represents the configuration shared by every command
var rootViper = viper.New()

const (
	rootConfigKey  = "config"
	rootConfigEnv  = "WINEFOX_CONFIG"
	rootConfigDesc = "Configuration file (default is $HOME/" + config.FileName + "." + config.FileType + ")"

	rootLogLevelKey  = "log_level"
	rootLogLevelEnv  = "WINEFOX_LOG_LEVEL"
	rootLogFileKey   = "log_file"
	rootLogFileEnv   = "WINEFOX_LOG_FILE"
	rootLogFormatKey = "log_format"
	rootLogFormatEnv = "WINEFOX_LOG_FORMAT"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "winefox",
	Short:         "Winefox command line interface",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return configureLog(rootViper)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configFilename is the configuration file from the flag, or in the home directory
func configFilename() (string, error) {
	if filename := rootViper.GetString(rootConfigKey); filename != "" {
		return filename, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("unable to locate the home directory: %w", err)
	}
	return filepath.Join(home, config.FileName+"."+config.FileType), nil
}

// loadSettings reads the persisted API configuration and token
func loadSettings() (*config.Store, error) {
	filename, err := configFilename()
	if err != nil {
		return nil, err
	}
	settings := config.NewStore(afero.NewOsFs(), filename)
	if err := settings.Load(); err != nil {
		return nil, err
	}
	return settings, nil
}

func init() {
	_ = rootViper.BindEnv(rootConfigKey, rootConfigEnv)
	rootCmd.PersistentFlags().String(
		rootConfigKey,
		rootViper.GetString(rootConfigKey),
		rootConfigDesc,
	)

	rootViper.SetDefault(rootLogLevelKey, logrus.InfoLevel.String())
	_ = rootViper.BindEnv(rootLogLevelKey, rootLogLevelEnv)
	rootCmd.PersistentFlags().String(
		rootLogLevelKey,
		rootViper.GetString(rootLogLevelKey),
		fmt.Sprintf("Minimum logging level as one of %v", expectedLogLevels),
	)

	_ = rootViper.BindEnv(rootLogFileKey, rootLogFileEnv)
	rootCmd.PersistentFlags().String(
		rootLogFileKey,
		rootViper.GetString(rootLogFileKey),
		"Log file output",
	)

	_ = rootViper.BindEnv(rootLogFormatKey, rootLogFormatEnv)
	rootCmd.PersistentFlags().String(
		rootLogFormatKey,
		rootViper.GetString(rootLogFormatKey),
		fmt.Sprintf(
			"Log format as one of %v, default is %q, when a log file is specified it is %q",
			expectedLogFormats, text, json,
		),
	)

	// Don't sort alphabetically, keep insertion order
	rootCmd.PersistentFlags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = rootViper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
