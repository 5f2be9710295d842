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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/winefox/winefox-cli/config"
)

type configureValues struct {
	host  *string
	port  *string
	token *string
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure the backend location and the API token",
	Long: "Configure the backend location and the API token.\n" +
		"\n" +
		"Without flags the values are prompted for, an empty answer keeps the current value.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		values := configureValues{}
		interactive := true
		for _, flag := range []struct {
			key    string
			target **string
		}{
			{config.HostKey, &values.host},
			{config.PortKey, &values.port},
			{config.TokenKey, &values.token},
		} {
			if cmd.Flags().Changed(flag.key) {
				value, _ := cmd.Flags().GetString(flag.key)
				*flag.target = &value
				interactive = false
			}
		}

		if interactive {
			values = promptConfigureValues(settings, os.Stdin, cmd.OutOrStdout())
		}

		if err := runConfigureCmd(settings, values); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", settings.Filename())
		return nil
	},
}

func readAnswer(reader *bufio.Reader) *string {
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil
	}
	return &answer
}

func promptConfigureValues(settings *config.Store, stdin io.Reader, out io.Writer) configureValues {
	reader := bufio.NewReader(stdin)
	current := settings.APIConfig()
	values := configureValues{}

	fmt.Fprintf(out, "Host (%s): ", current.Host)
	values.host = readAnswer(reader)

	fmt.Fprintf(out, "Port (%s): ", current.Port)
	values.port = readAnswer(reader)

	if settings.Token() != "" {
		fmt.Fprint(out, "API token (keep current): ")
	} else {
		fmt.Fprint(out, "API token: ")
	}
	values.token = readAnswer(reader)

	return values
}

// runConfigureCmd persists the given values, nil values are left unchanged
func runConfigureCmd(settings *config.Store, values configureValues) error {
	if values.host != nil || values.port != nil {
		apiConfig := settings.APIConfig()
		if values.host != nil {
			apiConfig.Host = *values.host
		}
		if values.port != nil {
			apiConfig.Port = *values.port
		}
		if _, err := apiConfig.BrokerURL(config.LogBrokerPath); err != nil {
			return err
		}
		if err := settings.SaveAPIConfig(apiConfig); err != nil {
			return err
		}
	}
	if values.token != nil {
		if *values.token == "" {
			return settings.ClearToken()
		}
		return settings.SetToken(*values.token)
	}
	return nil
}

func init() {
	configureCmd.Flags().String(config.HostKey, "", config.HostDesc)
	configureCmd.Flags().String(config.PortKey, "", config.PortDesc)
	configureCmd.Flags().String(config.TokenKey, "", config.TokenDesc+", an empty value clears it")
}
