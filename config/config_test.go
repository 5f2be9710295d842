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

package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFilename = "/home/winefox/.winefox.yaml"

func newTestStore(t *testing.T, fs afero.Fs) *Store {
	t.Helper()
	return NewStore(fs, testFilename)
}

func TestAPIConfigBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", APIConfig{}.BaseURL())
	assert.Equal(t, "https://bot.example.com:443", APIConfig{Host: "https://bot.example.com/", Port: "443"}.BaseURL())
}

func TestAPIConfigBrokerURL(t *testing.T) {
	tests := []struct {
		config   APIConfig
		expected string
	}{
		{APIConfig{}, "ws://localhost:8080/ws-log"},
		{APIConfig{Host: "http://10.0.0.2", Port: "9000"}, "ws://10.0.0.2:9000/ws-log"},
		{APIConfig{Host: "https://bot.example.com", Port: "443"}, "wss://bot.example.com:443/ws-log"},
		{APIConfig{Host: "bot.local", Port: "8080"}, "ws://bot.local:8080/ws-log"},
		{APIConfig{Host: "ws://bot.local", Port: "8080"}, "ws://bot.local:8080/ws-log"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.expected, func(t *testing.T) {
			brokerURL, err := tt.config.BrokerURL(LogBrokerPath)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, brokerURL)
		})
	}
}

func TestStoreDefaultsWithoutFile(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())

	require.NoError(t, store.Load())

	assert.Equal(t, APIConfig{Host: DefaultHost, Port: DefaultPort}, store.APIConfig())
	assert.Equal(t, "", store.Token())
}

func TestStorePersistence(t *testing.T) {
	fs := afero.NewMemMapFs()

	store := newTestStore(t, fs)
	require.NoError(t, store.Load())
	require.NoError(t, store.SaveAPIConfig(APIConfig{Host: "https://bot.example.com/", Port: "8443"}))
	require.NoError(t, store.SetToken("ABCD12345"))

	exists, err := afero.Exists(fs, testFilename)
	require.NoError(t, err)
	assert.True(t, exists)

	reloaded := newTestStore(t, fs)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, APIConfig{Host: "https://bot.example.com", Port: "8443"}, reloaded.APIConfig())
	assert.Equal(t, "ABCD12345", reloaded.Token())

	require.NoError(t, reloaded.ClearToken())
	again := newTestStore(t, fs)
	require.NoError(t, again.Load())
	assert.Equal(t, "", again.Token())
}

func TestStoreInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testFilename, []byte("host: [unterminated"), 0o600))

	store := newTestStore(t, fs)
	assert.Error(t, store.Load())
}

func TestStoreDoesNotPersistEnvironment(t *testing.T) {
	t.Setenv(TokenEnv, "env-only-token")
	t.Setenv(PortEnv, "9999")
	fs := afero.NewMemMapFs()

	store := newTestStore(t, fs)
	require.NoError(t, store.Load())
	assert.Equal(t, "env-only-token", store.Token())

	require.NoError(t, store.SaveAPIConfig(APIConfig{Host: "https://bot.example.com", Port: "8443"}))

	content, err := afero.ReadFile(fs, testFilename)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "env-only-token")
	assert.NotContains(t, string(content), "9999")
	assert.Contains(t, string(content), "8443")

	// The environment still takes precedence once the file is saved
	assert.Equal(t, "env-only-token", store.Token())
	assert.Equal(t, "9999", store.APIConfig().Port)

	// A token equal to the environment one is left out of the file
	require.NoError(t, store.SetToken("env-only-token"))
	content, err = afero.ReadFile(fs, testFilename)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "env-only-token")
}

func TestStoreKeepsUnrelatedFileKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testFilename, []byte("host: http://10.0.0.2\nport: \"9000\"\n"), 0o600))

	store := newTestStore(t, fs)
	require.NoError(t, store.Load())
	require.NoError(t, store.SetToken("ABCD12345"))

	reloaded := newTestStore(t, fs)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, APIConfig{Host: "http://10.0.0.2", Port: "9000"}, reloaded.APIConfig())
	assert.Equal(t, "ABCD12345", reloaded.Token())
}

func TestStoreLoadPicksUpExternalChanges(t *testing.T) {
	fs := afero.NewMemMapFs()

	store := newTestStore(t, fs)
	require.NoError(t, store.Load())
	require.NoError(t, store.SetToken("first"))

	other := newTestStore(t, fs)
	require.NoError(t, other.Load())
	require.NoError(t, other.SaveAPIConfig(APIConfig{Host: "http://10.0.0.3", Port: "9001"}))
	require.NoError(t, other.SetToken("second"))

	assert.Equal(t, "first", store.Token())
	require.NoError(t, store.Load())
	assert.Equal(t, "second", store.Token())
	assert.Equal(t, APIConfig{Host: "http://10.0.0.3", Port: "9001"}, store.APIConfig())
}
