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
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var log = logrus.WithField("component", "config")

const (
	HostKey  = "host"
	HostEnv  = "WINEFOX_API_HOST"
	HostDesc = "Backend API host, including the scheme"

	PortKey  = "port"
	PortEnv  = "WINEFOX_API_PORT"
	PortDesc = "Backend API port"

	TokenKey  = "token"
	TokenEnv  = "WINEFOX_TOKEN"
	TokenDesc = "Bearer token sent in the Authorization header"

	DefaultHost = "http://localhost"
	DefaultPort = "8080"

	// FileName is the name of the configuration file, in the home directory by default
	FileName = ".winefox"
	FileType = "yaml"

	LogBrokerPath = "/ws-log"
)

// APIConfig locates the backend
type APIConfig struct {
	Host string
	Port string
}

func (c APIConfig) withDefaults() APIConfig {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == "" {
		c.Port = DefaultPort
	}
	c.Host = strings.TrimSuffix(c.Host, "/")
	return c
}

// BaseURL is the root of the REST API, e.g. "http://localhost:8080"
func (c APIConfig) BaseURL() string {
	c = c.withDefaults()
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// BrokerURL is the WebSocket endpoint at the given path, mapping http to ws and https to wss.
//
// A host given without scheme is reached with plain ws.
func (c APIConfig) BrokerURL(path string) (string, error) {
	baseURL := c.BaseURL()
	wsURL := baseURL
	switch {
	case strings.HasPrefix(baseURL, "http"):
		wsURL = "ws" + strings.TrimPrefix(baseURL, "http")
	case !strings.HasPrefix(baseURL, "ws"):
		wsURL = "ws://" + baseURL
	}

	brokerURL := wsURL + path
	parsed, err := url.Parse(brokerURL)
	if err != nil {
		return "", fmt.Errorf("invalid broker URL [%s]: %w", brokerURL, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid broker URL [%s]: unsupported scheme %q", brokerURL, parsed.Scheme)
	}
	return brokerURL, nil
}

// Store reads and persists the backend location and the bearer token.
//
// Reads see defaults, then the file, then the environment. Writes start from
// the file alone, so values coming from the environment never end up on disk.
type Store struct {
	lock       sync.Mutex
	filesystem afero.Fs
	viper      *viper.Viper
	filename   string
}

// NewStore reads and writes the given file on filesystem
func NewStore(filesystem afero.Fs, filename string) *Store {
	cfg := viper.New()
	cfg.SetFs(filesystem)
	cfg.SetConfigFile(filename)
	cfg.SetConfigType(FileType)
	cfg.SetDefault(HostKey, DefaultHost)
	cfg.SetDefault(PortKey, DefaultPort)
	cfg.SetDefault(TokenKey, "")
	_ = cfg.BindEnv(HostKey, HostEnv)
	_ = cfg.BindEnv(PortKey, PortEnv)
	_ = cfg.BindEnv(TokenKey, TokenEnv)
	return &Store{
		filesystem: filesystem,
		viper:      cfg,
		filename:   filename,
	}
}

// Load reads the configuration file, a missing file isn't an error.
//
// Calling it again picks up changes made by another process.
func (s *Store) Load() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	found, err := readConfig(s.viper, s.filename)
	if err != nil {
		return err
	}
	if found {
		log.WithField("path", s.filename).Debug("Configuration loaded")
	} else {
		log.WithField("path", s.filename).Debug("No configuration file")
	}
	return nil
}

func readConfig(v *viper.Viper, filename string) (bool, error) {
	err := v.ReadInConfig()
	if err == nil {
		return true, nil
	}
	var notFoundErr viper.ConfigFileNotFoundError
	if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFoundErr) {
		return false, nil
	}
	return false, fmt.Errorf("unable to read configuration file %q: %w", filename, err)
}

func (s *Store) Filename() string {
	return s.filename
}

func (s *Store) APIConfig() APIConfig {
	s.lock.Lock()
	defer s.lock.Unlock()
	return APIConfig{
		Host: s.viper.GetString(HostKey),
		Port: s.viper.GetString(PortKey),
	}.withDefaults()
}

func (s *Store) SaveAPIConfig(apiConfig APIConfig) error {
	apiConfig = apiConfig.withDefaults()
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.write(map[string]string{
		HostKey: apiConfig.Host,
		PortKey: apiConfig.Port,
	})
}

func (s *Store) Token() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.viper.GetString(TokenKey)
}

func (s *Store) SetToken(token string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.viper.GetString(TokenKey) == token {
		return nil
	}
	return s.write(map[string]string{TokenKey: token})
}

func (s *Store) ClearToken() error {
	return s.SetToken("")
}

// write merges the changes into the content of the file, saves it and reloads
func (s *Store) write(changes map[string]string) error {
	file := viper.New()
	file.SetFs(s.filesystem)
	file.SetConfigFile(s.filename)
	file.SetConfigType(FileType)
	if _, err := readConfig(file, s.filename); err != nil {
		return err
	}
	for key, value := range changes {
		file.Set(key, value)
	}
	if err := file.WriteConfigAs(s.filename); err != nil {
		return fmt.Errorf("unable to write configuration file %q: %w", s.filename, err)
	}
	log.WithField("path", s.filename).Debug("Configuration saved")

	_, err := readConfig(s.viper, s.filename)
	return err
}
