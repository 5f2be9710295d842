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

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/winefox/winefox-cli/config"
	"github.com/winefox/winefox-cli/version"
)

var log = logrus.WithField("component", "api")

const (
	defaultTimeout      = 50 * time.Second
	consoleStatsTimeout = 10 * time.Second

	authorizationHeader = "Authorization"
	authenticatedPrefix = "/api"

	ConsoleStatsPath = "/api/console/stats"
	SystemStatusPath = "/api/monitor/status"
	LogDatesPath     = "/api/logs/available-dates"
	LogContentPath   = "/api/logs/content"

	// ArchiveDateLayout is the format of the archive dates, e.g. "2024-03-01"
	ArchiveDateLayout = "2006-01-02"
)

// TokenStore holds the bearer token shared by the REST client and the log stream
type TokenStore interface {
	Token() string
	SetToken(token string) error
	ClearToken() error
}

// Client talks to the backend REST API.
//
// Requests to /api paths carry the stored token, a token sent back by the
// backend replaces it and a 401 response clears it.
type Client struct {
	resty  *resty.Client
	tokens TokenStore
}

func NewClient(apiConfig config.APIConfig, tokens TokenStore) *Client {
	client := &Client{
		resty:  resty.New(),
		tokens: tokens,
	}
	client.resty.
		SetBaseURL(apiConfig.BaseURL()).
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", version.UserAgent()).
		SetLogger(log).
		SetDebug(log.Logger.IsLevelEnabled(logrus.TraceLevel)).
		OnBeforeRequest(client.attachToken).
		OnAfterResponse(client.trackToken)
	return client
}

// Resty exposes the underlying client, mostly for tests
func (c *Client) Resty() *resty.Client {
	return c.resty
}

func (c *Client) attachToken(_ *resty.Client, request *resty.Request) error {
	token := c.tokens.Token()
	if token == "" {
		return nil
	}
	path := requestPath(request.URL)
	if path == authenticatedPrefix || strings.HasPrefix(path, authenticatedPrefix+"/") {
		request.SetHeader(authorizationHeader, token)
	}
	return nil
}

func requestPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Path
}

func (c *Client) trackToken(_ *resty.Client, response *resty.Response) error {
	if response.StatusCode() == http.StatusUnauthorized {
		log.Warn("Token rejected by the backend, clearing it")
		if err := c.tokens.ClearToken(); err != nil {
			log.WithField("error", err).Error("Unable to clear the token")
		}
		return nil
	}
	if token := response.Header().Get(authorizationHeader); token != "" {
		if err := c.tokens.SetToken(token); err != nil {
			log.WithField("error", err).Error("Unable to store the refreshed token")
		}
	}
	return nil
}

// Get retrieves the envelope at the given path and returns its data
func Get[T any](ctx context.Context, client *Client, path string) (T, error) {
	return GetWithQuery[T](ctx, client, path, nil)
}

// GetWithQuery is Get with query parameters
func GetWithQuery[T any](ctx context.Context, client *Client, path string, query map[string]string) (T, error) {
	var data T

	envelope := &Result[T]{}
	response, err := client.resty.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(query).
		SetResult(envelope).
		Get(path)
	if err != nil {
		return data, fmt.Errorf("request to [%s] failed: %w", path, err)
	}
	if response.IsError() {
		return data, &HTTPError{
			Path:       path,
			StatusCode: response.StatusCode(),
			Body:       string(response.Body()),
		}
	}
	if !envelope.Success {
		return data, &EnvelopeError{Path: path, Message: envelope.Message}
	}
	if envelope.Data != nil {
		data = *envelope.Data
	}
	return data, nil
}

func (c *Client) GetConsoleStats(ctx context.Context) (ConsoleStats, error) {
	ctx, cancel := context.WithTimeout(ctx, consoleStatsTimeout)
	defer cancel()
	return Get[ConsoleStats](ctx, c, ConsoleStatsPath)
}

func (c *Client) GetSystemStatus(ctx context.Context) (SystemStatus, error) {
	return Get[SystemStatus](ctx, c, SystemStatusPath)
}

// GetLogDates lists the days having an archive of the given kind, most recent first
func (c *Client) GetLogDates(ctx context.Context, archive Archive) ([]string, error) {
	return GetWithQuery[[]string](ctx, c, LogDatesPath, map[string]string{
		"type": string(archive),
	})
}

// GetLogContent returns the raw lines archived for the given day, formatted with ArchiveDateLayout
func (c *Client) GetLogContent(ctx context.Context, date string, archive Archive) ([]string, error) {
	return GetWithQuery[[]string](ctx, c, LogContentPath, map[string]string{
		"date": date,
		"type": string(archive),
	})
}
