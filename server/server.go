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
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/winefox/winefox-cli/api"
	"github.com/winefox/winefox-cli/logs"
	"github.com/winefox/winefox-cli/stream"
)

var log = logrus.WithField("component", "server")

const streamBufferSize = 64

// Connection is the part of the log stream manager exposed over HTTP
type Connection interface {
	State() stream.State
	Connected() bool
	Reconnect()
}

// Server is a local, read mostly, HTTP view over the log store
type Server struct {
	http.Server
	store      *logs.Store
	connection Connection

	gin *gin.Engine
}

func New(port uint, store *logs.Store, connection Connection) *Server {
	gin.SetMode(gin.ReleaseMode)

	ginEngine := gin.New()
	server := &Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: ginEngine,
		},
		store:      store,
		connection: connection,
		gin:        ginEngine,
	}

	server.gin.HandleMethodNotAllowed = true

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("Authorization")

	server.gin.Use(cors.New(corsConfig))
	server.gin.Use(ginErrorHandlerMiddleware)
	server.gin.Use(ginLoggerMiddleware)
	server.gin.Use(gin.Recovery())

	server.gin.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := server.gin.Group("/api")
	apiGroup.GET("/logs", server.listLogs)
	apiGroup.DELETE("/logs", server.clearLogs)
	apiGroup.GET("/logs/stream", server.streamLogs)
	apiGroup.GET("/connection", server.getConnection)
	apiGroup.POST("/connection/reconnect", server.reconnect)

	server.gin.NoRoute(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusNotFound, fmt.Errorf("not found"))
	})

	server.gin.NoMethod(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})

	return server
}

func respond[T any](c *gin.Context, statusCode int, message string, data T) {
	c.JSON(statusCode, api.Result[T]{
		Success:   true,
		Message:   message,
		Data:      &data,
		Timestamp: time.Now().UnixMilli(),
	})
}

type logsQuery struct {
	levels []string
	since  uint64
}

// parseLogsQuery reads `level`, repeated or comma separated, and `since`, a sequence number
func parseLogsQuery(c *gin.Context) (logsQuery, error) {
	query := logsQuery{}
	for _, value := range c.QueryArray("level") {
		for _, level := range strings.Split(value, ",") {
			level = strings.TrimSpace(level)
			if level != "" {
				query.levels = append(query.levels, level)
			}
		}
	}
	if since := c.Query("since"); since != "" {
		seq, err := strconv.ParseUint(since, 10, 64)
		if err != nil {
			return query, wrapError(http.StatusBadRequest, fmt.Errorf("invalid since [%s]: %w", since, err))
		}
		query.since = seq
	}
	return query, nil
}

func (server *Server) listLogs(c *gin.Context) {
	query, err := parseLogsQuery(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	entries := []logs.Entry{}
	for _, entry := range server.store.Since(query.since) {
		if logs.MatchLevel(entry.Record, query.levels) {
			entries = append(entries, entry)
		}
	}
	respond(c, http.StatusOK, fmt.Sprintf("%d log(s)", len(entries)), entries)
}

func (server *Server) clearLogs(c *gin.Context) {
	server.store.Clear()
	log.Info("Logs cleared")
	respond[any](c, http.StatusOK, "Logs cleared", nil)
}

// streamLogs sends the matching stored entries then the new ones as server sent events
func (server *Server) streamLogs(c *gin.Context) {
	query, err := parseLogsQuery(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	entries := make(chan logs.Entry, streamBufferSize)
	go func() {
		err := server.store.Observe(ctx, query.since, entries)
		log.WithField("error", err).Debug("Log stream client gone")
	}()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case entry := <-entries:
			if logs.MatchLevel(entry.Record, query.levels) {
				c.SSEvent("log", entry)
			}
			return true
		}
	})
}

type connectionStatus struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
}

func (server *Server) connectionStatus() connectionStatus {
	return connectionStatus{
		State:     server.connection.State().String(),
		Connected: server.connection.Connected(),
	}
}

func (server *Server) getConnection(c *gin.Context) {
	respond(c, http.StatusOK, "", server.connectionStatus())
}

func (server *Server) reconnect(c *gin.Context) {
	log.Info("Reconnection requested")
	server.connection.Reconnect()
	respond(c, http.StatusAccepted, "Reconnecting", server.connectionStatus())
}
