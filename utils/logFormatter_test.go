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


package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(level logrus.Level, message string, fields logrus.Fields) *logrus.Entry {
	entry := logrus.NewEntry(logrus.New()).WithFields(fields)
	entry.Time = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	entry.Level = level
	entry.Message = message
	return entry
}

func TestTextFormatter(t *testing.T) {
	formatter := NewTextFormatter([]string{"component", "session"}, true)

	tests := []struct {
		name     string
		entry    *logrus.Entry
		expected string
	}{
		{
			name: "scope and sorted fields",
			entry: testEntry(logrus.WarnLevel, "  connection lost \n", logrus.Fields{
				"session":   "abcd",
				"component": "stream",
				"url":       "ws://localhost:8080/ws-log",
				"attempt":   3,
			}),
			expected: "2024-01-01T10:00:00Z WARN  stream/abcd: connection lost attempt=3 url=ws://localhost:8080/ws-log\n",
		},
		{
			name:     "partial scope",
			entry:    testEntry(logrus.InfoLevel, "listening", logrus.Fields{"component": "server"}),
			expected: "2024-01-01T10:00:00Z INFO  server: listening\n",
		},
		{
			name:     "no scope",
			entry:    testEntry(logrus.DebugLevel, "starting", logrus.Fields{}),
			expected: "2024-01-01T10:00:00Z DEBUG starting\n",
		},
		{
			name: "quoted values",
			entry: testEntry(logrus.ErrorLevel, "request failed", logrus.Fields{
				"error": errors.New("connection refused"),
				"path":  "",
			}),
			expected: "2024-01-01T10:00:00Z ERROR request failed error=\"connection refused\" path=\"\"\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out, err := formatter.Format(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestTextFormatterColorsTheLevel(t *testing.T) {
	formatter := NewTextFormatter([]string{"component"}, false)

	out, err := formatter.Format(testEntry(logrus.ErrorLevel, "request failed", logrus.Fields{"component": "api"}))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T10:00:00Z \x1b[31mERROR\x1b[0m api: request failed\n", string(out))
}
