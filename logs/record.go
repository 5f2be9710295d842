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

package logs

import (
	"strings"
	"time"
)

const (
	LevelTrace = "TRACE"
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Record is one normalized log line as emitted by the backend.
//
// Level is usually one of the Level* constants but unknown levels are kept verbatim.
type Record struct {
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	Level      string `json:"level" yaml:"level"`
	Thread     string `json:"thread,omitempty" yaml:"thread,omitempty"`
	Logger     string `json:"logger,omitempty" yaml:"logger,omitempty"`
	Message    string `json:"message" yaml:"message"`
	StackTrace string `json:"stackTrace,omitempty" yaml:"stackTrace,omitempty"`
}

// HasStackTrace reports whether the record carries exception text
func (r Record) HasStackTrace() bool {
	return r.StackTrace != ""
}

// Entry is a record as held by a Store, tagged with its arrival sequence number
type Entry struct {
	Seq uint64 `json:"seq" yaml:"seq"`
	Record
}

// isoMillis is the layout produced by javascript's Date.toISOString
const isoMillis = "2006-01-02T15:04:05.000Z"

func formatIngestionTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// normalizeTimestamp turns the legacy "YYYY-MM-DD HH:MM:SS" format into a pseudo ISO-8601 one
func normalizeTimestamp(raw string) string {
	return strings.Replace(raw, " ", "T", 1)
}
