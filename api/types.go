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
	"fmt"
	"time"
)

// Result is the envelope wrapping every backend response
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
	// Timestamp is in milliseconds since the epoch
	Timestamp int64 `json:"timestamp"`
}

func (r Result[T]) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// TrendChartData holds daily series, Dates are formatted as "MM-dd"
type TrendChartData struct {
	Dates      []string `json:"dates"`
	MsgCounts  []int64  `json:"msgCounts"`
	CallCounts []int64  `json:"callCounts"`
}

type ConsoleStats struct {
	Trend TrendChartData `json:"trend"`
}

// SystemStatus holds usage figures already formatted by the backend, e.g. "12%"
type SystemStatus struct {
	CPUUsage    string `json:"cpuUsage"`
	MemoryUsage string `json:"memoryUsage"`
	DiskUsage   string `json:"diskUsage"`
}

// Archive is a kind of daily log file kept by the backend
type Archive string

const (
	ArchiveHistory Archive = "history"
	ArchiveError   Archive = "error"
)

var Archives = []Archive{ArchiveHistory, ArchiveError}

func ParseArchive(value string) (Archive, error) {
	for _, archive := range Archives {
		if string(archive) == value {
			return archive, nil
		}
	}
	return "", fmt.Errorf("unknown log archive %q, expecting one of %v", value, Archives)
}

// HTTPError is returned for non 2xx responses
type HTTPError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request to [%s] failed with status %d", e.Path, e.StatusCode)
}

// EnvelopeError is returned when the backend answers with success set to false
type EnvelopeError struct {
	Path    string
	Message string
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request to [%s] was unsuccessful", e.Path)
	}
	return fmt.Sprintf("request to [%s] was unsuccessful: %s", e.Path, e.Message)
}
