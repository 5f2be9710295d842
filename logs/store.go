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
	"context"
	"strings"
	"sync"

	"github.com/winefox/winefox-cli/utils"
)

// DefaultMaxLogs is the capacity of a store created with a non positive capacity
const DefaultMaxLogs = 1000

// Store holds the most recent records, oldest first, up to a fixed capacity.
//
// Mutations are expected to come from a single pipeline goroutine and from explicit
// user actions; reads only ever get copies.
type Store struct {
	lock       sync.RWMutex
	maxLogs    int
	entries    []Entry
	lastSeq    uint64
	observable *utils.Observable
}

func NewStore(maxLogs int) *Store {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	return &Store{
		maxLogs:    maxLogs,
		entries:    make([]Entry, 0, maxLogs),
		observable: utils.NewObservable(),
	}
}

func (s *Store) MaxLogs() int {
	return s.maxLogs
}

func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.entries)
}

// LastSeq returns the sequence number of the most recently appended record
func (s *Store) LastSeq() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.lastSeq
}

func (s *Store) Append(record Record) {
	s.AppendMany([]Record{record})
}

// AppendMany appends records in order, with the same outcome as successive calls to Append
func (s *Store) AppendMany(records []Record) {
	if len(records) == 0 {
		return
	}

	s.lock.Lock()
	for _, record := range records {
		s.lastSeq++
		s.entries = append(s.entries, Entry{Seq: s.lastSeq, Record: record})
	}
	// Only the trailing window is kept; re-slicing lets the next growth of the
	// backing array drop the evicted head.
	if overflow := len(s.entries) - s.maxLogs; overflow > 0 {
		for i := 0; i < overflow; i++ {
			s.entries[i] = Entry{}
		}
		s.entries = s.entries[overflow:]
	}
	s.lock.Unlock()

	s.observable.Emit()
}

// Clear empties the store, sequence numbers keep increasing afterwards
func (s *Store) Clear() {
	s.lock.Lock()
	s.entries = make([]Entry, 0, s.maxLogs)
	s.lock.Unlock()

	s.observable.Emit()
}

// Logs returns a copy of the stored records, oldest first
func (s *Store) Logs() []Record {
	s.lock.RLock()
	defer s.lock.RUnlock()
	records := make([]Record, len(s.entries))
	for i, entry := range s.entries {
		records[i] = entry.Record
	}
	return records
}

// Since returns a copy of the stored entries appended after the given sequence number
func (s *Store) Since(seq uint64) []Entry {
	s.lock.RLock()
	defer s.lock.RUnlock()
	// Sequence numbers are contiguous within the window
	start := 0
	if len(s.entries) > 0 {
		first := s.entries[0].Seq
		if seq >= first {
			start = int(seq-first) + 1
		}
	}
	if start >= len(s.entries) {
		return []Entry{}
	}
	entries := make([]Entry, len(s.entries)-start)
	copy(entries, s.entries[start:])
	return entries
}

// Filter returns a copy of the stored records having one of the given levels, case insensitive.
//
// No level means every record.
func (s *Store) Filter(levels ...string) []Record {
	if len(levels) == 0 {
		return s.Logs()
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	records := []Record{}
	for _, entry := range s.entries {
		if MatchLevel(entry.Record, levels) {
			records = append(records, entry.Record)
		}
	}
	return records
}

// MatchLevel reports whether the record has one of the levels, an empty list matches everything
func MatchLevel(record Record, levels []string) bool {
	if len(levels) == 0 {
		return true
	}
	for _, level := range levels {
		if strings.EqualFold(record.Level, level) {
			return true
		}
	}
	return false
}

func (s *Store) Subscribe() *utils.Observer {
	return s.observable.Subscribe()
}

func (s *Store) Unsubscribe(observer *utils.Observer) {
	s.observable.Unsubscribe(observer)
}

// Observe sends every entry appended after `from` to `out`, then blocks waiting
// for new ones until the context is done.
//
// Entries evicted before they could be sent are skipped.
func (s *Store) Observe(ctx context.Context, from uint64, out chan<- Entry) error {
	observer := s.Subscribe()
	defer s.Unsubscribe(observer)
	for {
		entries := s.Since(from)
		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- entry:
			}
			from = entry.Seq
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-observer.Receive():
		}
	}
}
