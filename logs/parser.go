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
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

const (
	// RecoveredThread is the thread of every record produced by Salvage
	RecoveredThread = "parser-recovered"
	// RecoveredLogger is the logger used by Salvage when none can be extracted
	RecoveredLogger = "RawParser"

	defaultThread = "unknown"
	defaultLogger = "root"

	placeholderPrefix    = "log line partially unparseable: "
	placeholderMaxLength = 100
)

// ErrNotAnObject is returned by Decode when the line is valid JSON but not an object
var ErrNotAnObject = errors.New("log line is not a JSON object")

var (
	timestampPattern      = regexp.MustCompile(`"@?timestamp":\s*"([^"]+)"`)
	levelPattern          = regexp.MustCompile(`"level":\s*"([^"]+)"`)
	loggerPattern         = regexp.MustCompile(`"(logger_name|logger)":\s*"([^"]+)"`)
	closingMessagePattern = regexp.MustCompile(`(?s)"message":\s*"(.*)"\s*}`)
	innerMessagePattern   = regexp.MustCompile(`(?s)"message":\s*"(.*)"\s*,\s*"`)
)

var stackTraceMarkers = []string{
	"\n\tat ",
	"Exception: ",
	"Caused by: ",
	`"stack_trace"`,
}

// Parser converts raw log lines into records.
//
// The zero value is ready to use. A Parser is safe for concurrent use.
type Parser struct {
	// Now is the clock used for records without a usable timestamp, defaults to time.Now
	Now func() time.Time

	pool fastjson.ParserPool
}

var defaultParser = &Parser{}

// Parse converts a raw line with the default parser
func Parse(raw string) Record {
	return defaultParser.Parse(raw)
}

func (p *Parser) now() string {
	if p.Now != nil {
		return formatIngestionTime(p.Now())
	}
	return formatIngestionTime(time.Now())
}

// Parse always returns a record, falling back to Salvage when the line can't be decoded
func (p *Parser) Parse(raw string) Record {
	record, err := p.Decode(raw)
	if err != nil {
		return p.Salvage(raw)
	}
	return record
}

// Decode strictly decodes a line holding a single JSON object.
//
// Two generations of the backend log schema are accepted, the newer field name
// takes precedence when both are present.
func (p *Parser) Decode(raw string) (Record, error) {
	parser := p.pool.Get()
	defer p.pool.Put(parser)

	value, err := parser.Parse(raw)
	if err != nil {
		return Record{}, fmt.Errorf("invalid JSON log line: %w", err)
	}
	object, err := value.Object()
	if err != nil {
		return Record{}, ErrNotAnObject
	}

	record := Record{
		Timestamp: p.now(),
		Level:     LevelInfo,
		Thread:    defaultThread,
		Logger:    defaultLogger,
	}
	if timestamp, ok := firstField(object, "@timestamp", "timestamp"); ok {
		record.Timestamp = timestamp
	}
	record.Timestamp = normalizeTimestamp(record.Timestamp)
	if level, ok := firstField(object, "level"); ok {
		record.Level = level
	}
	if thread, ok := firstField(object, "thread_name", "thread"); ok {
		record.Thread = thread
	}
	if logger, ok := firstField(object, "logger_name", "logger"); ok {
		record.Logger = logger
	}
	if message, ok := fieldValue(object.Get("message")); ok {
		record.Message = message
	}
	if stackTrace, ok := firstField(object, "stack_trace", "stackTrace"); ok {
		record.StackTrace = stackTrace
	}

	return record, nil
}

// firstField returns the value of the first key that is present, not null and not empty
func firstField(object *fastjson.Object, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := fieldValue(object.Get(key)); ok && value != "" {
			return value, true
		}
	}
	return "", false
}

// fieldValue renders a string value as is and any other non null value as JSON text
func fieldValue(value *fastjson.Value) (string, bool) {
	if value == nil {
		return "", false
	}
	switch value.Type() {
	case fastjson.TypeNull:
		return "", false
	case fastjson.TypeString:
		return string(value.GetStringBytes()), true
	default:
		return value.String(), true
	}
}

// Salvage extracts what it can from a corrupted line, it never fails.
//
// Lines that look like they carry an exception keep the whole raw text as stack
// trace so that no diagnostic content is lost.
func (p *Parser) Salvage(raw string) Record {
	record := Record{
		Timestamp: p.now(),
		Level:     LevelInfo,
		Thread:    RecoveredThread,
		Logger:    RecoveredLogger,
	}

	if match := timestampPattern.FindStringSubmatch(raw); match != nil {
		record.Timestamp = normalizeTimestamp(match[1])
	}
	if match := levelPattern.FindStringSubmatch(raw); match != nil {
		record.Level = match[1]
	}
	if match := loggerPattern.FindStringSubmatch(raw); match != nil {
		record.Logger = match[2]
	}

	match := closingMessagePattern.FindStringSubmatch(raw)
	if match == nil {
		match = innerMessagePattern.FindStringSubmatch(raw)
	}
	if match != nil {
		record.Message = match[1]
	} else {
		record.Message = placeholderPrefix + truncate(raw, placeholderMaxLength) + "..."
	}

	if looksLikeStackTrace(raw) {
		record.StackTrace = raw
	}

	return record
}

func looksLikeStackTrace(raw string) bool {
	for _, marker := range stackTraceMarkers {
		if strings.Contains(raw, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
