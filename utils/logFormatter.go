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
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var levelColors = map[logrus.Level]color.Attribute{
	logrus.TraceLevel: color.FgWhite,
	logrus.DebugLevel: color.FgWhite,
	logrus.InfoLevel:  color.FgCyan,
	logrus.WarnLevel:  color.FgYellow,
	logrus.ErrorLevel: color.FgRed,
	logrus.FatalLevel: color.FgRed,
	logrus.PanicLevel: color.FgRed,
}

// TextFormatter renders one line per entry for a terminal:
//
//	2024-01-01T10:00:00Z WARN  stream/abcd: connection lost url=ws://localhost:8080/ws-log
//
// Scope fields are joined in front of the message, the other fields follow it sorted by name.
type TextFormatter struct {
	ScopeFields   []string
	DisableColors bool
}

func NewTextFormatter(scopeFields []string, disableColors bool) *TextFormatter {
	return &TextFormatter{
		ScopeFields:   scopeFields,
		DisableColors: disableColors,
	}
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var line strings.Builder

	line.WriteString(entry.Time.Format(time.RFC3339))
	line.WriteByte(' ')
	line.WriteString(f.level(entry.Level))
	line.WriteByte(' ')

	scope, rest := f.scope(entry.Data)
	if scope != "" {
		line.WriteString(scope)
		line.WriteString(": ")
	}
	line.WriteString(strings.TrimSpace(entry.Message))

	for _, key := range rest {
		line.WriteByte(' ')
		line.WriteString(key)
		line.WriteByte('=')
		line.WriteString(fieldText(entry.Data[key]))
	}
	line.WriteByte('\n')

	return []byte(line.String()), nil
}

// level is the upper case level name padded to a fixed width, "warning" is shortened to "WARN"
func (f *TextFormatter) level(level logrus.Level) string {
	name := strings.ToUpper(level.String())
	if level == logrus.WarnLevel {
		name = "WARN"
	}
	name = name + strings.Repeat(" ", 5-len(name))

	c := color.New(levelColors[level])
	if f.DisableColors {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c.Sprint(name)
}

// scope joins the present scope fields and returns the names of the remaining ones
func (f *TextFormatter) scope(data logrus.Fields) (string, []string) {
	parts := []string{}
	inScope := map[string]bool{}
	for _, key := range f.ScopeFields {
		inScope[key] = true
		if value, ok := data[key]; ok {
			parts = append(parts, fieldText(value))
		}
	}

	rest := []string{}
	for key := range data {
		if !inScope[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return strings.Join(parts, "/"), rest
}

func fieldText(value interface{}) string {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case error:
		text = v.Error()
	default:
		text = fmt.Sprint(v)
	}
	if text == "" || strings.ContainsAny(text, " \t\n\"=") {
		return strconv.Quote(text)
	}
	return text
}
