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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v2"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var Formats = []Format{FormatText, FormatJSON, FormatYAML}

func ParseFormat(format string) (Format, error) {
	for _, expected := range Formats {
		if string(expected) == strings.ToLower(format) {
			return expected, nil
		}
	}
	return "", fmt.Errorf("invalid output format %q expecting one of %v", format, Formats)
}

const invalidTime = "00-00 00:00:00"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatTime renders an ISO-8601 timestamp as "MM-DD HH:MM:SS" in local time,
// prefixed by the year when it isn't the current one.
func FormatTime(timestamp string, now time.Time) string {
	var parsed time.Time
	var err error
	for _, layout := range timeLayouts {
		parsed, err = time.ParseInLocation(layout, timestamp, time.Local)
		if err == nil {
			break
		}
	}
	if err != nil {
		return invalidTime
	}

	parsed = parsed.Local()
	formatted := parsed.Format("01-02 15:04:05")
	if parsed.Year() != now.Local().Year() {
		return fmt.Sprintf("%d-%s", parsed.Year(), formatted)
	}
	return formatted
}

// Printer writes records to a terminal or a pipe
type Printer struct {
	out    io.Writer
	format Format
	now    func() time.Time

	timeColor   *color.Color
	threadColor *color.Color
	loggerColor *color.Color
	stackColor  *color.Color
	levelColors map[string]*color.Color
	otherLevel  *color.Color
}

func NewPrinter(out io.Writer, format Format, colors bool) *Printer {
	p := &Printer{
		out:         out,
		format:      format,
		now:         time.Now,
		timeColor:   color.New(color.FgGreen),
		threadColor: color.New(color.FgMagenta),
		loggerColor: color.New(color.FgCyan),
		stackColor:  color.New(color.FgRed),
		levelColors: map[string]*color.Color{
			LevelError: color.New(color.FgRed, color.Bold),
			LevelWarn:  color.New(color.FgYellow, color.Bold),
			LevelDebug: color.New(color.FgBlue, color.Bold),
		},
		otherLevel: color.New(color.Bold),
	}
	for _, c := range p.colors() {
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) colors() []*color.Color {
	colors := []*color.Color{p.timeColor, p.threadColor, p.loggerColor, p.stackColor, p.otherLevel}
	for _, c := range p.levelColors {
		colors = append(colors, c)
	}
	return colors
}

func (p *Printer) Print(record Record) error {
	switch p.format {
	case FormatJSON:
		return json.NewEncoder(p.out).Encode(record)
	case FormatYAML:
		serialized, err := yaml.Marshal(record)
		if err != nil {
			return fmt.Errorf("unable to serialize log record: %w", err)
		}
		_, err = fmt.Fprintf(p.out, "---\n%s", serialized)
		return err
	default:
		_, err := io.WriteString(p.out, p.text(record))
		return err
	}
}

func (p *Printer) text(record Record) string {
	b := &strings.Builder{}

	b.WriteString(p.timeColor.Sprint(FormatTime(record.Timestamp, p.now())))

	levelColor, ok := p.levelColors[strings.ToUpper(record.Level)]
	if !ok {
		levelColor = p.otherLevel
	}
	fmt.Fprintf(b, " %s", levelColor.Sprintf("%-5s", record.Level))

	if record.Thread != "" {
		fmt.Fprintf(b, " %s", p.threadColor.Sprintf("[%s]", record.Thread))
	}
	if record.Logger != "" {
		fmt.Fprintf(b, " %s |", p.loggerColor.Sprint(record.Logger))
	}

	fmt.Fprintf(b, " %s\n", record.Message)

	if record.HasStackTrace() {
		for _, line := range strings.Split(strings.TrimRight(record.StackTrace, "\n"), "\n") {
			fmt.Fprintf(b, "    %s\n", p.stackColor.Sprint(line))
		}
	}

	return b.String()
}
