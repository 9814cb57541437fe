// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package converter

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/apache/skywalking-issueql/pkg/convert"
	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/timestamp"
)

var (
	_ Ranger    = (*Number)(nil)
	_ Ranger    = (*Duration)(nil)
	_ Ranger    = (*Date)(nil)
	_ Converter = (*Text)(nil)
)

// Number converts integers into sortable terms.
type Number struct{}

// Indexed returns the term of n.
func (Number) Indexed(n int64) string {
	return convert.Int64ToTerm(n)
}

// IndexedValues implements Converter.
func (c Number) IndexedValues(ctx context.Context, l literal.Literal) []string {
	lo, _, ok := c.IndexedRange(ctx, l)
	if !ok {
		return nil
	}
	return []string{lo}
}

// IndexedRange implements Ranger.
func (c Number) IndexedRange(_ context.Context, l literal.Literal) (string, string, bool) {
	if n, ok := l.Int(); ok {
		return c.Indexed(n), c.Indexed(n), true
	}
	s, ok := l.Str()
	if !ok {
		return "", "", false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return "", "", false
	}
	return c.Indexed(n), c.Indexed(n), true
}

var durationPart = regexp.MustCompile(`(\d+)\s*([wdhm])`)

// Duration converts time tracking estimates counted in working time.
// Integers are minutes. Strings look like "3w 2d 4h 30m".
type Duration struct {
	hoursPerDay int
	daysPerWeek int
}

// NewDuration returns a Duration converter. Zero values fall back to 8 hours a day and 5 days a week.
func NewDuration(hoursPerDay, daysPerWeek int) *Duration {
	if hoursPerDay <= 0 {
		hoursPerDay = 8
	}
	if daysPerWeek <= 0 {
		daysPerWeek = 5
	}
	return &Duration{hoursPerDay: hoursPerDay, daysPerWeek: daysPerWeek}
}

// Indexed returns the term of d, indexed in seconds.
func (c *Duration) Indexed(d time.Duration) string {
	return convert.Int64ToTerm(int64(d / time.Second))
}

// Parse returns the working time s stands for.
func (c *Duration) Parse(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Minute, n >= 0
	}
	parts := durationPart.FindAllStringSubmatch(s, -1)
	if len(parts) == 0 || strings.TrimSpace(durationPart.ReplaceAllString(s, "")) != "" {
		return 0, false
	}
	var total time.Duration
	for _, m := range parts {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		switch m[2] {
		case "w":
			total += time.Duration(n*c.daysPerWeek*c.hoursPerDay) * time.Hour
		case "d":
			total += time.Duration(n*c.hoursPerDay) * time.Hour
		default:
			d, err := str2duration.ParseDuration(m[1] + m[2])
			if err != nil {
				return 0, false
			}
			total += d
		}
	}
	return total, true
}

// IndexedValues implements Converter.
func (c *Duration) IndexedValues(ctx context.Context, l literal.Literal) []string {
	lo, _, ok := c.IndexedRange(ctx, l)
	if !ok {
		return nil
	}
	return []string{lo}
}

// IndexedRange implements Ranger.
func (c *Duration) IndexedRange(_ context.Context, l literal.Literal) (string, string, bool) {
	var (
		d  time.Duration
		ok bool
	)
	if n, isInt := l.Int(); isInt {
		d, ok = time.Duration(n)*time.Minute, n >= 0
	} else if s, isStr := l.Str(); isStr {
		d, ok = c.Parse(s)
	}
	if !ok {
		return "", "", false
	}
	return c.Indexed(d), c.Indexed(d), true
}

// Date converts dates. Integers are epoch milliseconds. Strings are parsed by timestamp.Parse
// in the configured location, relative to the clock of the context.
type Date struct {
	loc *time.Location
	l   *logger.Logger
}

// NewDate returns a Date converter.
func NewDate(loc *time.Location, l *logger.Logger) *Date {
	if loc == nil {
		loc = time.UTC
	}
	return &Date{loc: loc, l: defaultLogger(l, "date")}
}

// Indexed returns the term of t.
func (c *Date) Indexed(t time.Time) string {
	return convert.TimeToTerm(t)
}

// Range returns the period l covers.
func (c *Date) Range(ctx context.Context, l literal.Literal) (timestamp.TimeRange, bool) {
	if ms, ok := l.Int(); ok {
		return timestamp.NewTimeRange(convert.MillisToTime(ms), timestamp.PrecisionInstant), true
	}
	s, ok := l.Str()
	if !ok {
		return timestamp.TimeRange{}, false
	}
	r, err := timestamp.Parse(s, timestamp.GetClock(ctx).Now(), c.loc)
	if err != nil {
		c.l.Debug().Err(err).Msg("unparsable date literal")
		return timestamp.TimeRange{}, false
	}
	return r, true
}

// IndexedValues implements Converter. It yields the start of the period.
func (c *Date) IndexedValues(ctx context.Context, l literal.Literal) []string {
	r, ok := c.Range(ctx, l)
	if !ok {
		return nil
	}
	return []string{c.Indexed(r.Start)}
}

// IndexedRange implements Ranger.
func (c *Date) IndexedRange(ctx context.Context, l literal.Literal) (string, string, bool) {
	r, ok := c.Range(ctx, l)
	if !ok {
		return "", "", false
	}
	return c.Indexed(r.Start), c.Indexed(r.End), true
}

// Text converts keywords, lower-cased unless CaseSensitive.
type Text struct {
	CaseSensitive bool
}

// Indexed returns the term of s.
func (c Text) Indexed(s string) string {
	if c.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// IndexedValues implements Converter.
func (c Text) IndexedValues(_ context.Context, l literal.Literal) []string {
	if l.IsEmpty() {
		return nil
	}
	return []string{c.Indexed(l.Text())}
}
