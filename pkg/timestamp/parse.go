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

package timestamp

import (
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xhit/go-str2duration/v2"
)

// ErrInvalidDate indicates a string that is neither a date nor a relative duration.
var ErrInvalidDate = errors.New("invalid date")

var (
	bareNumber = regexp.MustCompile(`^[+-]?\d+$`)
	layouts    = []struct {
		layout    string
		precision Precision
	}{
		{layout: "2006/01/02 15:04", precision: PrecisionMinute},
		{layout: "2006-01-02 15:04", precision: PrecisionMinute},
		{layout: "2006/01/02", precision: PrecisionDay},
		{layout: "2006-01-02", precision: PrecisionDay},
	}
)

// ParseDuration parses a relative duration such as "-4w", "6w 3d 1h" or "-90".
// Spaces are ignored and a bare number counts minutes. A day is 24 hours and a week 7 days.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.Join(strings.Fields(s), "")
	if bareNumber.MatchString(s) {
		s += "m"
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidDate, "%q: %v", s, err)
	}
	return d, nil
}

// Parse resolves s into the range it covers.
//
// "yyyy/MM/dd" and "yyyy-MM-dd" cover a day, and with a trailing " HH:mm" a minute.
// RFC 3339 timestamps are instants. Anything else is a duration relative to now
// covering the minute it lands in.
func Parse(s string, now time.Time, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l.layout, s, loc); err == nil {
			return NewTimeRange(t, l.precision), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewTimeRange(t.In(loc), PrecisionInstant), nil
	}
	d, err := ParseDuration(s)
	if err != nil {
		return TimeRange{}, err
	}
	return NewTimeRange(now.In(loc).Add(d), PrecisionMinute), nil
}
