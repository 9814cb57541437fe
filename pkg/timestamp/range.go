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
	"time"
)

// Precision is the period a date literal implies.
type Precision int

// Precisions from the finest to the coarsest.
const (
	PrecisionInstant Precision = iota
	PrecisionMinute
	PrecisionHour
	PrecisionDay
	PrecisionWeek
	PrecisionMonth
	PrecisionYear
)

func (p Precision) String() string {
	switch p {
	case PrecisionInstant:
		return "instant"
	case PrecisionMinute:
		return "minute"
	case PrecisionHour:
		return "hour"
	case PrecisionDay:
		return "day"
	case PrecisionWeek:
		return "week"
	case PrecisionMonth:
		return "month"
	case PrecisionYear:
		return "year"
	default:
		return "unknown"
	}
}

// TimeRange is the closed interval [Start, End] a date literal covers, at millisecond resolution.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange returns the period of precision p around t.
func NewTimeRange(t time.Time, p Precision) TimeRange {
	start := StartOf(t, p)
	if p == PrecisionInstant {
		return TimeRange{Start: start, End: start}
	}
	return TimeRange{Start: start, End: Next(start, p, 1).Add(-time.Millisecond)}
}

// Contains reports whether t lies in the range, bounds included.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Overlapping reports whether the ranges intersect.
func (r TimeRange) Overlapping(other TimeRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

func (r TimeRange) String() string {
	return "[" + r.Start.Format(time.RFC3339Nano) + ", " + r.End.Format(time.RFC3339Nano) + "]"
}

// StartOf truncates t to the start of its period of precision p in t's location.
// Weeks start on Monday.
func StartOf(t time.Time, p Precision) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch p {
	case PrecisionMinute:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
	case PrecisionHour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case PrecisionDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PrecisionWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case PrecisionMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case PrecisionYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return t.Truncate(time.Millisecond)
	}
}

// Next moves t by n periods of precision p. Calendar periods follow the calendar.
func Next(t time.Time, p Precision, n int) time.Time {
	switch p {
	case PrecisionMinute:
		return t.Add(time.Duration(n) * time.Minute)
	case PrecisionHour:
		return t.Add(time.Duration(n) * time.Hour)
	case PrecisionDay:
		return t.AddDate(0, 0, n)
	case PrecisionWeek:
		return t.AddDate(0, 0, 7*n)
	case PrecisionMonth:
		return t.AddDate(0, n, 0)
	case PrecisionYear:
		return t.AddDate(n, 0, 0)
	default:
		return t.Add(time.Duration(n) * time.Millisecond)
	}
}
