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

// Package timestamp resolves the date literals of a query against a clock.
package timestamp

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the time source of relative dates and date functions.
type Clock interface {
	clock.Clock
}

// MockClock is a Clock that only moves when told to.
type MockClock interface {
	clock.Clock
	// Add moves the mock clock forward by d.
	Add(d time.Duration)
	// Set moves the mock clock to t.
	Set(t time.Time)
}

// NewClock returns the wall clock.
func NewClock() Clock {
	return clock.New()
}

// NewMockClock returns a mock clock set at t.
func NewMockClock(t time.Time) MockClock {
	c := clock.NewMock()
	c.Set(t)
	return c
}

type contextClockKey struct{}

var clockKey = contextClockKey{}

// GetClock returns the Clock carried by ctx, or the wall clock.
func GetClock(ctx context.Context) Clock {
	if c, ok := ctx.Value(clockKey).(Clock); ok {
		return c
	}
	return NewClock()
}

// SetClock returns a sub context carrying c.
func SetClock(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, clockKey, c)
}
