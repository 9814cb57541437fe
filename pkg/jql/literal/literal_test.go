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

package literal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/timestamp"
)

// 2024-03-14 10:30 UTC is a Thursday.
var at = time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC)

func newResolver(t *testing.T) *Resolver {
	dir, err := resolve.NewMemory(resolve.Dataset{
		Users: []resolve.User{
			{Key: "admin", Name: "Admin", Groups: []string{"developers"}},
			{Key: "fred", Name: "Fred", Groups: []string{"developers"}},
		},
		Projects: []resolve.Project{{ID: 10, Key: "HSP"}, {ID: 11, Key: "MKY"}},
		Versions: []resolve.Version{
			{ID: 1, ProjectID: 10, Name: "1.0", Released: true, Sequence: 1},
			{ID: 2, ProjectID: 10, Name: "1.1", Sequence: 2},
			{ID: 3, ProjectID: 11, Name: "2.0", Released: true, Sequence: 1},
		},
	})
	require.NoError(t, err)
	return NewResolver(nil, Functions(dir, time.UTC, nil)...)
}

func TestValues(t *testing.T) {
	r := newResolver(t)
	ctx := timestamp.SetClock(context.Background(), timestamp.NewMockClock(at))
	cc := jql.CreationContext{User: "fred"}
	tests := []struct {
		name    string
		operand clause.Operand
		want    []Literal
		ok      bool
	}{
		{name: "string", operand: clause.Str("Open"), want: []Literal{String("Open")}, ok: true},
		{name: "int", operand: clause.Int(12), want: []Literal{Int(12)}, ok: true},
		{name: "empty", operand: clause.Empty{}, want: []Literal{Empty()}, ok: true},
		{
			name:    "list keeps positions",
			operand: clause.List(clause.Str("a"), clause.Func("bogus"), clause.Empty{}, clause.Int(3)),
			want:    []Literal{String("a"), Empty(), Empty(), Int(3)},
			ok:      true,
		},
		{
			name:    "list flattens functions",
			operand: clause.List(clause.Str("bob"), clause.Func("membersOf", "developers")),
			want:    []Literal{String("bob"), String("admin"), String("fred")},
			ok:      true,
		},
		{name: "current user", operand: clause.Func("currentuser"), want: []Literal{String("fred")}, ok: true},
		{name: "unknown function", operand: clause.Func("bogus")},
		{name: "now", operand: clause.Func("now"), want: []Literal{Int(at.UnixMilli())}, ok: true},
		{name: "bad arguments", operand: clause.Func("now", "1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Values(ctx, cc, tt.operand)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValuesAnonymousCurrentUser(t *testing.T) {
	got, ok := newResolver(t).Values(context.Background(), jql.CreationContext{}, clause.Func(FuncCurrentUser))
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestValuesAreIdempotent(t *testing.T) {
	r := newResolver(t)
	ctx := timestamp.SetClock(context.Background(), timestamp.NewMockClock(at))
	cc := jql.CreationContext{User: "admin"}
	operands := []clause.Operand{
		clause.List(clause.Func("bogus", "x"), clause.Str("v"), clause.Func(FuncStartOfWeek, "nonsense")),
		clause.Func(FuncEndOfMonth, "-1"),
		clause.Empty{},
	}
	for _, o := range operands {
		first, ok1 := r.Values(ctx, cc, o)
		second, ok2 := r.Values(ctx, cc, o)
		assert.Equal(t, ok1, ok2, o.String())
		assert.Equal(t, first, second, o.String())
	}
}

func TestPeriodFunctions(t *testing.T) {
	r := newResolver(t)
	ctx := timestamp.SetClock(context.Background(), timestamp.NewMockClock(at))
	millis := func(tm time.Time) []Literal { return []Literal{Int(tm.UnixMilli())} }
	tests := []struct {
		fn   clause.Function
		want []Literal
	}{
		{fn: clause.Func(FuncStartOfDay), want: millis(time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC))},
		{fn: clause.Func(FuncEndOfDay), want: millis(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond))},
		{fn: clause.Func(FuncStartOfDay, "-1"), want: millis(time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC))},
		{fn: clause.Func(FuncStartOfWeek), want: millis(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC))},
		{fn: clause.Func(FuncEndOfWeek, "+1"), want: millis(time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond))},
		{fn: clause.Func(FuncStartOfMonth, "2d"), want: millis(time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC))},
		{fn: clause.Func(FuncEndOfMonth), want: millis(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond))},
		{fn: clause.Func(FuncStartOfYear, "-1"), want: millis(time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC))},
		{fn: clause.Func(FuncEndOfYear), want: millis(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond))},
		{fn: clause.Func(FuncStartOfDay, "x")},
	}
	for _, tt := range tests {
		t.Run(tt.fn.String(), func(t *testing.T) {
			got, _ := r.Values(ctx, jql.CreationContext{}, tt.fn)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionFunctions(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()
	got, ok := r.Values(ctx, jql.CreationContext{}, clause.Func(FuncReleasedVersions))
	require.True(t, ok)
	assert.Equal(t, []Literal{Int(1), Int(3)}, got)
	got, ok = r.Values(ctx, jql.CreationContext{}, clause.Func(FuncReleasedVersions, "mky"))
	require.True(t, ok)
	assert.Equal(t, []Literal{Int(3)}, got)
	got, ok = r.Values(ctx, jql.CreationContext{}, clause.Func(FuncUnreleasedVersions, "10"))
	require.True(t, ok)
	assert.Equal(t, []Literal{Int(2)}, got)
	_, ok = r.Values(ctx, jql.CreationContext{}, clause.Func(FuncUnreleasedVersions, "NOPE"))
	assert.False(t, ok)
}

func TestLiteral(t *testing.T) {
	assert.True(t, Empty().IsEmpty())
	assert.True(t, Literal{}.IsEmpty())
	s, ok := String("x").Str()
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = String("x").Int()
	assert.False(t, ok)
	assert.Equal(t, "42", Int(42).Text())
	assert.Equal(t, "EMPTY", Empty().String())
	assert.True(t, HasEmpty([]Literal{Int(1), Empty()}))
	assert.False(t, HasEmpty([]Literal{Int(1)}))
}
