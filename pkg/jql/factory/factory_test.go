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

package factory

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/inverted"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/converter"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
)

type fixture struct {
	store     *inverted.MemStore
	compilers map[string]ClauseCompiler
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 10, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	dir, err := resolve.NewMemory(resolve.Dataset{
		Users: []resolve.User{{Key: "admin", Name: "Administrator"}, {Key: "fred", Name: "Fred"}},
		Constants: []resolve.Constant{
			{Kind: resolve.KindPriority, ID: "1", Name: "Blocker", Sequence: 1},
			{Kind: resolve.KindPriority, ID: "2", Name: "Critical", Sequence: 2},
			{Kind: resolve.KindPriority, ID: "3", Name: "Major", Sequence: 3},
		},
	})
	require.NoError(t, err)
	store := inverted.NewMemStore(inverted.MemStoreOpts{})
	b := document.NewBuilder(nil)
	for _, is := range []document.Issue{
		{ID: 1, Key: "HSP-1", Assignee: "fred", Priority: "1", Labels: []string{"ops"}, Votes: 3, Summary: "Disk is full", Created: day(1)},
		{ID: 2, Key: "HSP-2", Assignee: "admin", Priority: "2", Labels: []string{"db", "ops"}, Votes: 5, Summary: "Database down", Created: day(2)},
		{ID: 3, Key: "HSP-3", Priority: "3", Created: day(3)},
		{ID: 4, Key: "HSP-4", Votes: 1, Created: day(4), Hidden: []string{document.FieldAssignee, document.FieldLabels}},
	} {
		require.NoError(t, store.Insert(b.Issue(is)))
	}
	resolver := literal.NewResolver(nil)
	priority := converter.NewConstant(dir, resolve.KindPriority, nil)
	return &fixture{
		store: store,
		compilers: map[string]ClauseCompiler{
			"assignee": NewGeneric(document.FieldAssignee, resolver, converter.NewUser(dir, nil), Equality(document.EmptySentinel)),
			"labels":   NewGeneric(document.FieldLabels, resolver, converter.Text{CaseSensitive: true}, Equality("")),
			"votes":    NewGeneric(document.FieldVotes, resolver, converter.Number{}, Equality(""), Relational()),
			"priority": NewGeneric(document.FieldPriority, resolver, priority,
				Equality(document.EmptySentinel), MutatedRelational(priority)),
			"created": NewGeneric(document.FieldCreated, resolver, converter.NewDate(time.UTC, nil), RangeEquality(), Relational()),
			"summary": NewGeneric(document.FieldSummary, resolver, nil, Like(index.AnalyzerStandard)).WithBoost(9),
		},
	}
}

func (f *fixture) search(t *testing.T, tc *clause.Terminal) []string {
	r, err := f.compilers[tc.Field].Compile(context.Background(), Env{}, tc)
	require.NoError(t, err)
	var ids []string
	require.NoError(t, f.store.Collect(context.Background(), r.Resolve(), func(doc uint64) {
		v, _, err := f.store.StoredField(doc, document.FieldIssueID)
		require.NoError(t, err)
		ids = append(ids, v)
	}))
	sort.Strings(ids)
	return ids
}

func TestGenericCompile(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		clause *clause.Terminal
		want   []string
	}{
		{clause: clause.NewTerminal("assignee", clause.OpEquals, clause.Str("Fred")), want: []string{"1"}},
		{clause: clause.NewTerminal("assignee", clause.OpNotEquals, clause.Str("fred")), want: []string{"2"}},
		{clause: clause.NewTerminal("assignee", clause.OpIn, clause.Strs("fred", "admin")), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("assignee", clause.OpIn, clause.List(clause.Str("fred"), clause.Empty{})), want: []string{"1", "3"}},
		{clause: clause.NewTerminal("assignee", clause.OpNotIn, clause.List(clause.Str("fred"), clause.Empty{})), want: []string{"2"}},
		{clause: clause.NewTerminal("assignee", clause.OpIs, clause.Empty{}), want: []string{"3"}},
		{clause: clause.NewTerminal("assignee", clause.OpIsNot, clause.Empty{}), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("assignee", clause.OpEquals, clause.Str("nobody"))},
		{clause: clause.NewTerminal("assignee", clause.OpNotEquals, clause.Str("nobody")), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("assignee", clause.OpGreaterThan, clause.Str("fred"))},
		{clause: clause.NewTerminal("labels", clause.OpEquals, clause.Str("ops")), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("labels", clause.OpNotEquals, clause.Str("ops"))},
		{clause: clause.NewTerminal("labels", clause.OpNotEquals, clause.Str("db")), want: []string{"1"}},
		{clause: clause.NewTerminal("labels", clause.OpIs, clause.Empty{}), want: []string{"3"}},
		{clause: clause.NewTerminal("labels", clause.OpIsNot, clause.Empty{}), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("votes", clause.OpGreaterThan, clause.Int(3)), want: []string{"2"}},
		{clause: clause.NewTerminal("votes", clause.OpGreaterThanEquals, clause.Int(3)), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("votes", clause.OpLessThan, clause.Str("3")), want: []string{"3", "4"}},
		{clause: clause.NewTerminal("votes", clause.OpLessThanEquals, clause.Int(1)), want: []string{"3", "4"}},
		{clause: clause.NewTerminal("votes", clause.OpIn, clause.List(clause.Int(3), clause.Int(5))), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("votes", clause.OpGreaterThan, clause.Str("many"))},
		{clause: clause.NewTerminal("priority", clause.OpGreaterThan, clause.Str("Critical")), want: []string{"1"}},
		{clause: clause.NewTerminal("priority", clause.OpGreaterThanEquals, clause.Str("Critical")), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("priority", clause.OpLessThan, clause.Str("Critical")), want: []string{"3"}},
		{clause: clause.NewTerminal("priority", clause.OpLessThanEquals, clause.Str("2")), want: []string{"2", "3"}},
		{clause: clause.NewTerminal("priority", clause.OpGreaterThan, clause.Str("Blocker"))},
		{clause: clause.NewTerminal("priority", clause.OpIs, clause.Empty{}), want: []string{"4"}},
		{clause: clause.NewTerminal("created", clause.OpEquals, clause.Str("2024-01-02")), want: []string{"2"}},
		{clause: clause.NewTerminal("created", clause.OpGreaterThan, clause.Str("2024-01-02")), want: []string{"3", "4"}},
		{clause: clause.NewTerminal("created", clause.OpGreaterThanEquals, clause.Str("2024-01-02")), want: []string{"2", "3", "4"}},
		{clause: clause.NewTerminal("created", clause.OpLessThan, clause.Str("2024/01/02")), want: []string{"1"}},
		{clause: clause.NewTerminal("created", clause.OpLessThanEquals, clause.Str("2024-01-02")), want: []string{"1", "2"}},
		{clause: clause.NewTerminal("created", clause.OpIn, clause.Strs("2024-01-01", "2024-01-04")), want: []string{"1", "4"}},
		{clause: clause.NewTerminal("summary", clause.OpLike, clause.Str("FULL disk")), want: []string{"1"}},
		{clause: clause.NewTerminal("summary", clause.OpLike, clause.Str("data*")), want: []string{"2"}},
		{clause: clause.NewTerminal("summary", clause.OpNotLike, clause.Str("full")), want: []string{"2"}},
		{clause: clause.NewTerminal("summary", clause.OpLike, clause.Str("!!!"))},
		{clause: clause.NewTerminal("summary", clause.OpIs, clause.Empty{}), want: []string{"3", "4"}},
		{clause: clause.NewTerminal("summary", clause.OpEquals, clause.Str("full"))},
	}
	for _, tt := range tests {
		t.Run(tt.clause.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, f.search(t, tt.clause))
		})
	}
}

func TestSummaryBoost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.compilers["summary"].Compile(ctx, Env{}, clause.NewTerminal("summary", clause.OpLike, clause.Str("disk")))
	require.NoError(t, err)
	b, ok := r.Query.(*index.BooleanQuery)
	require.True(t, ok)
	assert.Equal(t, 9.0, b.Boost)

	r, err = f.compilers["summary"].Compile(ctx, Env{}, clause.NewTerminal("summary", clause.OpNotLike, clause.Str("disk")))
	require.NoError(t, err)
	assert.True(t, r.MustNegate)
	_, ok = r.Query.(*index.MatchQuery)
	assert.True(t, ok)

	r, err = f.compilers["labels"].Compile(ctx, Env{}, clause.NewTerminal("labels", clause.OpEquals, clause.Str("ops")))
	require.NoError(t, err)
	_, ok = r.Query.(*index.TermQuery)
	assert.True(t, ok)
}

func TestResultResolve(t *testing.T) {
	term := index.NewTermQuery("status", "1")
	presence := NotEmpty("status", "")
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{name: "positive", result: Result{Query: term}, want: term.String()},
		{name: "false", result: False(), want: "matchNone"},
		{
			name:   "negated without presence",
			result: Result{Query: term, MustNegate: true},
			want:   `{"mustNot":[{"term":{"field":"status","value":"1"}}]}`,
		},
		{name: "negated false without presence", result: Result{Query: index.NewMatchNoneQuery(), MustNegate: true}, want: "matchAll"},
		{
			name:   "negated with presence",
			result: Result{Query: term, MustNegate: true, Presence: presence},
			want: `{"must":[{"must":[{"term":{"field":"nonemptyfieldids","value":"status"}},` +
				`{"term":{"field":"visiblefieldids","value":"status"}}]}],"mustNot":[{"term":{"field":"status","value":"1"}}]}`,
		},
		{name: "negated false with presence", result: Result{Query: index.NewMatchNoneQuery(), MustNegate: true, Presence: presence}, want: presence.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Resolve().String())
		})
	}
	assert.True(t, False().IsFalse())
	assert.False(t, Result{Query: term, MustNegate: true, Presence: presence}.IsFalse())
	assert.True(t, Result{Query: term, Presence: presence}.NeedsVisibility())
}

func TestHandlesOperator(t *testing.T) {
	tests := []struct {
		strategy Strategy
		accepted []clause.Operator
	}{
		{strategy: Equality(""), accepted: []clause.Operator{clause.OpEquals, clause.OpNotEquals, clause.OpIn, clause.OpNotIn, clause.OpIs, clause.OpIsNot}},
		{strategy: SecurityLevel("-1"), accepted: []clause.Operator{clause.OpEquals, clause.OpNotEquals, clause.OpIn, clause.OpNotIn, clause.OpIs, clause.OpIsNot}},
		{strategy: Relational(), accepted: []clause.Operator{clause.OpGreaterThan, clause.OpGreaterThanEquals, clause.OpLessThan, clause.OpLessThanEquals}},
		{strategy: Like(index.AnalyzerStandard), accepted: []clause.Operator{clause.OpLike, clause.OpNotLike, clause.OpIs, clause.OpIsNot}},
	}
	all := []clause.Operator{
		clause.OpEquals, clause.OpNotEquals, clause.OpLike, clause.OpNotLike,
		clause.OpGreaterThan, clause.OpGreaterThanEquals, clause.OpLessThan, clause.OpLessThanEquals,
		clause.OpIn, clause.OpNotIn, clause.OpIs, clause.OpIsNot,
		clause.OpWas, clause.OpWasNot, clause.OpWasIn, clause.OpWasNotIn, clause.OpChanged,
	}
	for _, tt := range tests {
		t.Run(tt.strategy.Kind.String(), func(t *testing.T) {
			var got []clause.Operator
			for _, op := range all {
				if tt.strategy.HandlesOperator(op) {
					got = append(got, op)
				}
			}
			assert.ElementsMatch(t, tt.accepted, got)
		})
	}
}

func TestSecurityLevelNotInWithEmpty(t *testing.T) {
	values := []Value{{Literal: literal.String("Internal"), Terms: []string{"10000"}}, {Literal: literal.Empty()}}
	r := SecurityLevel("-1").ForMultipleValues(context.Background(), document.FieldSecurityLevel, clause.OpNotIn, values)
	assert.False(t, r.MustNegate)
	b, ok := r.Query.(*index.BooleanQuery)
	require.True(t, ok)
	assert.Len(t, b.Should, 2)

	r = Equality("-1").ForMultipleValues(context.Background(), document.FieldSecurityLevel, clause.OpNotIn, values)
	assert.True(t, r.MustNegate)
	assert.True(t, r.NeedsVisibility())
}

func TestAny(t *testing.T) {
	f := newFixture(t)
	text := Any(f.compilers["summary"], f.compilers["labels"])
	r, err := text.Compile(context.Background(), Env{}, clause.NewTerminal("text", clause.OpLike, clause.Str("disk")))
	require.NoError(t, err)
	assert.False(t, r.MustNegate)
	_, ok := r.Query.(*index.BooleanQuery)
	assert.True(t, ok)

	r, err = text.Compile(context.Background(), Env{}, clause.NewTerminal("text", clause.OpGreaterThan, clause.Str("disk")))
	require.NoError(t, err)
	assert.True(t, r.IsFalse())
}
