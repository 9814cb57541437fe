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

// Package testcases implements common helpers for testing index stores.
package testcases

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/skywalking-issueql/pkg/index"
)

// Fields of the fixture documents.
const (
	FieldID       = "issue_id"
	FieldStatus   = "status"
	FieldLabels   = "labels"
	FieldSummary  = "summary"
	FieldEstimate = "estimate"
)

// Documents returns the fixture. Document i stores issue_id "i+100".
func Documents() []index.Document {
	rows := []struct {
		status   string
		summary  string
		estimate string
		labels   []string
	}{
		{status: "1", labels: []string{"db", "urgent"}, summary: "Disk is full", estimate: "a"},
		{status: "1", labels: []string{"db"}, summary: "Slow query on orders", estimate: "c"},
		{status: "3", labels: []string{"ui"}, summary: "Button misaligned"},
		{status: "5", summary: "Disk quota exceeded", estimate: "e"},
		{status: "6", labels: []string{"urgent"}, summary: "Login page is slow", estimate: "b"},
	}
	docs := make([]index.Document, 0, len(rows))
	for i, r := range rows {
		d := index.Document{}
		d.AddStored(FieldID, strconv.Itoa(i+100))
		d.Add(FieldStatus, r.status)
		if len(r.labels) > 0 {
			d.Add(FieldLabels, r.labels...)
		}
		d.AddText(FieldSummary, r.summary, index.AnalyzerStandard)
		if r.estimate != "" {
			d.Add(FieldEstimate, r.estimate)
		}
		docs = append(docs, d)
	}
	return docs
}

// Collect returns the stored issue ids matching q.
func Collect(t *testing.T, s index.Searcher, q index.Query) []string {
	var docs []uint64
	require.NoError(t, s.Collect(context.Background(), q, func(doc uint64) {
		docs = append(docs, doc)
	}))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		v, ok, err := s.StoredField(d, FieldID)
		require.NoError(t, err)
		require.True(t, ok)
		ids = append(ids, v)
	}
	return ids
}

// RunQueries executes the query cases against a store loaded with Documents.
func RunQueries(t *testing.T, s index.Searcher) {
	term := index.NewTermQuery
	tests := []struct {
		query index.Query
		name  string
		want  []string
	}{
		{name: "term", query: term(FieldStatus, "1"), want: []string{"100", "101"}},
		{name: "multi valued term", query: term(FieldLabels, "urgent"), want: []string{"100", "104"}},
		{name: "unknown field", query: term("missing", "1"), want: []string{}},
		{name: "closed range", query: index.NewTermRangeQuery(FieldEstimate, "b", "c", true, true), want: []string{"101", "104"}},
		{name: "open range", query: index.NewTermRangeQuery(FieldEstimate, "b", "", false, false), want: []string{"101", "103"}},
		{name: "lower open range", query: index.NewTermRangeQuery(FieldEstimate, "", "b", false, false), want: []string{"100"}},
		{name: "prefix", query: index.NewPrefixQuery(FieldLabels, "u"), want: []string{"100", "102", "104"}},
		{name: "match", query: index.NewMatchQuery(FieldSummary, "DISK full", index.AnalyzerStandard), want: []string{"100"}},
		{name: "match nothing analyzed", query: index.NewMatchQuery(FieldSummary, "is", index.AnalyzerStandard), want: []string{}},
		{name: "match all", query: index.NewMatchAllQuery(), want: []string{"100", "101", "102", "103", "104"}},
		{name: "match none", query: index.NewMatchNoneQuery(), want: []string{}},
		{name: "empty boolean", query: index.NewBooleanQuery(), want: []string{}},
		{
			name:  "must and must not",
			query: index.NewBooleanQuery().AddMust(term(FieldLabels, "db")).AddMustNot(term(FieldLabels, "urgent")),
			want:  []string{"101"},
		},
		{
			name:  "only must not",
			query: index.NewBooleanQuery().AddMustNot(term(FieldStatus, "1")),
			want:  []string{"102", "103", "104"},
		},
		{
			name:  "should",
			query: index.NewBooleanQuery().AddShould(term(FieldStatus, "3"), term(FieldStatus, "5")),
			want:  []string{"102", "103"},
		},
		{
			name:  "min should",
			query: index.NewBooleanQuery().AddShould(term(FieldLabels, "db"), term(FieldLabels, "urgent"), term(FieldStatus, "6")).SetMinShould(2),
			want:  []string{"100", "104"},
		},
		{
			name:  "should ignored next to must",
			query: index.NewBooleanQuery().AddMust(term(FieldStatus, "1")).AddShould(term(FieldLabels, "ui")),
			want:  []string{"100", "101"},
		},
		{
			name:  "doc id set",
			query: index.NewDocIDSetQuery(FieldID, []string{"104", "102", "999"}),
			want:  []string{"102", "104"},
		},
		{name: "empty doc id set", query: index.NewDocIDSetQuery(FieldID, nil), want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, Collect(t, s, tt.query))
		})
	}
}

// RunTerms checks the term dictionary of the labels field.
func RunTerms(t *testing.T, s index.Searcher) {
	iter, err := s.Terms(FieldLabels)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, iter.Close())
	}()
	got := map[string][]uint64{}
	var order []string
	for iter.Next() {
		list, err := iter.Postings()
		require.NoError(t, err)
		order = append(order, iter.Term())
		got[iter.Term()] = list.ToSlice()
	}
	assert.Equal(t, []string{"db", "ui", "urgent"}, order)
	assert.Equal(t, []uint64{0, 1}, got["db"])
	assert.Equal(t, []uint64{2}, got["ui"])
	assert.Equal(t, []uint64{0, 4}, got["urgent"])

	empty, err := s.Terms("missing")
	require.NoError(t, err)
	assert.False(t, empty.Next())
	require.NoError(t, empty.Close())
}

// RunStoredFields checks stored field loading.
func RunStoredFields(t *testing.T, s index.Searcher) {
	assert.Equal(t, uint64(5), s.MaxDoc())
	assert.Equal(t, uint64(5), s.NumDocs())
	v, ok, err := s.StoredField(3, FieldID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "103", v)
	v, ok, err = s.StoredField(3, FieldSummary)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Disk quota exceeded", v)
	_, ok, err = s.StoredField(3, FieldStatus)
	require.NoError(t, err)
	assert.False(t, ok)
}

// RunTooManyClauses checks the clause limit. The store has to be configured with a limit of 4.
func RunTooManyClauses(t *testing.T, s index.Searcher) {
	q := index.NewBooleanQuery()
	for i := 0; i < 5; i++ {
		q.AddShould(index.NewTermQuery(FieldStatus, strconv.Itoa(i)))
	}
	err := s.Collect(context.Background(), q, func(uint64) {})
	assert.ErrorIs(t, err, index.ErrTooManyClauses)
}
