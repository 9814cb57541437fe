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

package index

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apache/skywalking-issueql/pkg/convert"
)

const (
	minInf = "-inf"
	maxInf = "+inf"
)

// Query is a node of the backend-neutral query tree.
// Every node renders itself as JSON for explain output.
type Query interface {
	fmt.Stringer
	json.Marshaler
}

var (
	_ Query = (*TermQuery)(nil)
	_ Query = (*TermRangeQuery)(nil)
	_ Query = (*PrefixQuery)(nil)
	_ Query = (*MatchQuery)(nil)
	_ Query = (*BooleanQuery)(nil)
	_ Query = (*MatchAllQuery)(nil)
	_ Query = (*MatchNoneQuery)(nil)
	_ Query = (*DocIDSetQuery)(nil)
)

// TermQuery matches documents holding Term in Field.
type TermQuery struct {
	Field string
	Term  string
}

// NewTermQuery returns a TermQuery.
func NewTermQuery(field, term string) *TermQuery {
	return &TermQuery{Field: field, Term: term}
}

// MarshalJSON implements json.Marshaler.
func (t *TermQuery) MarshalJSON() ([]byte, error) {
	inner := make(map[string]interface{}, 2)
	inner["field"] = t.Field
	inner["value"] = t.Term
	data := make(map[string]interface{}, 1)
	data["term"] = inner
	return json.Marshal(data)
}

func (t *TermQuery) String() string {
	return convert.JSONToString(t)
}

// TermRangeQuery matches documents holding a term of Field between Min and Max.
// An empty bound is open.
type TermRangeQuery struct {
	Field        string
	Min          string
	Max          string
	MinInclusive bool
	MaxInclusive bool
}

// NewTermRangeQuery returns a TermRangeQuery.
func NewTermRangeQuery(field, minVal, maxVal string, minInclusive, maxInclusive bool) *TermRangeQuery {
	return &TermRangeQuery{
		Field:        field,
		Min:          minVal,
		Max:          maxVal,
		MinInclusive: minInclusive,
		MaxInclusive: maxInclusive,
	}
}

// Opts returns the range as scan options.
func (t *TermRangeQuery) Opts() RangeOpts {
	return RangeOpts{
		Lower:         t.Min,
		Upper:         t.Max,
		IncludesLower: t.MinInclusive,
		IncludesUpper: t.MaxInclusive,
	}
}

// MarshalJSON implements json.Marshaler.
func (t *TermRangeQuery) MarshalJSON() ([]byte, error) {
	var builder strings.Builder
	if t.MinInclusive && t.Min != "" {
		builder.WriteString("[")
	} else {
		builder.WriteString("(")
	}
	if t.Min == "" {
		builder.WriteString(minInf)
	} else {
		builder.WriteString(t.Min)
	}
	builder.WriteString(" ")
	if t.Max == "" {
		builder.WriteString(maxInf)
	} else {
		builder.WriteString(t.Max)
	}
	if t.MaxInclusive && t.Max != "" {
		builder.WriteString("]")
	} else {
		builder.WriteString(")")
	}
	inner := make(map[string]interface{}, 2)
	inner["field"] = t.Field
	inner["range"] = builder.String()
	data := make(map[string]interface{}, 1)
	data["termRange"] = inner
	return json.Marshal(data)
}

func (t *TermRangeQuery) String() string {
	return convert.JSONToString(t)
}

// PrefixQuery matches documents holding a term of Field starting with Prefix.
type PrefixQuery struct {
	Field  string
	Prefix string
}

// NewPrefixQuery returns a PrefixQuery.
func NewPrefixQuery(field, prefix string) *PrefixQuery {
	return &PrefixQuery{Field: field, Prefix: prefix}
}

// MarshalJSON implements json.Marshaler.
func (p *PrefixQuery) MarshalJSON() ([]byte, error) {
	inner := make(map[string]interface{}, 2)
	inner["field"] = p.Field
	inner["value"] = p.Prefix
	data := make(map[string]interface{}, 1)
	data["prefix"] = inner
	return json.Marshal(data)
}

func (p *PrefixQuery) String() string {
	return convert.JSONToString(p)
}

// MatchQuery analyzes Text with Analyzer and matches documents holding every produced term.
type MatchQuery struct {
	Field    string
	Text     string
	Analyzer string
}

// NewMatchQuery returns a MatchQuery.
func NewMatchQuery(field, text, analyzer string) *MatchQuery {
	return &MatchQuery{Field: field, Text: text, Analyzer: analyzer}
}

// MarshalJSON implements json.Marshaler.
func (m *MatchQuery) MarshalJSON() ([]byte, error) {
	inner := make(map[string]interface{}, 3)
	inner["field"] = m.Field
	inner["value"] = m.Text
	inner["analyzer"] = m.Analyzer
	data := make(map[string]interface{}, 1)
	data["match"] = inner
	return json.Marshal(data)
}

func (m *MatchQuery) String() string {
	return convert.JSONToString(m)
}

// BooleanQuery combines sub queries.
//
// A document matches when it matches every Must clause, at least MinShould Should clauses
// and none of the MustNot clauses. Without Must clauses at least one Should clause has to match.
// A query holding only MustNot clauses matches every document not excluded.
// A query without clauses matches nothing.
type BooleanQuery struct {
	Must      []Query
	Should    []Query
	MustNot   []Query
	MinShould int
	Boost     float64
}

// NewBooleanQuery returns an empty BooleanQuery.
func NewBooleanQuery() *BooleanQuery {
	return &BooleanQuery{}
}

// AddMust appends required clauses.
func (b *BooleanQuery) AddMust(queries ...Query) *BooleanQuery {
	b.Must = append(b.Must, queries...)
	return b
}

// AddShould appends optional clauses.
func (b *BooleanQuery) AddShould(queries ...Query) *BooleanQuery {
	b.Should = append(b.Should, queries...)
	return b
}

// AddMustNot appends prohibited clauses.
func (b *BooleanQuery) AddMustNot(queries ...Query) *BooleanQuery {
	b.MustNot = append(b.MustNot, queries...)
	return b
}

// SetMinShould sets how many Should clauses have to match.
func (b *BooleanQuery) SetMinShould(n int) *BooleanQuery {
	b.MinShould = n
	return b
}

// SetBoost sets the relevance multiplier.
func (b *BooleanQuery) SetBoost(boost float64) *BooleanQuery {
	b.Boost = boost
	return b
}

// IsEmpty reports whether the query has no clauses.
func (b *BooleanQuery) IsEmpty() bool {
	return len(b.Must) == 0 && len(b.Should) == 0 && len(b.MustNot) == 0
}

// EffectiveMinShould returns how many Should clauses a document has to match.
func (b *BooleanQuery) EffectiveMinShould() int {
	if b.MinShould > 0 {
		return b.MinShould
	}
	if len(b.Must) == 0 && len(b.Should) > 0 {
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler.
func (b *BooleanQuery) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, 5)
	if len(b.Must) > 0 {
		data["must"] = b.Must
	}
	if len(b.Should) > 0 {
		data["should"] = b.Should
	}
	if len(b.MustNot) > 0 {
		data["mustNot"] = b.MustNot
	}
	if b.MinShould > 0 {
		data["minShould"] = b.MinShould
	}
	if b.Boost > 0 {
		data["boost"] = b.Boost
	}
	return json.Marshal(data)
}

func (b *BooleanQuery) String() string {
	return convert.JSONToString(b)
}

// MatchAllQuery matches every document.
type MatchAllQuery struct{}

// NewMatchAllQuery returns a MatchAllQuery.
func NewMatchAllQuery() *MatchAllQuery {
	return &MatchAllQuery{}
}

// MarshalJSON implements json.Marshaler.
func (m *MatchAllQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal("matchAll")
}

func (m *MatchAllQuery) String() string {
	return "matchAll"
}

// MatchNoneQuery matches nothing. Clauses that can't apply compile to it.
type MatchNoneQuery struct{}

// NewMatchNoneQuery returns a MatchNoneQuery.
func NewMatchNoneQuery() *MatchNoneQuery {
	return &MatchNoneQuery{}
}

// MarshalJSON implements json.Marshaler.
func (m *MatchNoneQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal("matchNone")
}

func (m *MatchNoneQuery) String() string {
	return "matchNone"
}

// IsMatchNone reports whether q is statically false.
func IsMatchNone(q Query) bool {
	_, ok := q.(*MatchNoneQuery)
	return ok
}

// DocIDSetQuery is a constant score filter over a precomputed set of ids stored in Field.
type DocIDSetQuery struct {
	Field string
	IDs   []string
}

// NewDocIDSetQuery returns a DocIDSetQuery.
func NewDocIDSetQuery(field string, ids []string) *DocIDSetQuery {
	return &DocIDSetQuery{Field: field, IDs: ids}
}

// MarshalJSON implements json.Marshaler.
func (d *DocIDSetQuery) MarshalJSON() ([]byte, error) {
	inner := make(map[string]interface{}, 2)
	inner["field"] = d.Field
	ids := d.IDs
	if ids == nil {
		ids = []string{}
	}
	inner["ids"] = ids
	data := make(map[string]interface{}, 1)
	data["docIDSet"] = inner
	return json.Marshal(data)
}

func (d *DocIDSetQuery) String() string {
	return convert.JSONToString(d)
}

// CountClauses returns the number of leaf clauses in the tree rooted at q.
// A DocIDSetQuery is a single filter clause.
func CountClauses(q Query) int {
	b, ok := q.(*BooleanQuery)
	if !ok {
		return 1
	}
	n := 0
	for _, c := range b.Must {
		n += CountClauses(c)
	}
	for _, c := range b.Should {
		n += CountClauses(c)
	}
	for _, c := range b.MustNot {
		n += CountClauses(c)
	}
	return n
}
