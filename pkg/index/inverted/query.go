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

package inverted

import (
	"github.com/blugelabs/bluge"
	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index"
)

// maxTermSentinel sorts after every term the documents produce.
var maxTermSentinel = string([]byte{0xff, 0xff, 0xff, 0xff})

// BuildBlugeQuery translates the query tree into a bluge query.
func BuildBlugeQuery(q index.Query) (bluge.Query, error) {
	switch q := q.(type) {
	case *index.TermQuery:
		return bluge.NewTermQuery(q.Term).SetField(q.Field), nil
	case *index.TermRangeQuery:
		minTerm, maxTerm := q.Min, q.Max
		minInclusive, maxInclusive := q.MinInclusive, q.MaxInclusive
		if minTerm == "" {
			minInclusive = true
		}
		if maxTerm == "" {
			maxTerm, maxInclusive = maxTermSentinel, true
		}
		return bluge.NewTermRangeInclusiveQuery(minTerm, maxTerm, minInclusive, maxInclusive).SetField(q.Field), nil
	case *index.PrefixQuery:
		return bluge.NewPrefixQuery(q.Prefix).SetField(q.Field), nil
	case *index.MatchQuery:
		terms := Analyze(q.Analyzer, q.Text)
		if len(terms) == 0 {
			return matchNone(), nil
		}
		query := bluge.NewBooleanQuery()
		for _, t := range terms {
			query.AddMust(bluge.NewTermQuery(t).SetField(q.Field))
		}
		return query, nil
	case *index.MatchAllQuery:
		return bluge.NewMatchAllQuery(), nil
	case *index.MatchNoneQuery:
		return matchNone(), nil
	case *index.DocIDSetQuery:
		if len(q.IDs) == 0 {
			return matchNone(), nil
		}
		query := bluge.NewBooleanQuery()
		for _, id := range q.IDs {
			query.AddShould(bluge.NewTermQuery(id).SetField(q.Field))
		}
		return query.SetMinShould(1), nil
	case *index.BooleanQuery:
		return buildBoolean(q)
	default:
		return nil, errors.Wrapf(index.ErrUnsupportedQuery, "%T", q)
	}
}

func buildBoolean(q *index.BooleanQuery) (bluge.Query, error) {
	if q.IsEmpty() {
		return matchNone(), nil
	}
	query := bluge.NewBooleanQuery()
	for _, c := range q.Must {
		sub, err := BuildBlugeQuery(c)
		if err != nil {
			return nil, err
		}
		query.AddMust(sub)
	}
	for _, c := range q.Should {
		sub, err := BuildBlugeQuery(c)
		if err != nil {
			return nil, err
		}
		query.AddShould(sub)
	}
	if minShould := q.EffectiveMinShould(); minShould > 0 {
		query.SetMinShould(minShould)
	}
	if len(q.Must) == 0 && len(q.Should) == 0 {
		query.AddMust(bluge.NewMatchAllQuery())
	}
	for _, c := range q.MustNot {
		sub, err := BuildBlugeQuery(c)
		if err != nil {
			return nil, err
		}
		query.AddMustNot(sub)
	}
	if q.Boost > 0 {
		query.SetBoost(q.Boost)
	}
	return query, nil
}

func matchNone() bluge.Query {
	return bluge.NewMatchNoneQuery()
}
