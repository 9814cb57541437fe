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

// Package factory compiles terminal clauses into query fragments.
package factory

import (
	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
)

// Result is a compiled fragment of a terminal clause.
//
// When MustNegate is set Query holds the positive form of the clause and the
// caller realizes the clause by excluding it. Presence, when set, restricts that
// exclusion to the documents where the field is present.
type Result struct {
	Query      index.Query
	Presence   index.Query
	MustNegate bool
}

// False returns the statically false fragment.
func False() Result {
	return Result{Query: index.NewMatchNoneQuery()}
}

// NeedsVisibility reports whether negating the fragment requires a presence test.
func (r Result) NeedsVisibility() bool {
	return r.Presence != nil
}

// IsFalse reports whether the fragment matches nothing.
func (r Result) IsFalse() bool {
	return !r.MustNegate && index.IsMatchNone(r.Query)
}

// Resolve returns the query matching the clause, negation applied.
func (r Result) Resolve() index.Query {
	if !r.MustNegate {
		return r.Query
	}
	if r.Presence == nil {
		if index.IsMatchNone(r.Query) {
			return index.NewMatchAllQuery()
		}
		return index.NewBooleanQuery().AddMustNot(r.Query)
	}
	if index.IsMatchNone(r.Query) {
		return r.Presence
	}
	return index.NewBooleanQuery().AddMust(r.Presence).AddMustNot(r.Query)
}

// Visible matches the documents whose configuration shows field.
func Visible(field string) index.Query {
	return index.NewTermQuery(document.FieldVisible, field)
}

// IsEmpty matches the documents showing field without a value.
// Fields indexing sentinel for a missing value are tested with the sentinel term.
func IsEmpty(field, sentinel string) index.Query {
	if sentinel != "" {
		return index.NewTermQuery(field, sentinel)
	}
	return index.NewBooleanQuery().
		AddMust(Visible(field)).
		AddMustNot(index.NewTermQuery(document.FieldNonEmpty, field))
}

// NotEmpty matches the documents holding a value of field.
func NotEmpty(field, sentinel string) index.Query {
	if sentinel != "" {
		return index.NewBooleanQuery().
			AddMust(Visible(field)).
			AddMustNot(index.NewTermQuery(field, sentinel))
	}
	return index.NewBooleanQuery().
		AddMust(index.NewTermQuery(document.FieldNonEmpty, field), Visible(field))
}

// or joins queries with OR, or returns nil when there is nothing to join.
func or(queries []index.Query) index.Query {
	switch len(queries) {
	case 0:
		return nil
	case 1:
		return queries[0]
	default:
		return index.NewBooleanQuery().AddShould(queries...)
	}
}
