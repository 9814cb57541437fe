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

// Package converter maps query literals to the terms a field is indexed with.
package converter

import (
	"context"
	"strconv"
	"strings"

	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/logger"
)

// Converter maps a literal to the indexed terms of a field.
// An empty result means the literal names nothing the field can hold.
// Converters never fail: lookup errors are logged and yield no terms.
type Converter interface {
	IndexedValues(ctx context.Context, l literal.Literal) []string
}

// Ranger is a Converter whose literals cover a range of sortable terms.
type Ranger interface {
	Converter
	// IndexedRange returns the inclusive bounds covered by l.
	IndexedRange(ctx context.Context, l literal.Literal) (lo, hi string, ok bool)
}

// Ranker is a Converter over an ordered set of values.
type Ranker interface {
	Converter
	// Ranked returns every indexed value, highest rank first.
	Ranked(ctx context.Context) []string
}

func defaultLogger(l *logger.Logger, name string) *logger.Logger {
	if l != nil {
		return l
	}
	return logger.GetLogger("converter", name)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// named resolves a literal against a list of entities by id, then by name.
// Integer literals and numeric strings are tried as ids first.
func named[T any](l literal.Literal, all []T, id func(T) string, names func(T) []string) []string {
	if l.IsEmpty() {
		return nil
	}
	text := strings.TrimSpace(l.Text())
	var ids []string
	for _, e := range all {
		if id(e) == text {
			ids = append(ids, id(e))
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, e := range all {
		for _, n := range names(e) {
			if strings.EqualFold(n, text) {
				ids = append(ids, id(e))
				break
			}
		}
	}
	return ids
}
