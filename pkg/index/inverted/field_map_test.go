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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apache/skywalking-issueql/pkg/index"
)

func TestTermMap_RangeOf(t *testing.T) {
	tm := newTermMap()
	for i := 0; i < 100; i++ {
		tm.put(fmt.Sprintf("t%02d", i), uint64(i))
	}
	scan := func(opts index.RangeOpts) []uint64 {
		docs := []uint64{}
		for i, term := range tm.terms() {
			if opts.Between(term) == 0 {
				docs = append(docs, uint64(i))
			}
		}
		return docs
	}
	tests := []struct {
		name string
		opts index.RangeOpts
		want int
	}{
		{name: "closed", opts: index.RangeOpts{Lower: "t10", Upper: "t20", IncludesLower: true, IncludesUpper: true}, want: 11},
		{name: "exclusive", opts: index.RangeOpts{Lower: "t10", Upper: "t20"}, want: 9},
		{name: "open upper", opts: index.RangeOpts{Lower: "t95"}, want: 4},
		{name: "open lower", opts: index.RangeOpts{Upper: "t05", IncludesUpper: true}, want: 6},
		{name: "between terms", opts: index.RangeOpts{Lower: "t10a", Upper: "t12a"}, want: 2},
		{name: "inverted bounds", opts: index.RangeOpts{Lower: "t50", Upper: "t40"}, want: 0},
		{name: "unbounded", want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tm.rangeOf(tt.opts).ToSlice()
			assert.Len(t, got, tt.want)
			assert.Equal(t, scan(tt.opts), append([]uint64{}, got...))
		})
	}
}

func TestTermMap_PrefixOf(t *testing.T) {
	tm := newTermMap()
	for i, term := range []string{"db", "dba", "dbb", "dc", "ui", "urgent"} {
		tm.put(term, uint64(i))
	}
	assert.Equal(t, []uint64{0, 1, 2}, tm.prefixOf("db").ToSlice())
	assert.Equal(t, []uint64{4, 5}, tm.prefixOf("u").ToSlice())
	assert.Empty(t, tm.prefixOf("x").ToSlice())
	assert.Len(t, tm.prefixOf("").ToSlice(), 6)
}
