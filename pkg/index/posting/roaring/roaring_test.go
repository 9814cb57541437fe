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

package roaring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/skywalking-issueql/pkg/index/posting"
)

func TestPostingList_SetOperations(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b posting.List) error
		want []uint64
	}{
		{
			name: "union",
			op:   func(a, b posting.List) error { return a.Union(b) },
			want: []uint64{1, 2, 3, 4, 5},
		},
		{
			name: "intersect",
			op:   func(a, b posting.List) error { return a.Intersect(b) },
			want: []uint64{3},
		},
		{
			name: "difference",
			op:   func(a, b posting.List) error { return a.Difference(b) },
			want: []uint64{1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewPostingListWithInitialData(1, 2, 3)
			b := NewPostingListWithInitialData(3, 4, 5)
			require.NoError(t, tt.op(a, b))
			assert.Equal(t, tt.want, a.ToSlice())
			assert.Equal(t, []uint64{3, 4, 5}, b.ToSlice())
		})
	}
}

func TestPostingList_Range(t *testing.T) {
	l := NewRange(4, 8)
	assert.Equal(t, 4, l.Len())
	assert.True(t, l.Contains(4))
	assert.False(t, l.Contains(8))
	assert.True(t, NewRange(8, 8).IsEmpty())
	l.Reset()
	assert.True(t, l.IsEmpty())
}

func TestPostingList_Iterator(t *testing.T) {
	l := NewPostingListWithInitialData(9, 1, 5)
	var walked []uint64
	iter := l.Iterator()
	for iter.Next() {
		walked = append(walked, iter.Current())
	}
	require.NoError(t, iter.Close())
	assert.False(t, iter.Next())
	assert.Equal(t, []uint64{1, 5, 9}, walked)

	clone := l.Clone()
	clone.Insert(10)
	assert.Equal(t, []uint64{1, 5, 9}, l.ToSlice())
	assert.Equal(t, []uint64{1, 5, 9, 10}, clone.ToSlice())
}

type foreignList struct{ posting.List }

func TestPostingList_MixedLists(t *testing.T) {
	err := NewPostingList().Union(foreignList{})
	assert.ErrorIs(t, err, ErrMixedLists)
}
