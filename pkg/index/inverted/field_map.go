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
	"sort"
	"strings"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/posting"
	"github.com/apache/skywalking-issueql/pkg/index/posting/roaring"
)

type fieldMap struct {
	repo map[string]*termMap
}

func newFieldMap(initialSize int) *fieldMap {
	return &fieldMap{
		repo: make(map[string]*termMap, initialSize),
	}
}

func (fm *fieldMap) get(field string) (*termMap, bool) {
	v, ok := fm.repo[field]
	return v, ok
}

func (fm *fieldMap) put(field, term string, doc uint64) {
	tm, ok := fm.repo[field]
	if !ok {
		tm = newTermMap()
		fm.repo[field] = tm
	}
	tm.put(term, doc)
}

type termMap struct {
	repo   map[string]posting.List
	sorted []string
}

func newTermMap() *termMap {
	return &termMap{
		repo: make(map[string]posting.List),
	}
}

func (tm *termMap) put(term string, doc uint64) {
	list, ok := tm.repo[term]
	if !ok {
		list = roaring.NewPostingList()
		tm.repo[term] = list
		i := sort.SearchStrings(tm.sorted, term)
		tm.sorted = append(tm.sorted, "")
		copy(tm.sorted[i+1:], tm.sorted[i:])
		tm.sorted[i] = term
	}
	list.Insert(doc)
}

func (tm *termMap) getEntry(term string) posting.List {
	return tm.repo[term]
}

// terms returns the dictionary in ascending order.
func (tm *termMap) terms() []string {
	return tm.sorted
}

func (tm *termMap) union(terms []string) posting.List {
	result := roaring.NewPostingList()
	for _, t := range terms {
		_ = result.Union(tm.repo[t])
	}
	return result
}

// rangeOf unions the terms in range. Between is -1, then 0, then 1 over the sorted dictionary.
func (tm *termMap) rangeOf(opts index.RangeOpts) posting.List {
	lo := sort.Search(len(tm.sorted), func(i int) bool {
		return opts.Between(tm.sorted[i]) >= 0
	})
	hi := sort.Search(len(tm.sorted), func(i int) bool {
		return opts.Between(tm.sorted[i]) > 0
	})
	if lo >= hi {
		return roaring.NewPostingList()
	}
	return tm.union(tm.sorted[lo:hi])
}

func (tm *termMap) prefixOf(prefix string) posting.List {
	lo := sort.SearchStrings(tm.sorted, prefix)
	hi := lo
	for hi < len(tm.sorted) && strings.HasPrefix(tm.sorted[hi], prefix) {
		hi++
	}
	return tm.union(tm.sorted[lo:hi])
}

var _ index.TermIterator = (*fIterator)(nil)

type fIterator struct {
	val       posting.List
	valueRepo *termMap
	keys      []string
	index     int
	closed    bool
}

func newFieldIterator(keys []string, fValue *termMap) index.TermIterator {
	return &fIterator{
		keys:      keys,
		valueRepo: fValue,
		index:     -1,
	}
}

func (f *fIterator) Next() bool {
	if f.closed {
		return false
	}
	f.index++
	if f.index >= len(f.keys) {
		return false
	}
	f.val = f.valueRepo.getEntry(f.keys[f.index])
	if f.val == nil {
		return f.Next()
	}
	return true
}

func (f *fIterator) Term() string {
	return f.keys[f.index]
}

func (f *fIterator) Postings() (posting.List, error) {
	return f.val.Clone(), nil
}

func (f *fIterator) Close() error {
	f.closed = true
	return nil
}

type emptyIterator struct{}

func (emptyIterator) Next() bool { return false }

func (emptyIterator) Term() string { return "" }

func (emptyIterator) Postings() (posting.List, error) { return roaring.NewPostingList(), nil }

func (emptyIterator) Close() error { return nil }
