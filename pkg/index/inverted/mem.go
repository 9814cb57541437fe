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
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/posting"
	"github.com/apache/skywalking-issueql/pkg/index/posting/roaring"
	"github.com/apache/skywalking-issueql/pkg/logger"
)

// DefaultMaxClauses is the clause limit applied when none is configured.
const DefaultMaxClauses = 65536

const checkCancelEvery = 1024

var _ index.Store = (*MemStore)(nil)

// MemStoreOpts wraps options to create a memory index.
type MemStoreOpts struct {
	Logger     *logger.Logger
	MaxClauses int
}

// MemStore is an inverted index held in memory.
// Documents are numbered in insertion order starting at zero.
type MemStore struct {
	fields     *fieldMap
	l          *logger.Logger
	stored     []map[string]string
	maxClauses int
	mu         sync.RWMutex
	closed     bool
}

// NewMemStore returns an empty memory index.
func NewMemStore(opts MemStoreOpts) *MemStore {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("inverted", "mem")
	}
	if opts.MaxClauses <= 0 {
		opts.MaxClauses = DefaultMaxClauses
	}
	return &MemStore{
		fields:     newFieldMap(64),
		l:          opts.Logger,
		maxClauses: opts.MaxClauses,
	}
}

// Insert appends docs.
func (m *MemStore) Insert(docs ...index.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return index.ErrClosed
	}
	for _, d := range docs {
		num := uint64(len(m.stored))
		var stored map[string]string
		for _, f := range d.Fields {
			terms := f.Terms
			if f.Analyzer != index.AnalyzerUnspecified {
				terms = Analyze(f.Analyzer, f.Text)
			}
			for _, t := range terms {
				m.fields.put(f.Name, t, num)
			}
			if f.Store {
				if stored == nil {
					stored = make(map[string]string, 2)
				}
				stored[f.Name] = f.StoredValue()
			}
		}
		m.stored = append(m.stored, stored)
	}
	return nil
}

// MaxDoc implements index.Searcher.
func (m *MemStore) MaxDoc() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.stored))
}

// NumDocs implements index.Searcher.
func (m *MemStore) NumDocs() uint64 {
	return m.MaxDoc()
}

// StoredField implements index.Searcher.
func (m *MemStore) StoredField(doc uint64, field string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, index.ErrClosed
	}
	if doc >= uint64(len(m.stored)) {
		return "", false, nil
	}
	v, ok := m.stored[doc][field]
	return v, ok, nil
}

// Terms implements index.Searcher. The iterator works on a snapshot of the dictionary.
func (m *MemStore) Terms(field string) (index.TermIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, index.ErrClosed
	}
	tm, ok := m.fields.get(field)
	if !ok {
		return emptyIterator{}, nil
	}
	snapshot := newTermMap()
	for _, t := range tm.terms() {
		snapshot.repo[t] = tm.getEntry(t).Clone()
	}
	snapshot.sorted = append([]string(nil), tm.terms()...)
	return newFieldIterator(snapshot.sorted, snapshot), nil
}

// Collect implements index.Searcher.
func (m *MemStore) Collect(ctx context.Context, q index.Query, fn func(doc uint64)) error {
	if n := index.CountClauses(q); n > m.maxClauses {
		return errors.Wrapf(index.ErrTooManyClauses, "%d clauses exceed the limit %d", n, m.maxClauses)
	}
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return index.ErrClosed
	}
	list, err := m.eval(q)
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	iter := list.Iterator()
	defer iter.Close()
	for i := 0; iter.Next(); i++ {
		if i%checkCancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fn(iter.Current())
	}
	return nil
}

// Close releases the index.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.fields = newFieldMap(0)
	m.stored = nil
	return nil
}

func (m *MemStore) all() posting.List {
	return roaring.NewRange(0, uint64(len(m.stored)))
}

func (m *MemStore) term(field, term string) posting.List {
	tm, ok := m.fields.get(field)
	if !ok {
		return roaring.NewPostingList()
	}
	list := tm.getEntry(term)
	if list == nil {
		return roaring.NewPostingList()
	}
	return list.Clone()
}

func (m *MemStore) eval(q index.Query) (posting.List, error) {
	switch q := q.(type) {
	case *index.TermQuery:
		return m.term(q.Field, q.Term), nil
	case *index.TermRangeQuery:
		tm, ok := m.fields.get(q.Field)
		if !ok {
			return roaring.NewPostingList(), nil
		}
		return tm.rangeOf(q.Opts()), nil
	case *index.PrefixQuery:
		tm, ok := m.fields.get(q.Field)
		if !ok {
			return roaring.NewPostingList(), nil
		}
		return tm.prefixOf(q.Prefix), nil
	case *index.MatchQuery:
		terms := Analyze(q.Analyzer, q.Text)
		if len(terms) == 0 {
			return roaring.NewPostingList(), nil
		}
		result := m.term(q.Field, terms[0])
		for _, t := range terms[1:] {
			if err := result.Intersect(m.term(q.Field, t)); err != nil {
				return nil, err
			}
		}
		return result, nil
	case *index.MatchAllQuery:
		return m.all(), nil
	case *index.MatchNoneQuery:
		return roaring.NewPostingList(), nil
	case *index.DocIDSetQuery:
		result := roaring.NewPostingList()
		tm, ok := m.fields.get(q.Field)
		if !ok {
			return result, nil
		}
		for _, id := range q.IDs {
			if list := tm.getEntry(id); list != nil {
				if err := result.Union(list); err != nil {
					return nil, err
				}
			}
		}
		return result, nil
	case *index.BooleanQuery:
		return m.evalBoolean(q)
	default:
		return nil, errors.Wrapf(index.ErrUnsupportedQuery, "%T", q)
	}
}

func (m *MemStore) evalBoolean(q *index.BooleanQuery) (posting.List, error) {
	if q.IsEmpty() {
		return roaring.NewPostingList(), nil
	}
	var result posting.List
	for _, c := range q.Must {
		list, err := m.eval(c)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = list
			continue
		}
		if err = result.Intersect(list); err != nil {
			return nil, err
		}
	}
	if minShould := q.EffectiveMinShould(); minShould > 0 {
		should, err := m.evalShould(q.Should, minShould)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = should
		} else if err = result.Intersect(should); err != nil {
			return nil, err
		}
	}
	if result == nil {
		result = m.all()
	}
	for _, c := range q.MustNot {
		list, err := m.eval(c)
		if err != nil {
			return nil, err
		}
		if err = result.Difference(list); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (m *MemStore) evalShould(clauses []index.Query, minShould int) (posting.List, error) {
	result := roaring.NewPostingList()
	if minShould > len(clauses) {
		return result, nil
	}
	if minShould == 1 {
		for _, c := range clauses {
			list, err := m.eval(c)
			if err != nil {
				return nil, err
			}
			if err = result.Union(list); err != nil {
				return nil, err
			}
		}
		return result, nil
	}
	hits := make(map[uint64]int)
	for _, c := range clauses {
		list, err := m.eval(c)
		if err != nil {
			return nil, err
		}
		iter := list.Iterator()
		for iter.Next() {
			hits[iter.Current()]++
		}
		_ = iter.Close()
	}
	for doc, n := range hits {
		if n >= minShould {
			result.Insert(doc)
		}
	}
	return result, nil
}
