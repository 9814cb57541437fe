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

// Package inverted implements the inverted index repositories.
package inverted

import (
	"context"
	"io"
	"log"
	"sync/atomic"

	"github.com/blugelabs/bluge"
	blugeIndex "github.com/blugelabs/bluge/index"
	"github.com/blugelabs/bluge/search"
	segment "github.com/blugelabs/bluge_segment_api"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/apache/skywalking-issueql/pkg/convert"
	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/posting"
	"github.com/apache/skywalking-issueql/pkg/index/posting/roaring"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/pool"
	"github.com/apache/skywalking-issueql/pkg/run"
)

const docIDField = "_id"

var _ index.Store = (*BlugeStore)(nil)

// StoreOpts wraps options to create a bluge index repository.
type StoreOpts struct {
	Logger *logger.Logger
	// Path is the index directory. An empty path keeps the index in memory.
	Path       string
	MaxClauses int
}

// BlugeStore is an inverted index repository backed by bluge.
type BlugeStore struct {
	writer     *bluge.Writer
	closer     *run.Closer
	l          *logger.Logger
	maxClauses int
	nextDoc    atomic.Uint64
}

var batchPool = pool.Register[*blugeIndex.Batch]("index-bluge-batch")

func generateBatch() *blugeIndex.Batch {
	b := batchPool.Get()
	if b == nil {
		return bluge.NewBatch()
	}
	return b
}

func releaseBatch(b *blugeIndex.Batch) {
	b.Reset()
	batchPool.Put(b)
}

// NewStore creates a bluge index repository.
func NewStore(opts StoreOpts) (*BlugeStore, error) {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("inverted", "bluge")
	}
	if opts.MaxClauses <= 0 {
		opts.MaxClauses = DefaultMaxClauses
	}
	var config bluge.Config
	if opts.Path == "" {
		config = bluge.InMemoryOnlyConfig()
	} else {
		config = bluge.DefaultConfig(opts.Path)
	}
	config.DefaultSearchAnalyzer = Analyzers[index.AnalyzerKeyword]
	config.Logger = log.New(opts.Logger, opts.Logger.Module(), 0)
	w, err := bluge.OpenWriter(config)
	if err != nil {
		return nil, errors.WithMessagef(err, "open bluge writer at %q", opts.Path)
	}
	s := &BlugeStore{
		writer:     w,
		l:          opts.Logger,
		closer:     run.NewCloser(1),
		maxClauses: opts.MaxClauses,
	}
	// Documents are never deleted, so a reopened index continues after its count.
	count, err := s.count()
	if err != nil {
		return nil, multierr.Append(errors.WithMessagef(err, "count documents at %q", opts.Path), w.Close())
	}
	s.nextDoc.Store(count)
	return s, nil
}

func (s *BlugeStore) count() (n uint64, err error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, reader.Close())
	}()
	return reader.Count()
}

// Insert implements index.Writer. Documents are numbered in insertion order.
func (s *BlugeStore) Insert(docs ...index.Document) error {
	if !s.closer.AddRunning() {
		return index.ErrClosed
	}
	defer s.closer.Done()
	b := generateBatch()
	defer releaseBatch(b)
	for _, d := range docs {
		num := s.nextDoc.Add(1) - 1
		doc := bluge.NewDocument(convert.BytesToString(convert.Uint64ToBytes(num)))
		for _, f := range d.Fields {
			if f.Analyzer != index.AnalyzerUnspecified {
				tf := bluge.NewTextField(f.Name, f.Text).WithAnalyzer(Analyzers[f.Analyzer])
				if f.Store {
					tf.StoreValue()
				}
				doc.AddField(tf)
				continue
			}
			for i, t := range f.Terms {
				tf := bluge.NewKeywordField(f.Name, t)
				if f.Store && i == 0 {
					tf.StoreValue().Sortable()
				}
				doc.AddField(tf)
			}
		}
		b.Update(doc.ID(), doc)
	}
	return s.writer.Batch(b)
}

// MaxDoc implements index.Searcher.
func (s *BlugeStore) MaxDoc() uint64 {
	return s.nextDoc.Load()
}

// NumDocs implements index.Searcher.
func (s *BlugeStore) NumDocs() uint64 {
	return s.nextDoc.Load()
}

// Collect implements index.Searcher.
func (s *BlugeStore) Collect(ctx context.Context, q index.Query, fn func(doc uint64)) (err error) {
	if n := index.CountClauses(q); n > s.maxClauses {
		return errors.Wrapf(index.ErrTooManyClauses, "%d clauses exceed the limit %d", n, s.maxClauses)
	}
	query, err := BuildBlugeQuery(q)
	if err != nil {
		return err
	}
	if !s.closer.AddRunning() {
		return index.ErrClosed
	}
	defer s.closer.Done()
	reader, err := s.writer.Reader()
	if err != nil {
		return err
	}
	documentMatchIterator, err := reader.Search(ctx, bluge.NewAllMatches(query))
	if err != nil {
		return multierr.Append(err, reader.Close())
	}
	iter := newBlugeMatchIterator(documentMatchIterator, reader, "")
	defer func() {
		err = multierr.Append(err, iter.Close())
	}()
	for iter.Next() {
		fn(iter.doc)
	}
	return nil
}

// StoredField implements index.Searcher.
func (s *BlugeStore) StoredField(doc uint64, field string) (value string, found bool, err error) {
	if !s.closer.AddRunning() {
		return "", false, index.ErrClosed
	}
	defer s.closer.Done()
	reader, err := s.writer.Reader()
	if err != nil {
		return "", false, err
	}
	query := bluge.NewTermQuery(convert.BytesToString(convert.Uint64ToBytes(doc))).SetField(docIDField)
	documentMatchIterator, err := reader.Search(context.Background(), bluge.NewTopNSearch(1, query))
	if err != nil {
		return "", false, multierr.Append(err, reader.Close())
	}
	iter := newBlugeMatchIterator(documentMatchIterator, reader, field)
	defer func() {
		err = multierr.Append(err, iter.Close())
	}()
	if !iter.Next() {
		return "", false, nil
	}
	return iter.value, iter.found, nil
}

// Terms implements index.Searcher.
func (s *BlugeStore) Terms(field string) (index.TermIterator, error) {
	if !s.closer.AddRunning() {
		return nil, index.ErrClosed
	}
	reader, err := s.writer.Reader()
	if err != nil {
		s.closer.Done()
		return nil, err
	}
	dict, err := reader.DictionaryIterator(field, nil, nil, nil)
	if err != nil {
		s.closer.Done()
		return nil, multierr.Append(err, reader.Close())
	}
	return &dictIterator{dict: dict, reader: reader, field: field, done: s.closer.Done}, nil
}

// Close implements index.Store.
func (s *BlugeStore) Close() error {
	s.closer.Done()
	s.closer.CloseThenWait()
	return s.writer.Close()
}

type dictIterator struct {
	dict   segment.DictionaryIterator
	reader *bluge.Reader
	err    error
	done   func()
	field  string
	term   string
}

func (d *dictIterator) Next() bool {
	if d.err != nil {
		return false
	}
	de, err := d.dict.Next()
	if err != nil {
		d.err = err
		return false
	}
	if de == nil {
		return false
	}
	d.term = de.Term()
	return true
}

func (d *dictIterator) Term() string {
	return d.term
}

func (d *dictIterator) Postings() (list posting.List, err error) {
	query := bluge.NewTermQuery(d.term).SetField(d.field)
	documentMatchIterator, err := d.reader.Search(context.Background(), bluge.NewAllMatches(query))
	if err != nil {
		return nil, err
	}
	iter := newBlugeMatchIterator(documentMatchIterator, nil, "")
	defer func() {
		err = multierr.Append(err, iter.Close())
	}()
	list = roaring.NewPostingList()
	for iter.Next() {
		list.Insert(iter.doc)
	}
	return list, nil
}

func (d *dictIterator) Close() error {
	defer d.done()
	return multierr.Combine(d.err, d.dict.Close(), d.reader.Close())
}

type blugeMatchIterator struct {
	delegated search.DocumentMatchIterator
	err       error
	closer    io.Closer
	field     string
	value     string
	hit       int
	doc       uint64
	found     bool
}

func newBlugeMatchIterator(delegated search.DocumentMatchIterator, closer io.Closer, field string) *blugeMatchIterator {
	return &blugeMatchIterator{
		delegated: delegated,
		closer:    closer,
		field:     field,
	}
}

func (bmi *blugeMatchIterator) Next() bool {
	var match *search.DocumentMatch
	match, bmi.err = bmi.delegated.Next()
	if bmi.err != nil {
		bmi.err = errors.WithMessagef(bmi.err, "failed to get next document, hit: %d", bmi.hit)
		return false
	}
	if match == nil {
		bmi.err = io.EOF
		return false
	}
	bmi.hit = match.HitNumber
	bmi.doc, bmi.value, bmi.found = 0, "", false
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case docIDField:
			bmi.doc = convert.BytesToUint64(value)
		case bmi.field:
			if !bmi.found {
				bmi.value = string(value)
				bmi.found = true
			}
		}
		return true
	})
	if err != nil {
		bmi.err = errors.WithMessagef(err, "visit stored fields, hit: %d", bmi.hit)
		return false
	}
	return true
}

func (bmi *blugeMatchIterator) Close() error {
	var err error
	if bmi.err != nil && !errors.Is(bmi.err, io.EOF) {
		err = bmi.err
	}
	if bmi.closer == nil {
		return err
	}
	return multierr.Append(err, bmi.closer.Close())
}
