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

// Package index implements the index system for searching issues and their change history.
package index

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index/posting"
)

var (
	// ErrTooManyClauses indicates a query exceeds the clause limit of the index.
	ErrTooManyClauses = errors.New("too many clauses")
	// ErrClosed indicates the index has been closed.
	ErrClosed = errors.New("index is closed")
	// ErrUnsupportedQuery indicates the index can't evaluate a query node.
	ErrUnsupportedQuery = errors.New("unsupported query")
)

// Analyzer names shared by document building and query compilation.
const (
	AnalyzerUnspecified = ""
	AnalyzerKeyword     = "keyword"
	AnalyzerSimple      = "simple"
	AnalyzerStandard    = "standard"
)

// Field is a indexed item in a document.
type Field struct {
	Name string
	// Terms are indexed verbatim.
	Terms []string
	// Text is analyzed by Analyzer before indexing.
	Text     string
	Analyzer string
	// Store keeps the first term (or the text) as the stored value of the field.
	Store bool
}

// StoredValue returns the value kept for a stored field.
func (f Field) StoredValue() string {
	if f.Analyzer != AnalyzerUnspecified {
		return f.Text
	}
	if len(f.Terms) == 0 {
		return ""
	}
	return f.Terms[0]
}

// Document represents a document in an index.
type Document struct {
	Fields []Field
}

// Add appends a keyword field.
func (d *Document) Add(name string, terms ...string) *Document {
	d.Fields = append(d.Fields, Field{Name: name, Terms: terms})
	return d
}

// AddStored appends a keyword field whose first term is stored.
func (d *Document) AddStored(name, term string) *Document {
	d.Fields = append(d.Fields, Field{Name: name, Terms: []string{term}, Store: true})
	return d
}

// AddText appends a field analyzed by analyzer.
func (d *Document) AddText(name, text, analyzer string) *Document {
	d.Fields = append(d.Fields, Field{Name: name, Text: text, Analyzer: analyzer, Store: true})
	return d
}

// RangeOpts contains options to performance a continuous scan.
type RangeOpts struct {
	Upper         string
	Lower         string
	IncludesUpper bool
	IncludesLower bool
}

// Between reports whether value is in the range.
// An empty bound is open.
func (r RangeOpts) Between(value string) int {
	if r.Upper != "" {
		var in bool
		if r.IncludesUpper {
			in = strings.Compare(r.Upper, value) >= 0
		} else {
			in = strings.Compare(r.Upper, value) > 0
		}
		if !in {
			return 1
		}
	}
	if r.Lower != "" {
		var in bool
		if r.IncludesLower {
			in = strings.Compare(r.Lower, value) <= 0
		} else {
			in = strings.Compare(r.Lower, value) < 0
		}
		if !in {
			return -1
		}
	}
	return 0
}

// TermIterator walks the term dictionary of a field in ascending order.
type TermIterator interface {
	Next() bool
	Term() string
	// Postings returns the documents containing the current term.
	Postings() (posting.List, error)
	Close() error
}

// Searcher reads an index.
type Searcher interface {
	// Collect calls fn with the number of every document matching q.
	Collect(ctx context.Context, q Query, fn func(doc uint64)) error
	// MaxDoc returns the exclusive upper bound of document numbers.
	MaxDoc() uint64
	// NumDocs returns how many documents the index holds.
	NumDocs() uint64
	// StoredField loads a single stored field of doc.
	StoredField(doc uint64, field string) (string, bool, error)
	// Terms iterates the term dictionary of field.
	Terms(field string) (TermIterator, error)
}

// Writer appends documents to an index.
type Writer interface {
	Insert(docs ...Document) error
}

// Store is a searchable and writable index.
type Store interface {
	Searcher
	Writer
	Close() error
}
