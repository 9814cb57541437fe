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

// Package collector gathers the ids stored in the documents matching a query.
//
// Hits are recorded in a bitmap sized once to the index's document count. After the scan the
// ids are resolved either by loading the id field of every hit or, when hits are plentiful,
// by walking the id field's term dictionary once and keeping the terms whose postings touch
// the bitmap.
package collector

import (
	"context"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index"
)

// Defaults of the strategy switch.
const (
	DefaultRatio = 10000
	DefaultFloor = 50
)

// Strategy is the way ids are resolved from the hit bitmap.
type Strategy int

// Strategies.
const (
	StrategyDirect Strategy = iota
	StrategyTerms
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyTerms:
		return "terms"
	default:
		return "unknown"
	}
}

// Options tunes the strategy switch.
type Options struct {
	// Ratio divides the index size to get the direct resolution threshold.
	Ratio uint64
	// Floor is the smallest direct resolution threshold.
	Floor uint64
}

// Threshold returns the largest hit count resolved directly for an index of numDocs.
func (o Options) Threshold(numDocs uint64) uint64 {
	ratio, floor := o.Ratio, o.Floor
	if ratio == 0 {
		ratio = DefaultRatio
	}
	if floor == 0 {
		floor = DefaultFloor
	}
	if t := numDocs / ratio; t > floor {
		return t
	}
	return floor
}

// Collector records hits of a single scan.
type Collector struct {
	hits  *bitset.BitSet
	min   uint64
	max   uint64
	count uint64
}

// New returns a Collector for document numbers below maxDoc.
func New(maxDoc uint64) *Collector {
	return &Collector{hits: bitset.New(uint(maxDoc))}
}

// Collect records a hit.
func (c *Collector) Collect(doc uint64) {
	if c.hits.Test(uint(doc)) {
		return
	}
	c.hits.Set(uint(doc))
	if c.count == 0 || doc < c.min {
		c.min = doc
	}
	if c.count == 0 || doc > c.max {
		c.max = doc
	}
	c.count++
}

// Count returns the number of distinct hits.
func (c *Collector) Count() uint64 {
	return c.count
}

// Bounds returns the smallest and largest hit.
func (c *Collector) Bounds() (lo, hi uint64) {
	return c.min, c.max
}

// Hits returns the hit bitmap.
func (c *Collector) Hits() *bitset.BitSet {
	return c.hits
}

// Choose picks the resolution strategy for an index of numDocs.
func (c *Collector) Choose(numDocs uint64, opts Options) Strategy {
	if c.count <= opts.Threshold(numDocs) {
		return StrategyDirect
	}
	return StrategyTerms
}

// Resolve turns the hits into the sorted distinct values of idField.
func (c *Collector) Resolve(s index.Searcher, idField string, strategy Strategy) ([]string, error) {
	if c.count == 0 {
		return []string{}, nil
	}
	switch strategy {
	case StrategyDirect:
		return ResolveDirect(s, idField, c.hits)
	case StrategyTerms:
		return ResolveByTerms(s, idField, c.hits, c.min, c.max)
	default:
		return nil, errors.Errorf("unknown strategy %d", strategy)
	}
}

// ResolveDirect loads idField of every hit.
func ResolveDirect(s index.Searcher, idField string, hits *bitset.BitSet) ([]string, error) {
	seen := make(map[string]struct{}, hits.Count())
	ids := make([]string, 0, hits.Count())
	for i, ok := hits.NextSet(0); ok; i, ok = hits.NextSet(i + 1) {
		v, found, err := s.StoredField(uint64(i), idField)
		if err != nil {
			return nil, errors.WithMessagef(err, "load %s of document %d", idField, i)
		}
		if !found {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		ids = append(ids, v)
	}
	sort.Strings(ids)
	return ids, nil
}

// ResolveByTerms walks the term dictionary of idField once and keeps every term
// whose postings intersect hits. Postings outside [lo, hi] are skipped.
func ResolveByTerms(s index.Searcher, idField string, hits *bitset.BitSet, lo, hi uint64) (ids []string, err error) {
	iter, err := s.Terms(idField)
	if err != nil {
		return nil, errors.WithMessagef(err, "enumerate terms of %s", idField)
	}
	defer func() {
		if closeErr := iter.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	ids = make([]string, 0)
	for iter.Next() {
		list, err := iter.Postings()
		if err != nil {
			return nil, errors.WithMessagef(err, "load postings of %s", iter.Term())
		}
		postings := list.Iterator()
		for postings.Next() {
			doc := postings.Current()
			if doc < lo {
				continue
			}
			if doc > hi {
				break
			}
			if hits.Test(uint(doc)) {
				ids = append(ids, iter.Term())
				break
			}
		}
		_ = postings.Close()
	}
	return ids, nil
}

// Run executes q against s and resolves the values of idField held by the hits.
func Run(ctx context.Context, s index.Searcher, q index.Query, idField string, opts Options) ([]string, Strategy, error) {
	c := New(s.MaxDoc())
	if err := s.Collect(ctx, q, c.Collect); err != nil {
		return nil, StrategyDirect, err
	}
	strategy := c.Choose(s.NumDocs(), opts)
	ids, err := c.Resolve(s, idField, strategy)
	return ids, strategy, err
}
