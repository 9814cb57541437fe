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

package collector

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/inverted"
)

const (
	idField   = "ch_issueid"
	kindField = "kind"
)

type backend struct {
	open func(t *testing.T) index.Store
	name string
}

var backends = []backend{
	{name: "memory", open: func(*testing.T) index.Store { return inverted.NewMemStore(inverted.MemStoreOpts{}) }},
	{name: "bluge", open: func(t *testing.T) index.Store {
		s, err := inverted.NewStore(inverted.StoreOpts{})
		require.NoError(t, err)
		return s
	}},
}

func newStore(t *testing.T, n int) index.Store {
	return fill(t, backends[0], n)
}

// fill indexes n change records spread over n/3 issues.
func fill(t *testing.T, b backend, n int) index.Store {
	s := b.open(t)
	t.Cleanup(func() { _ = s.Close() })
	docs := make([]index.Document, 0, n)
	for i := 0; i < n; i++ {
		d := index.Document{}
		d.AddStored(idField, strconv.Itoa(10000+i/3))
		d.Add(kindField, strconv.Itoa(i%7))
		docs = append(docs, d)
	}
	require.NoError(t, s.Insert(docs...))
	return s
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		numDocs uint64
		want    uint64
	}{
		{name: "floor", numDocs: 1000, want: 50},
		{name: "ratio", numDocs: 2_000_000, want: 200},
		{name: "boundary", numDocs: 500_000, want: 50},
		{name: "custom", opts: Options{Ratio: 10, Floor: 2}, numDocs: 100, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Threshold(tt.numDocs))
		})
	}
}

func TestCollector_Bounds(t *testing.T) {
	c := New(100)
	for _, d := range []uint64{42, 7, 99, 7} {
		c.Collect(d)
	}
	assert.Equal(t, uint64(3), c.Count())
	lo, hi := c.Bounds()
	assert.Equal(t, uint64(7), lo)
	assert.Equal(t, uint64(99), hi)
	assert.Equal(t, StrategyDirect, c.Choose(100, Options{}))
	assert.Equal(t, StrategyTerms, c.Choose(100, Options{Floor: 2, Ratio: 1000}))
}

func TestStrategiesAreEquivalent(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := fill(t, b, 600)
			r := rand.New(rand.NewSource(7))
			for _, hits := range []int{0, 1, 10, 49, 50, 51, 300, 599, 600} {
				t.Run(strconv.Itoa(hits), func(t *testing.T) {
					c := New(s.MaxDoc())
					for _, d := range r.Perm(int(s.MaxDoc()))[:hits] {
						c.Collect(uint64(d))
					}
					direct, err := c.Resolve(s, idField, StrategyDirect)
					require.NoError(t, err)
					terms, err := c.Resolve(s, idField, StrategyTerms)
					require.NoError(t, err)
					if diff := cmp.Diff(direct, terms); diff != "" {
						t.Errorf("strategies differ (-direct +terms):\n%s", diff)
					}
					lo, hi := c.Bounds()
					full, err := ResolveByTerms(s, idField, c.Hits(), 0, hi+lo+s.MaxDoc())
					require.NoError(t, err)
					assert.Equal(t, direct, full)
				})
			}
		})
	}
}

func TestRunOnEveryBackend(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := fill(t, b, 600)
			for want, opts := range map[Strategy]Options{
				StrategyDirect: {Floor: 1000},
				StrategyTerms:  {Ratio: 1 << 40, Floor: 1},
			} {
				ids, strategy, err := Run(context.Background(), s, index.NewTermQuery(kindField, "3"), idField, opts)
				require.NoError(t, err)
				assert.Equal(t, want, strategy)
				assert.Len(t, ids, 86, strategy.String())
				assert.IsIncreasing(t, ids)
			}
		})
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		store    int
		kind     string
		strategy Strategy
		want     int
	}{
		{name: "few hits resolve directly", store: 60, kind: "0", strategy: StrategyDirect, want: 9},
		{name: "many hits enumerate terms", store: 3000, kind: "0", strategy: StrategyTerms, want: 429},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, tt.store)
			ids, strategy, err := Run(context.Background(), s, index.NewTermQuery(kindField, tt.kind), idField, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, strategy)
			assert.Len(t, ids, tt.want)
			assert.IsIncreasing(t, ids)
		})
	}
}

func TestRun_Empty(t *testing.T) {
	s := newStore(t, 10)
	ids, _, err := Run(context.Background(), s, index.NewMatchNoneQuery(), idField, Options{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
