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

// Package roaring backs posting lists with compressed roaring bitmaps.
package roaring

import (
	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index/posting"
)

// ErrMixedLists is returned when a set operation gets a list of another implementation.
var ErrMixedLists = errors.New("set operations need two roaring lists")

var _ posting.List = (*postingsList)(nil)

// postingsList is a posting.List over a 64-bit roaring bitmap.
type postingsList struct {
	bitmap *roaring64.Bitmap
}

// NewPostingList returns an empty list.
func NewPostingList() posting.List {
	return &postingsList{
		bitmap: roaring64.New(),
	}
}

// NewPostingListWithInitialData returns a list holding data.
func NewPostingListWithInitialData(data ...uint64) posting.List {
	list := NewPostingList()
	for _, d := range data {
		list.Insert(d)
	}
	return list
}

// NewRange returns a list holding [lo, hi).
func NewRange(lo, hi uint64) posting.List {
	p := &postingsList{bitmap: roaring64.New()}
	if hi > lo {
		p.bitmap.AddRange(lo, hi)
	}
	return p
}

func (p *postingsList) Contains(id uint64) bool {
	return p.bitmap.Contains(id)
}

func (p *postingsList) IsEmpty() bool {
	return p.bitmap.IsEmpty()
}

func (p *postingsList) Len() int {
	return int(p.bitmap.GetCardinality())
}

func (p *postingsList) Iterator() posting.Iterator {
	return &roaringIterator{
		iter: p.bitmap.Iterator(),
	}
}

func (p *postingsList) Clone() posting.List {
	return &postingsList{
		bitmap: p.bitmap.Clone(),
	}
}

func cast(other posting.List) (*postingsList, error) {
	o, ok := other.(*postingsList)
	if !ok {
		return nil, errors.Wrapf(ErrMixedLists, "got %T", other)
	}
	return o, nil
}

func (p *postingsList) Insert(id uint64) {
	p.bitmap.Add(id)
}

func (p *postingsList) Intersect(other posting.List) error {
	o, err := cast(other)
	if err != nil {
		return err
	}
	p.bitmap.And(o.bitmap)
	return nil
}

func (p *postingsList) Difference(other posting.List) error {
	o, err := cast(other)
	if err != nil {
		return err
	}
	p.bitmap.AndNot(o.bitmap)
	return nil
}

func (p *postingsList) Union(other posting.List) error {
	o, err := cast(other)
	if err != nil {
		return err
	}
	p.bitmap.Or(o.bitmap)
	return nil
}

func (p *postingsList) Reset() {
	p.bitmap.Clear()
}

func (p *postingsList) ToSlice() []uint64 {
	return p.bitmap.ToArray()
}

type roaringIterator struct {
	iter    roaring64.IntIterable64
	current uint64
	closed  bool
}

func (it *roaringIterator) Current() uint64 {
	return it.current
}

func (it *roaringIterator) Next() bool {
	if it.closed || !it.iter.HasNext() {
		return false
	}
	it.current = it.iter.Next()
	return true
}

func (it *roaringIterator) Close() error {
	it.closed = true
	return nil
}
