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

// Package pool keeps typed object pools and counts the objects out of them.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var pools = sync.Map{}

// Register returns a new pool. Names are unique within the process.
func Register[T any](name string) *Synced[T] {
	p := new(Synced[T])
	if _, ok := pools.LoadOrStore(name, p); ok {
		panic(fmt.Sprintf("duplicated pool: %s", name))
	}
	return p
}

// Outstanding returns how many objects each pool handed out and didn't get back.
func Outstanding() map[string]int {
	result := make(map[string]int)
	pools.Range(func(key, value any) bool {
		result[key.(string)] = value.(interface{ RefsCount() int }).RefsCount()
		return true
	})
	return result
}

// Synced is a typed sync.Pool.
type Synced[T any] struct {
	sync.Pool
	refs atomic.Int32
}

// Get returns a pooled object, or the zero value when the pool is empty.
func (p *Synced[T]) Get() T {
	p.refs.Add(1)
	v := p.Pool.Get()
	if v == nil {
		var t T
		return t
	}
	return v.(T)
}

// Put returns v to the pool.
func (p *Synced[T]) Put(v T) {
	p.refs.Add(-1)
	p.Pool.Put(v)
}

// RefsCount returns the objects out of the pool.
func (p *Synced[T]) RefsCount() int {
	return int(p.refs.Load())
}
