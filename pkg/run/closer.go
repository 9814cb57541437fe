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

// Package run tracks the in-flight operations of closable components.
package run

import "sync"

// Closer counts running operations and refuses new ones once closing starts.
// The initial count lets the owner hold a reference released by Close.
type Closer struct {
	waiting sync.WaitGroup
	lock    sync.RWMutex
	closed  bool
}

// NewCloser returns a Closer holding initial references.
func NewCloser(initial int) *Closer {
	c := &Closer{}
	c.waiting.Add(initial)
	return c
}

// AddRunning registers an operation. It returns false after CloseThenWait started.
func (c *Closer) AddRunning() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.closed {
		return false
	}
	c.waiting.Add(1)
	return true
}

// Done releases an operation registered by AddRunning or an initial reference.
func (c *Closer) Done() {
	c.waiting.Done()
}

// CloseThenWait refuses new operations and blocks until every running one is done.
func (c *Closer) CloseThenWait() {
	c.lock.Lock()
	c.closed = true
	c.lock.Unlock()
	c.waiting.Wait()
}

// Closed reports whether CloseThenWait was called.
func (c *Closer) Closed() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.closed
}
