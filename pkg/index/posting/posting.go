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

// Package posting defines the document number sets index evaluation works on.
package posting

// List is a mutable set of document numbers. Set operations modify the receiver
// and accept only lists of the same implementation.
type List interface {
	Contains(doc uint64) bool
	IsEmpty() bool
	Len() int
	Insert(doc uint64)
	Intersect(other List) error
	Difference(other List) error
	Union(other List) error
	Clone() List
	Reset()
	// Iterator walks the documents in ascending order.
	Iterator() Iterator
	ToSlice() []uint64
}

// Iterator walks a List.
type Iterator interface {
	Next() bool
	Current() uint64
	Close() error
}
