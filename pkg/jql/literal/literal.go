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

// Package literal resolves clause operands into query literals.
package literal

import (
	"strconv"
)

type kind uint8

const (
	kindEmpty kind = iota
	kindString
	kindInt
)

// Literal is a resolved scalar value: a string, an integer or empty.
// The zero value is empty.
type Literal struct {
	str  string
	num  int64
	kind kind
}

// String returns a string literal.
func String(s string) Literal {
	return Literal{str: s, kind: kindString}
}

// Int returns an integer literal.
func Int(n int64) Literal {
	return Literal{num: n, kind: kindInt}
}

// Empty returns the empty literal.
func Empty() Literal {
	return Literal{}
}

// IsEmpty reports whether l carries no value.
func (l Literal) IsEmpty() bool {
	return l.kind == kindEmpty
}

// Str returns the string value.
func (l Literal) Str() (string, bool) {
	return l.str, l.kind == kindString
}

// Int returns the integer value.
func (l Literal) Int() (int64, bool) {
	return l.num, l.kind == kindInt
}

// Text returns the value as text whatever its kind. Empty yields "".
func (l Literal) Text() string {
	switch l.kind {
	case kindString:
		return l.str
	case kindInt:
		return strconv.FormatInt(l.num, 10)
	default:
		return ""
	}
}

func (l Literal) String() string {
	switch l.kind {
	case kindString:
		return strconv.Quote(l.str)
	case kindInt:
		return strconv.FormatInt(l.num, 10)
	default:
		return "EMPTY"
	}
}

// HasEmpty reports whether any of literals is empty.
func HasEmpty(literals []Literal) bool {
	for _, l := range literals {
		if l.IsEmpty() {
			return true
		}
	}
	return false
}
