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

package clause

import (
	"strconv"
	"strings"
)

// Operand is the value side of a terminal clause before resolution.
type Operand interface {
	operand()
	String() string
}

var (
	_ Operand = Single{}
	_ Operand = Multi{}
	_ Operand = Empty{}
	_ Operand = Function{}
)

// Single is one literal value, either a string or an integer.
type Single struct {
	Str   string
	Int   int64
	IsInt bool
}

// Str returns a string operand.
func Str(s string) Single {
	return Single{Str: s}
}

// Int returns an integer operand.
func Int(n int64) Single {
	return Single{Int: n, IsInt: true}
}

func (Single) operand() {}

func (s Single) String() string {
	if s.IsInt {
		return strconv.FormatInt(s.Int, 10)
	}
	return strconv.Quote(s.Str)
}

// Multi is a list of operands.
type Multi struct {
	Values []Operand
}

// List returns a list operand.
func List(values ...Operand) Multi {
	return Multi{Values: values}
}

// Strs returns a list of string operands.
func Strs(values ...string) Multi {
	m := Multi{Values: make([]Operand, 0, len(values))}
	for _, v := range values {
		m.Values = append(m.Values, Str(v))
	}
	return m
}

func (Multi) operand() {}

func (m Multi) String() string {
	parts := make([]string, 0, len(m.Values))
	for _, v := range m.Values {
		parts = append(parts, v.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Empty is the EMPTY marker.
type Empty struct{}

func (Empty) operand() {}

func (Empty) String() string {
	return "EMPTY"
}

// Function is a call resolved to zero or more values at compile time.
type Function struct {
	Name string
	Args []string
}

// Func returns a function operand.
func Func(name string, args ...string) Function {
	return Function{Name: name, Args: args}
}

func (Function) operand() {}

func (f Function) String() string {
	args := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		args = append(args, strconv.Quote(a))
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// IsEmpty reports whether o is the EMPTY marker.
func IsEmpty(o Operand) bool {
	_, ok := o.(Empty)
	return ok
}
