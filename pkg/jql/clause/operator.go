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
	"strings"

	"github.com/pkg/errors"
)

// Operator relates a field to its operand.
type Operator string

// Operators.
const (
	OpEquals            Operator = "="
	OpNotEquals         Operator = "!="
	OpLike              Operator = "~"
	OpNotLike           Operator = "!~"
	OpGreaterThan       Operator = ">"
	OpGreaterThanEquals Operator = ">="
	OpLessThan          Operator = "<"
	OpLessThanEquals    Operator = "<="
	OpIn                Operator = "in"
	OpNotIn             Operator = "not in"
	OpIs                Operator = "is"
	OpIsNot             Operator = "is not"
	OpWas               Operator = "was"
	OpWasNot            Operator = "was not"
	OpWasIn             Operator = "was in"
	OpWasNotIn          Operator = "was not in"
	OpChanged           Operator = "changed"
	opUnknown           Operator = ""
)

var operators = map[Operator]struct{}{
	OpEquals: {}, OpNotEquals: {}, OpLike: {}, OpNotLike: {},
	OpGreaterThan: {}, OpGreaterThanEquals: {}, OpLessThan: {}, OpLessThanEquals: {},
	OpIn: {}, OpNotIn: {}, OpIs: {}, OpIsNot: {},
	OpWas: {}, OpWasNot: {}, OpWasIn: {}, OpWasNotIn: {}, OpChanged: {},
}

var negations = map[Operator]Operator{
	OpEquals:            OpNotEquals,
	OpNotEquals:         OpEquals,
	OpLike:              OpNotLike,
	OpNotLike:           OpLike,
	OpGreaterThan:       OpLessThanEquals,
	OpLessThanEquals:    OpGreaterThan,
	OpLessThan:          OpGreaterThanEquals,
	OpGreaterThanEquals: OpLessThan,
	OpIn:                OpNotIn,
	OpNotIn:             OpIn,
	OpIs:                OpIsNot,
	OpIsNot:             OpIs,
	OpWas:               OpWasNot,
	OpWasNot:            OpWas,
	OpWasIn:             OpWasNotIn,
	OpWasNotIn:          OpWasIn,
}

// ParseOperator normalizes s into an Operator. Case and inner spacing are ignored.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.Join(strings.Fields(strings.ToLower(s)), " "))
	if _, ok := operators[op]; !ok {
		return opUnknown, errors.Wrapf(ErrInvalidClause, "unknown operator %q", s)
	}
	return op, nil
}

// Negate returns the operator matching the complement of o among documents holding the field.
// CHANGED has no such operator.
func (o Operator) Negate() (Operator, bool) {
	n, ok := negations[o]
	return n, ok
}

// IsList reports whether o takes a list operand.
func (o Operator) IsList() bool {
	switch o {
	case OpIn, OpNotIn, OpWasIn, OpWasNotIn:
		return true
	default:
		return false
	}
}

// IsHistory reports whether o is answered by the change history.
func (o Operator) IsHistory() bool {
	switch o {
	case OpWas, OpWasNot, OpWasIn, OpWasNotIn, OpChanged:
		return true
	default:
		return false
	}
}

// IsNegative reports whether o excludes its operand.
func (o Operator) IsNegative() bool {
	switch o {
	case OpNotEquals, OpNotLike, OpNotIn, OpIsNot, OpWasNot, OpWasNotIn:
		return true
	default:
		return false
	}
}

// IsRelational reports whether o compares order.
func (o Operator) IsRelational() bool {
	switch o {
	case OpGreaterThan, OpGreaterThanEquals, OpLessThan, OpLessThanEquals:
		return true
	default:
		return false
	}
}

// AcceptsEmpty reports whether o may take the EMPTY operand.
func (o Operator) AcceptsEmpty() bool {
	switch o {
	case OpEquals, OpNotEquals, OpIs, OpIsNot, OpIn, OpNotIn, OpWas, OpWasNot, OpWasIn, OpWasNotIn:
		return true
	default:
		return false
	}
}

func (o Operator) String() string {
	return strings.ToUpper(string(o))
}
