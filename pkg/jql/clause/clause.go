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

// Package clause defines the parsed boolean query tree.
package clause

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidClause indicates a malformed clause tree.
var ErrInvalidClause = errors.New("invalid clause")

// Clause is a node of the query tree. The set of implementations is closed.
type Clause interface {
	clause()
	String() string
}

var (
	_ Clause = (*Terminal)(nil)
	_ Clause = (*And)(nil)
	_ Clause = (*Or)(nil)
	_ Clause = (*Not)(nil)
)

// Terminal compares a field with an operand.
type Terminal struct {
	Operand  Operand
	History  *HistoryPredicate
	Field    string
	Operator Operator
	// Property is an optional structured sub key of the field.
	Property string
}

// NewTerminal returns a terminal clause.
func NewTerminal(field string, op Operator, operand Operand) *Terminal {
	return &Terminal{Field: field, Operator: op, Operand: operand}
}

// WithHistory returns a copy of t carrying predicate.
func (t *Terminal) WithHistory(predicate *HistoryPredicate) *Terminal {
	c := *t
	c.History = predicate
	return &c
}

// WithOperator returns a copy of t using op.
func (t *Terminal) WithOperator(op Operator) *Terminal {
	c := *t
	c.Operator = op
	return &c
}

func (*Terminal) clause() {}

func (t *Terminal) String() string {
	var sb strings.Builder
	sb.WriteString(t.Field)
	if t.Property != "" {
		sb.WriteString("[" + t.Property + "]")
	}
	sb.WriteString(" " + t.Operator.String())
	if t.Operand != nil {
		sb.WriteString(" " + t.Operand.String())
	}
	if t.History != nil {
		sb.WriteString(t.History.String())
	}
	return sb.String()
}

// And matches when every child matches.
type And struct {
	Children []Clause
}

// NewAnd returns a conjunction.
func NewAnd(children ...Clause) *And {
	return &And{Children: children}
}

func (*And) clause() {}

func (a *And) String() string {
	return join(a.Children, " AND ")
}

// Or matches when any child matches.
type Or struct {
	Children []Clause
}

// NewOr returns a disjunction.
func NewOr(children ...Clause) *Or {
	return &Or{Children: children}
}

func (*Or) clause() {}

func (o *Or) String() string {
	return join(o.Children, " OR ")
}

// Not negates its child.
type Not struct {
	Child Clause
}

// NewNot returns a negation.
func NewNot(child Clause) *Not {
	return &Not{Child: child}
}

func (*Not) clause() {}

func (n *Not) String() string {
	return "NOT " + wrap(n.Child)
}

func join(children []Clause, sep string) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		parts = append(parts, wrap(c))
	}
	return strings.Join(parts, sep)
}

func wrap(c Clause) string {
	switch c.(type) {
	case *And, *Or:
		return "(" + c.String() + ")"
	default:
		return c.String()
	}
}

// Validate checks the structural rules of the tree rooted at c.
func Validate(c Clause) error {
	switch c := c.(type) {
	case *Terminal:
		return validateTerminal(c)
	case *And:
		return validateChildren("AND", c.Children)
	case *Or:
		return validateChildren("OR", c.Children)
	case *Not:
		if c.Child == nil {
			return errors.Wrap(ErrInvalidClause, "NOT without a child")
		}
		return Validate(c.Child)
	case nil:
		return errors.Wrap(ErrInvalidClause, "nil clause")
	default:
		return errors.Wrapf(ErrInvalidClause, "unknown clause %T", c)
	}
}

func validateChildren(kind string, children []Clause) error {
	if len(children) == 0 {
		return errors.Wrapf(ErrInvalidClause, "%s without children", kind)
	}
	for _, c := range children {
		if err := Validate(c); err != nil {
			return err
		}
	}
	return nil
}

func validateTerminal(t *Terminal) error {
	if t.Field == "" {
		return errors.Wrap(ErrInvalidClause, "terminal clause without field")
	}
	if _, ok := operators[t.Operator]; !ok {
		return errors.Wrapf(ErrInvalidClause, "unknown operator %q on %s", string(t.Operator), t.Field)
	}
	if t.Operand == nil && t.Operator != OpChanged {
		return errors.Wrapf(ErrInvalidClause, "%s %s without operand", t.Field, t.Operator)
	}
	if t.History != nil && !t.Operator.IsHistory() {
		return errors.Wrapf(ErrInvalidClause, "history predicate on %s %s", t.Field, t.Operator)
	}
	return nil
}
