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
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// node is the document form of a clause:
//
//	and: [...]            or: [...]            not: {...}
//	field: status
//	operator: "not in"
//	values: [Open, 3, null, {function: {name: currentUser}}]
//	history: [{by: admin}, {during: ["2024-01-01", "2024-02-01"]}]
//
// value holds a single operand, values a list and empty: true the EMPTY marker.
type node struct {
	Not      *node                        `json:"not,omitempty"`
	Function *functionNode                `json:"function,omitempty"`
	Field    string                       `json:"field,omitempty"`
	Property string                       `json:"property,omitempty"`
	Operator string                       `json:"operator,omitempty"`
	Value    json.RawMessage              `json:"value,omitempty"`
	And      []node                       `json:"and,omitempty"`
	Or       []node                       `json:"or,omitempty"`
	Values   []json.RawMessage            `json:"values,omitempty"`
	History  []map[string]json.RawMessage `json:"history,omitempty"`
	Empty    bool                         `json:"empty,omitempty"`
}

type functionNode struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// Decode parses a clause tree from YAML or JSON.
func Decode(data []byte) (Clause, error) {
	var n node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, errors.Wrapf(ErrInvalidClause, "decode: %v", err)
	}
	c, err := n.toClause()
	if err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (n *node) toClause() (Clause, error) {
	switch {
	case len(n.And) > 0:
		children, err := toClauses(n.And)
		if err != nil {
			return nil, err
		}
		return NewAnd(children...), nil
	case len(n.Or) > 0:
		children, err := toClauses(n.Or)
		if err != nil {
			return nil, err
		}
		return NewOr(children...), nil
	case n.Not != nil:
		child, err := n.Not.toClause()
		if err != nil {
			return nil, err
		}
		return NewNot(child), nil
	case n.Field != "":
		return n.toTerminal()
	default:
		return nil, errors.Wrap(ErrInvalidClause, "node is neither compound nor terminal")
	}
}

func toClauses(nodes []node) ([]Clause, error) {
	result := make([]Clause, 0, len(nodes))
	for i := range nodes {
		c, err := nodes[i].toClause()
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (n *node) toTerminal() (*Terminal, error) {
	op, err := ParseOperator(n.Operator)
	if err != nil {
		return nil, err
	}
	t := &Terminal{Field: n.Field, Property: n.Property, Operator: op}
	switch {
	case n.Empty:
		t.Operand = Empty{}
	case n.Function != nil:
		t.Operand = Func(n.Function.Name, n.Function.Args...)
	case n.Values != nil:
		m := Multi{Values: make([]Operand, 0, len(n.Values))}
		for _, raw := range n.Values {
			o, err := decodeOperand(raw)
			if err != nil {
				return nil, err
			}
			m.Values = append(m.Values, o)
		}
		t.Operand = m
	case n.Value != nil:
		if t.Operand, err = decodeOperand(n.Value); err != nil {
			return nil, err
		}
	}
	if len(n.History) > 0 {
		p := &HistoryPredicate{}
		for _, h := range n.History {
			for k, raw := range h {
				term, err := decodeHistoryTerm(k, raw)
				if err != nil {
					return nil, err
				}
				p.Terms = append(p.Terms, term)
			}
		}
		t.History = p
	}
	return t, nil
}

func decodeHistoryTerm(k string, raw json.RawMessage) (HistoryTerm, error) {
	kind, err := ParseHistoryKind(k)
	if err != nil {
		return HistoryTerm{}, err
	}
	if kind == HistoryDuring {
		var bounds []json.RawMessage
		if err = json.Unmarshal(raw, &bounds); err != nil || len(bounds) != 2 {
			return HistoryTerm{}, errors.Wrap(ErrInvalidClause, "during takes two bounds")
		}
		from, err := decodeOperand(bounds[0])
		if err != nil {
			return HistoryTerm{}, err
		}
		to, err := decodeOperand(bounds[1])
		if err != nil {
			return HistoryTerm{}, err
		}
		return During(from, to), nil
	}
	o, err := decodeOperand(raw)
	if err != nil {
		return HistoryTerm{}, err
	}
	return HistoryTerm{Kind: kind, Operand: o}, nil
}

func decodeOperand(raw json.RawMessage) (Operand, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Empty{}, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(ErrInvalidClause, "decode string operand: %v", err)
		}
		return Str(s), nil
	case '{':
		var f struct {
			Function *functionNode `json:"function"`
		}
		if err := json.Unmarshal(raw, &f); err != nil || f.Function == nil {
			return nil, errors.Wrapf(ErrInvalidClause, "object operand %s is not a function", raw)
		}
		return Func(f.Function.Name, f.Function.Args...), nil
	case '[':
		var values []json.RawMessage
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, errors.Wrapf(ErrInvalidClause, "decode list operand: %v", err)
		}
		m := Multi{Values: make([]Operand, 0, len(values))}
		for _, v := range values {
			o, err := decodeOperand(v)
			if err != nil {
				return nil, err
			}
			m.Values = append(m.Values, o)
		}
		return m, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return Str(string(raw)), nil
	}
	return Int(n), nil
}
