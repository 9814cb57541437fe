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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in      string
		want    Operator
		wantErr bool
	}{
		{in: "=", want: OpEquals},
		{in: "NOT   IN", want: OpNotIn},
		{in: "Was Not In", want: OpWasNotIn},
		{in: "changed", want: OpChanged},
		{in: "~=", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperator(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClause)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOperatorNegate(t *testing.T) {
	for op := range negations {
		n, ok := op.Negate()
		require.True(t, ok)
		back, ok := n.Negate()
		require.True(t, ok)
		assert.Equal(t, op, back)
		assert.Equal(t, op.IsHistory(), n.IsHistory())
	}
	_, ok := OpChanged.Negate()
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	c := NewAnd(
		NewTerminal("project", OpEquals, Str("HSP")),
		NewOr(
			NewTerminal("votes", OpGreaterThan, Int(3)),
			NewNot(NewTerminal("assignee", OpIn, List(Func("currentUser"), Empty{}))),
		),
		NewTerminal("status", OpWas, Str("Open")).WithHistory(NewHistoryPredicate(
			By(Str("admin")), During(Str("2024-01-01"), Str("2024-02-01")),
		)),
	)
	assert.Equal(t,
		`project = "HSP" AND (votes > 3 OR NOT assignee IN (currentUser(), EMPTY)) AND status WAS "Open" BY "admin" DURING ("2024-01-01", "2024-02-01")`,
		c.String())
}

func TestDecode(t *testing.T) {
	doc := `
and:
  - field: project
    operator: "="
    value: HSP
  - or:
      - field: votes
        operator: ">"
        value: 3
      - not:
          field: assignee
          operator: not in
          values: [bob, null, {function: {name: currentUser}}]
  - field: priority
    operator: is
    empty: true
  - field: status
    operator: was
    value: Open
    history:
      - by: admin
      - during: ["2024-01-01", "2024-02-01"]
  - field: fixVersion
    operator: in
    function:
      name: releasedVersions
      args: [HSP]
`
	c, err := Decode([]byte(doc))
	require.NoError(t, err)
	want := NewAnd(
		NewTerminal("project", OpEquals, Str("HSP")),
		NewOr(
			NewTerminal("votes", OpGreaterThan, Int(3)),
			NewNot(NewTerminal("assignee", OpNotIn, List(Str("bob"), Empty{}, Func("currentUser")))),
		),
		NewTerminal("priority", OpIs, Empty{}),
		NewTerminal("status", OpWas, Str("Open")).WithHistory(NewHistoryPredicate(
			By(Str("admin")), During(Str("2024-01-01"), Str("2024-02-01")),
		)),
		NewTerminal("fixVersion", OpIn, Func("releasedVersions", "HSP")),
	)
	assert.Equal(t, want, c)
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown operator", doc: `{field: status, operator: "=~", value: x}`},
		{name: "empty node", doc: `{}`},
		{name: "missing operand", doc: `{field: status, operator: "="}`},
		{name: "history on equality", doc: `{field: status, operator: "=", value: x, history: [{by: bob}]}`},
		{name: "unknown history", doc: `{field: status, operator: was, value: x, history: [{since: bob}]}`},
		{name: "short during", doc: `{field: status, operator: changed, history: [{during: ["2024-01-01"]}]}`},
		{name: "not yaml", doc: `[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidClause)
		})
	}
}

func TestDecodeChangedWithoutOperand(t *testing.T) {
	c, err := Decode([]byte(`{field: assignee, operator: changed, history: [{after: "2024-01-01"}]}`))
	require.NoError(t, err)
	term := c.(*Terminal)
	assert.Nil(t, term.Operand)
	assert.Equal(t, []HistoryTerm{After(Str("2024-01-01"))}, term.History.Terms)
}
