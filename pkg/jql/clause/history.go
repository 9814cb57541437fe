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

// HistoryKind is the constraint of a history predicate term.
type HistoryKind string

// History predicate kinds.
const (
	HistoryBy     HistoryKind = "by"
	HistoryFrom   HistoryKind = "from"
	HistoryTo     HistoryKind = "to"
	HistoryBefore HistoryKind = "before"
	HistoryAfter  HistoryKind = "after"
	HistoryDuring HistoryKind = "during"
	HistoryOn     HistoryKind = "on"
)

// ParseHistoryKind normalizes s into a HistoryKind.
func ParseHistoryKind(s string) (HistoryKind, error) {
	k := HistoryKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case HistoryBy, HistoryFrom, HistoryTo, HistoryBefore, HistoryAfter, HistoryDuring, HistoryOn:
		return k, nil
	default:
		return "", errors.Wrapf(ErrInvalidClause, "unknown history predicate %q", s)
	}
}

// HistoryTerm is one constraint of a history predicate.
// DURING takes a two element list.
type HistoryTerm struct {
	Operand Operand
	Kind    HistoryKind
}

// HistoryPredicate restricts the changes a history clause looks at.
// All terms have to hold for the same change.
type HistoryPredicate struct {
	Terms []HistoryTerm
}

// NewHistoryPredicate returns a predicate of terms.
func NewHistoryPredicate(terms ...HistoryTerm) *HistoryPredicate {
	return &HistoryPredicate{Terms: terms}
}

// By returns a BY term.
func By(o Operand) HistoryTerm { return HistoryTerm{Kind: HistoryBy, Operand: o} }

// From returns a FROM term.
func From(o Operand) HistoryTerm { return HistoryTerm{Kind: HistoryFrom, Operand: o} }

// To returns a TO term.
func To(o Operand) HistoryTerm { return HistoryTerm{Kind: HistoryTo, Operand: o} }

// Before returns a BEFORE term.
func Before(o Operand) HistoryTerm { return HistoryTerm{Kind: HistoryBefore, Operand: o} }

// After returns an AFTER term.
func After(o Operand) HistoryTerm { return HistoryTerm{Kind: HistoryAfter, Operand: o} }

// During returns a DURING term over [from, to].
func During(from, to Operand) HistoryTerm {
	return HistoryTerm{Kind: HistoryDuring, Operand: List(from, to)}
}

// On returns an ON term.
func On(o Operand) HistoryTerm { return HistoryTerm{Kind: HistoryOn, Operand: o} }

func (p *HistoryPredicate) String() string {
	var sb strings.Builder
	for _, t := range p.Terms {
		sb.WriteString(" ")
		sb.WriteString(strings.ToUpper(string(t.Kind)))
		sb.WriteString(" ")
		sb.WriteString(t.Operand.String())
	}
	return sb.String()
}
