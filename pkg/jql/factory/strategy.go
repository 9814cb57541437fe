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

package factory

import (
	"context"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/inverted"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/converter"
	"github.com/apache/skywalking-issueql/pkg/jql/literal"
)

// Kind is an operator family.
type Kind int

// Operator families.
const (
	// KindEquality matches values by term, EMPTY through the sentinel or the presence markers.
	KindEquality Kind = iota
	// KindRangeEquality matches every value as the range of terms it covers, dates for instance.
	KindRangeEquality
	// KindRelational compares sortable terms.
	KindRelational
	// KindLike matches analyzed text.
	KindLike
	// KindMutatedRelational compares ordered constants by rank, priorities for instance.
	KindMutatedRelational
	// KindSecurityLevel is KindEquality with its own NOT IN (..., EMPTY) form.
	KindSecurityLevel
)

var kindNames = map[Kind]string{
	KindEquality:          "equality",
	KindRangeEquality:     "range-equality",
	KindRelational:        "relational",
	KindLike:              "like",
	KindMutatedRelational: "mutated-relational",
	KindSecurityLevel:     "security-level",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Value is a resolved literal with its indexed form.
type Value struct {
	Literal literal.Literal
	Lo, Hi  string
	Terms   []string
	// Ranged is set when Lo and Hi hold the inclusive range the literal covers.
	Ranged bool
}

// Strategy builds fragments for one operator family.
type Strategy struct {
	Ranker        converter.Ranker
	EmptySentinel string
	Analyzer      string
	Kind          Kind
}

// Equality returns an equality strategy. A non empty sentinel is the term indexed
// for a missing value.
func Equality(sentinel string) Strategy {
	return Strategy{Kind: KindEquality, EmptySentinel: sentinel}
}

// RangeEquality returns an equality strategy over ranged values.
func RangeEquality() Strategy {
	return Strategy{Kind: KindRangeEquality}
}

// Relational returns a relational strategy.
func Relational() Strategy {
	return Strategy{Kind: KindRelational}
}

// Like returns a free text strategy analyzing with analyzer.
func Like(analyzer string) Strategy {
	return Strategy{Kind: KindLike, Analyzer: analyzer}
}

// MutatedRelational returns a relational strategy over the ranks of r.
func MutatedRelational(r converter.Ranker) Strategy {
	return Strategy{Kind: KindMutatedRelational, Ranker: r}
}

// SecurityLevel returns the security level strategy.
func SecurityLevel(sentinel string) Strategy {
	return Strategy{Kind: KindSecurityLevel, EmptySentinel: sentinel}
}

// HandlesOperator reports whether the strategy compiles op.
func (s Strategy) HandlesOperator(op clause.Operator) bool {
	switch s.Kind {
	case KindEquality, KindRangeEquality, KindSecurityLevel:
		switch op {
		case clause.OpEquals, clause.OpNotEquals, clause.OpIn, clause.OpNotIn, clause.OpIs, clause.OpIsNot:
			return true
		}
	case KindRelational, KindMutatedRelational:
		return op.IsRelational()
	case KindLike:
		switch op {
		case clause.OpLike, clause.OpNotLike, clause.OpIs, clause.OpIsNot:
			return true
		}
	}
	return false
}

// ForSingleValue compiles an operator expecting one value.
func (s Strategy) ForSingleValue(ctx context.Context, field string, op clause.Operator, values []Value) Result {
	if !s.HandlesOperator(op) {
		return False()
	}
	switch s.Kind {
	case KindEquality, KindRangeEquality, KindSecurityLevel:
		if op != clause.OpEquals && op != clause.OpNotEquals {
			return False()
		}
		return s.equality(field, op == clause.OpNotEquals, values)
	case KindRelational:
		if len(values) != 1 {
			return False()
		}
		return relational(field, op, values[0])
	case KindMutatedRelational:
		if len(values) != 1 {
			return False()
		}
		return s.mutated(ctx, field, op, values[0])
	case KindLike:
		if len(values) != 1 || (op != clause.OpLike && op != clause.OpNotLike) {
			return False()
		}
		return s.like(field, op == clause.OpNotLike, values[0].Literal)
	default:
		return False()
	}
}

// ForMultipleValues compiles IN and NOT IN.
func (s Strategy) ForMultipleValues(_ context.Context, field string, op clause.Operator, values []Value) Result {
	if op != clause.OpIn && op != clause.OpNotIn {
		return False()
	}
	switch s.Kind {
	case KindEquality, KindRangeEquality, KindSecurityLevel:
		return s.equality(field, op == clause.OpNotIn, values)
	default:
		return False()
	}
}

// ForEmptyOperand compiles a comparison with EMPTY.
func (s Strategy) ForEmptyOperand(field string, op clause.Operator) Result {
	switch s.Kind {
	case KindEquality, KindRangeEquality, KindSecurityLevel, KindLike:
	default:
		return False()
	}
	switch op {
	case clause.OpEquals, clause.OpIs:
		return Result{Query: IsEmpty(field, s.EmptySentinel)}
	case clause.OpNotEquals, clause.OpIsNot:
		return Result{Query: NotEmpty(field, s.EmptySentinel)}
	default:
		return False()
	}
}

// equality matches any of values. A negative clause is compiled positive and
// left to the caller to exclude from the documents holding the field, which
// turns the alternatives into a conjunction of exclusions.
func (s Strategy) equality(field string, negative bool, values []Value) Result {
	var (
		terms    []index.Query
		hasEmpty bool
	)
	for _, v := range values {
		if v.Literal.IsEmpty() {
			hasEmpty = true
			continue
		}
		if s.Kind == KindRangeEquality && v.Ranged {
			terms = append(terms, index.NewTermRangeQuery(field, v.Lo, v.Hi, true, true))
			continue
		}
		for _, t := range v.Terms {
			terms = append(terms, index.NewTermQuery(field, t))
		}
	}
	if negative && s.Kind == KindSecurityLevel && hasEmpty && len(terms) > 0 {
		// Either branch suffices: issues without any of the levels, or with some level.
		exclusion := index.NewBooleanQuery().AddMust(Visible(field)).AddMustNot(terms...)
		return Result{Query: index.NewBooleanQuery().AddShould(exclusion, NotEmpty(field, s.EmptySentinel))}
	}
	if hasEmpty {
		terms = append(terms, IsEmpty(field, s.EmptySentinel))
	}
	q := or(terms)
	if !negative {
		if q == nil {
			return False()
		}
		return Result{Query: q}
	}
	if q == nil {
		return Result{Query: NotEmpty(field, s.EmptySentinel)}
	}
	return Result{Query: q, MustNegate: true, Presence: NotEmpty(field, s.EmptySentinel)}
}

func bounds(v Value) (lo, hi string, ok bool) {
	if v.Literal.IsEmpty() {
		return "", "", false
	}
	if v.Ranged {
		return v.Lo, v.Hi, true
	}
	if len(v.Terms) == 1 {
		return v.Terms[0], v.Terms[0], true
	}
	return "", "", false
}

func relational(field string, op clause.Operator, v Value) Result {
	lo, hi, ok := bounds(v)
	if !ok {
		return False()
	}
	var q index.Query
	switch op {
	case clause.OpGreaterThan:
		q = index.NewTermRangeQuery(field, hi, "", false, false)
	case clause.OpGreaterThanEquals:
		q = index.NewTermRangeQuery(field, lo, "", true, false)
	case clause.OpLessThan:
		q = index.NewTermRangeQuery(field, "", lo, false, false)
	case clause.OpLessThanEquals:
		q = index.NewTermRangeQuery(field, "", hi, false, true)
	default:
		return False()
	}
	return Result{Query: q}
}

// mutated compares against the ranks of the ordered values. Greater means a higher rank,
// which comes first.
func (s Strategy) mutated(ctx context.Context, field string, op clause.Operator, v Value) Result {
	if s.Ranker == nil || v.Literal.IsEmpty() || len(v.Terms) == 0 {
		return False()
	}
	ranked := s.Ranker.Ranked(ctx)
	pos := -1
	for i, r := range ranked {
		if slices.Contains(v.Terms, r) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return False()
	}
	var selected []string
	switch op {
	case clause.OpGreaterThan:
		selected = ranked[:pos]
	case clause.OpGreaterThanEquals:
		selected = ranked[:pos+1]
	case clause.OpLessThan:
		selected = ranked[pos+1:]
	case clause.OpLessThanEquals:
		selected = ranked[pos:]
	}
	terms := make([]index.Query, 0, len(selected))
	for _, t := range selected {
		terms = append(terms, index.NewTermQuery(field, t))
	}
	if q := or(terms); q != nil {
		return Result{Query: q}
	}
	return False()
}

// like matches every analyzed token of the literal. A trailing '*' turns the
// last token into a prefix.
func (s Strategy) like(field string, negative bool, l literal.Literal) Result {
	text := strings.TrimSpace(l.Text())
	if l.IsEmpty() || text == "" {
		return False()
	}
	var q index.Query
	if strings.HasSuffix(text, "*") {
		tokens := inverted.Analyze(s.Analyzer, strings.TrimRight(text, "*"))
		if len(tokens) == 0 {
			return False()
		}
		b := index.NewBooleanQuery()
		for _, t := range tokens[:len(tokens)-1] {
			b.AddMust(index.NewTermQuery(field, t))
		}
		q = b.AddMust(index.NewPrefixQuery(field, tokens[len(tokens)-1]))
	} else {
		if len(inverted.Analyze(s.Analyzer, text)) == 0 {
			return False()
		}
		q = index.NewMatchQuery(field, text, s.Analyzer)
	}
	if !negative {
		return Result{Query: q}
	}
	return Result{Query: q, MustNegate: true, Presence: NotEmpty(field, "")}
}
