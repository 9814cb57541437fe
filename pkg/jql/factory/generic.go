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

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/converter"
	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/jql/permission"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/logger"
)

// Visitor compiles the clause of a saved filter within the current traversal.
type Visitor interface {
	VisitFilter(ctx context.Context, f resolve.Filter) (index.Query, error)
}

// Env is the state of one compilation shared by every clause compiler.
type Env struct {
	Visitor Visitor
	Cache   *permission.FilterCache
	CC      jql.CreationContext
}

// ClauseCompiler compiles the terminal clauses of a field.
//
// Compile returns False for clause shapes it doesn't support. Errors are
// reserved for failures that invalidate the whole query.
type ClauseCompiler interface {
	Compile(ctx context.Context, env Env, t *clause.Terminal) (Result, error)
}

// CompilerFunc adapts a function to ClauseCompiler.
type CompilerFunc func(ctx context.Context, env Env, t *clause.Terminal) (Result, error)

// Compile implements ClauseCompiler.
func (f CompilerFunc) Compile(ctx context.Context, env Env, t *clause.Terminal) (Result, error) {
	return f(ctx, env, t)
}

// Any compiles a clause with every compiler and matches when any of them does.
func Any(compilers ...ClauseCompiler) ClauseCompiler {
	return CompilerFunc(func(ctx context.Context, env Env, t *clause.Terminal) (Result, error) {
		var queries []index.Query
		for _, c := range compilers {
			r, err := c.Compile(ctx, env, t)
			if err != nil {
				return Result{}, err
			}
			if q := r.Resolve(); !index.IsMatchNone(q) {
				queries = append(queries, q)
			}
		}
		if q := or(queries); q != nil {
			return Result{Query: q}, nil
		}
		return False(), nil
	})
}

var _ ClauseCompiler = (*Generic)(nil)

// Generic compiles a field from its operand resolver, converter and strategies.
type Generic struct {
	resolver   *literal.Resolver
	conv       converter.Converter
	l          *logger.Logger
	field      string
	strategies []Strategy
	boost      float64
}

// NewGeneric returns the compiler of the index field. conv may be nil for free text fields.
func NewGeneric(field string, resolver *literal.Resolver, conv converter.Converter, strategies ...Strategy) *Generic {
	return &Generic{
		resolver:   resolver,
		conv:       conv,
		field:      field,
		strategies: strategies,
		l:          logger.GetLogger("factory").Named(field),
	}
}

// WithBoost sets the relevance multiplier of positive fragments.
func (g *Generic) WithBoost(boost float64) *Generic {
	g.boost = boost
	return g
}

// Field returns the index field.
func (g *Generic) Field() string {
	return g.field
}

// Values resolves the operand of t into values carrying their indexed form.
func (g *Generic) Values(ctx context.Context, cc jql.CreationContext, operand clause.Operand) ([]Value, bool) {
	literals, ok := g.resolver.Values(ctx, cc, operand)
	if !ok {
		return nil, false
	}
	values := make([]Value, 0, len(literals))
	for _, l := range literals {
		v := Value{Literal: l}
		if !l.IsEmpty() && g.conv != nil {
			v.Terms = g.conv.IndexedValues(ctx, l)
			if r, isRanger := g.conv.(converter.Ranger); isRanger {
				v.Lo, v.Hi, v.Ranged = r.IndexedRange(ctx, l)
			}
		}
		values = append(values, v)
	}
	return values, true
}

// IndexedTerms returns every term the operand resolves to.
func (g *Generic) IndexedTerms(ctx context.Context, cc jql.CreationContext, operand clause.Operand) []string {
	values, _ := g.Values(ctx, cc, operand)
	var terms []string
	for _, v := range values {
		terms = append(terms, v.Terms...)
	}
	return terms
}

// Compile implements ClauseCompiler.
func (g *Generic) Compile(ctx context.Context, env Env, t *clause.Terminal) (Result, error) {
	values, ok := g.Values(ctx, env.CC, t.Operand)
	if !ok || len(values) == 0 {
		g.l.Debug().Str("clause", t.String()).Msg("operand resolves to nothing")
		return False(), nil
	}
	var (
		strategy Strategy
		found    bool
	)
	for _, s := range g.strategies {
		if s.HandlesOperator(t.Operator) {
			strategy, found = s, true
			break
		}
	}
	if !found {
		g.l.Debug().Str("clause", t.String()).Msg("unsupported operator")
		return False(), nil
	}
	var r Result
	switch {
	case clause.IsEmpty(t.Operand) && t.Operator.AcceptsEmpty() && !t.Operator.IsList():
		r = strategy.ForEmptyOperand(g.field, t.Operator)
	case t.Operator.IsList():
		r = strategy.ForMultipleValues(ctx, g.field, t.Operator, values)
	default:
		r = strategy.ForSingleValue(ctx, g.field, t.Operator, values)
	}
	if g.boost > 0 && !r.MustNegate && !index.IsMatchNone(r.Query) {
		r.Query = index.NewBooleanQuery().AddMust(r.Query).SetBoost(g.boost)
	}
	if e := g.l.Debug(); e.Enabled() {
		e.Str("clause", t.String()).Stringer("strategy", strategy.Kind).
			Bool("mustNegate", r.MustNegate).Stringer("query", r.Query).Msg("compiled clause")
	}
	return r, nil
}
