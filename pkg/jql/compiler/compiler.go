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

// Package compiler translates clause trees into queries against the issue index.
package compiler

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/collector"
	"github.com/apache/skywalking-issueql/pkg/index/inverted"
	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/factory"
	"github.com/apache/skywalking-issueql/pkg/jql/permission"
	"github.com/apache/skywalking-issueql/pkg/jql/registry"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/meter"
)

// ErrCyclicReference is returned when a saved filter refers to itself.
var ErrCyclicReference = errors.New("cyclic saved filter reference")

// Options configures a Compiler. Zero values take the defaults.
type Options struct {
	Logger  *logger.Logger
	Metrics meter.Provider
	// History is the change history index history clauses search.
	History            index.Searcher
	Location           *time.Location
	MaxClauses         int
	SummaryBoost       float64
	HistoryDirectRatio uint64
	HistoryDirectFloor uint64
	HoursPerDay        int
	DaysPerWeek        int
}

// DefaultOptions returns the options holding every default.
func DefaultOptions() Options {
	return Options{
		Location:           time.UTC,
		MaxClauses:         inverted.DefaultMaxClauses,
		SummaryBoost:       registry.DefaultSummaryBoost,
		HistoryDirectRatio: collector.DefaultRatio,
		HistoryDirectFloor: collector.DefaultFloor,
		HoursPerDay:        8,
		DaysPerWeek:        5,
	}
}

// Request is the identity a clause is compiled for.
type Request struct {
	// Cache holds the authorization filters built for the request. A nil
	// cache is replaced by one living as long as the compilation.
	Cache *permission.FilterCache
	CC    jql.CreationContext
}

// Compiler compiles clause trees. It's safe for concurrent use.
type Compiler struct {
	registry   *registry.Registry
	provider   *permission.QueryProvider
	l          *logger.Logger
	compiled   meter.Counter
	latency    meter.Histogram
	maxClauses int
}

// New returns a Compiler resolving values against dir.
func New(dir resolve.Directory, opts Options) *Compiler {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("compiler")
	}
	if opts.MaxClauses <= 0 {
		opts.MaxClauses = inverted.DefaultMaxClauses
	}
	p := meter.OrNoop(opts.Metrics)
	return &Compiler{
		registry: registry.New(dir, registry.Options{
			Logger:       opts.Logger.Named("registry"),
			Metrics:      p,
			Location:     opts.Location,
			History:      opts.History,
			SummaryBoost: opts.SummaryBoost,
			HoursPerDay:  opts.HoursPerDay,
			DaysPerWeek:  opts.DaysPerWeek,
			Collector: collector.Options{
				Ratio: opts.HistoryDirectRatio,
				Floor: opts.HistoryDirectFloor,
			},
		}),
		provider:   permission.NewQueryProvider(dir, opts.Logger.Named("permission")),
		l:          opts.Logger,
		maxClauses: opts.MaxClauses,
		compiled:   p.Counter("compile_total", "result"),
		latency:    p.Histogram("compile_latency", meter.DefBuckets),
	}
}

// Compile returns the query matching the issues c selects.
//
// Clauses that can't apply to their field compile to a query matching nothing.
// Errors are reserved for saved filters referring to themselves, failures of the
// history index and trees over the clause limit.
func (c *Compiler) Compile(ctx context.Context, req Request, cl clause.Clause) (q index.Query, err error) {
	start := time.Now()
	defer func() {
		c.latency.Observe(time.Since(start).Seconds())
		c.compiled.Inc(1, resultLabel(err))
	}()
	if err = clause.Validate(cl); err != nil {
		return nil, err
	}
	if req.Cache == nil {
		req.Cache = permission.NewFilterCache()
	}
	v := &visitor{
		Compiler: c,
		l:        logger.FetchOrDefault(ctx, "compiler", c.l),
		env:      factory.Env{Cache: req.Cache, CC: req.CC},
		path:     make(map[int64]struct{}),
	}
	v.env.Visitor = v
	if q, err = v.visit(ctx, cl, false); err != nil {
		return nil, err
	}
	if n := index.CountClauses(q); n > c.maxClauses {
		return nil, errors.Wrapf(index.ErrTooManyClauses, "%d clauses exceed the limit %d", n, c.maxClauses)
	}
	return q, nil
}

// Scope restricts q, compiled for req, to the issues the user may browse at the
// security levels the user holds.
func (c *Compiler) Scope(ctx context.Context, req Request, q index.Query) index.Query {
	return c.provider.Scope(ctx, req.CC, req.Cache, q)
}

// Explain compiles cl and renders the query as indented JSON.
func (c *Compiler) Explain(ctx context.Context, req Request, cl clause.Clause) (string, error) {
	q, err := c.Compile(ctx, req, cl)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCyclicReference):
		return "cyclic"
	case errors.Is(err, index.ErrTooManyClauses):
		return "too_complex"
	default:
		return "error"
	}
}

// visitor walks one clause tree. Negation is pushed down to the terminals.
type visitor struct {
	*Compiler
	l     *logger.Logger
	path  map[int64]struct{}
	trail []string
	env   factory.Env
}

// VisitFilter implements factory.Visitor.
func (v *visitor) VisitFilter(ctx context.Context, f resolve.Filter) (index.Query, error) {
	if _, ok := v.path[f.ID]; ok {
		return nil, errors.Wrapf(ErrCyclicReference, "filter %d %q through %s",
			f.ID, f.Name, strings.Join(append(v.trail, f.Name), " -> "))
	}
	if f.Clause == nil {
		return index.NewMatchNoneQuery(), nil
	}
	v.path[f.ID] = struct{}{}
	v.trail = append(v.trail, f.Name)
	defer func() {
		delete(v.path, f.ID)
		v.trail = v.trail[:len(v.trail)-1]
	}()
	return v.visit(ctx, f.Clause, false)
}

func (v *visitor) visit(ctx context.Context, c clause.Clause, negate bool) (index.Query, error) {
	switch c := c.(type) {
	case *clause.And:
		if negate {
			return v.or(ctx, c.Children, true)
		}
		return v.and(ctx, c.Children, false)
	case *clause.Or:
		if negate {
			return v.and(ctx, c.Children, true)
		}
		return v.or(ctx, c.Children, false)
	case *clause.Not:
		return v.visit(ctx, c.Child, !negate)
	case *clause.Terminal:
		return v.terminal(ctx, c, negate)
	default:
		return nil, errors.Wrapf(clause.ErrInvalidClause, "unknown clause %T", c)
	}
}

// and compiles every child, even after one matched nothing.
func (v *visitor) and(ctx context.Context, children []clause.Clause, negate bool) (index.Query, error) {
	var (
		must []index.Query
		none bool
	)
	for _, child := range children {
		q, err := v.visit(ctx, child, negate)
		if err != nil {
			return nil, err
		}
		switch q.(type) {
		case *index.MatchNoneQuery:
			none = true
		case *index.MatchAllQuery:
		default:
			must = append(must, q)
		}
	}
	switch {
	case none:
		return index.NewMatchNoneQuery(), nil
	case len(must) == 0:
		return index.NewMatchAllQuery(), nil
	case len(must) == 1:
		return must[0], nil
	default:
		return index.NewBooleanQuery().AddMust(must...), nil
	}
}

func (v *visitor) or(ctx context.Context, children []clause.Clause, negate bool) (index.Query, error) {
	var (
		should []index.Query
		all    bool
	)
	for _, child := range children {
		q, err := v.visit(ctx, child, negate)
		if err != nil {
			return nil, err
		}
		switch q.(type) {
		case *index.MatchNoneQuery:
		case *index.MatchAllQuery:
			all = true
		default:
			should = append(should, q)
		}
	}
	return anyOf(should, all), nil
}

func anyOf(queries []index.Query, all bool) index.Query {
	switch {
	case all:
		return index.NewMatchAllQuery()
	case len(queries) == 0:
		return index.NewMatchNoneQuery()
	case len(queries) == 1:
		return queries[0]
	default:
		return index.NewBooleanQuery().AddShould(queries...)
	}
}

func (v *visitor) terminal(ctx context.Context, t *clause.Terminal, negate bool) (index.Query, error) {
	if negate {
		op, ok := t.Operator.Negate()
		if !ok {
			q, err := v.terminal(ctx, t, false)
			if err != nil {
				return nil, err
			}
			return not(q), nil
		}
		t = t.WithOperator(op)
	}
	compilers := v.registry.Lookup(ctx, t.Field, v.env.CC)
	if len(compilers) == 0 {
		v.l.Debug().Str("field", t.Field).Msg("no compiler for field")
		return index.NewMatchNoneQuery(), nil
	}
	var (
		queries []index.Query
		all     bool
	)
	for _, cc := range compilers {
		r, err := cc.Compile(ctx, v.env, t)
		if err != nil {
			return nil, err
		}
		switch q := r.Resolve().(type) {
		case *index.MatchNoneQuery:
		case *index.MatchAllQuery:
			all = true
		default:
			queries = append(queries, q)
		}
	}
	return anyOf(queries, all), nil
}

func not(q index.Query) index.Query {
	switch q.(type) {
	case *index.MatchNoneQuery:
		return index.NewMatchAllQuery()
	case *index.MatchAllQuery:
		return index.NewMatchNoneQuery()
	default:
		return index.NewBooleanQuery().AddMustNot(q)
	}
}
