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

// Package history answers WAS, WAS IN, WAS NOT, WAS NOT IN and CHANGED clauses
// from the change history index.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/apache/skywalking-issueql/pkg/convert"
	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/collector"
	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/converter"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/meter"
	"github.com/apache/skywalking-issueql/pkg/timestamp"
)

// ErrHistorySearch indicates the change history index failed to answer.
var ErrHistorySearch = errors.New("history search failed")

// Phase is the progress of one history search.
type Phase int

// Phases in order.
const (
	PhaseIdle Phase = iota
	PhaseResolvingOperand
	PhaseSearchingHistoryIndex
	PhaseCollectingIDs
	PhaseBuildingFilter
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolvingOperand:
		return "resolving-operand"
	case PhaseSearchingHistoryIndex:
		return "searching-history-index"
	case PhaseCollectingIDs:
		return "collecting-ids"
	case PhaseBuildingFilter:
		return "building-filter"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options configures an Engine.
type Options struct {
	Logger  *logger.Logger
	Metrics meter.Provider
	// OnPhase observes every phase a search enters.
	OnPhase   func(Phase)
	Collector collector.Options
}

// Engine compiles history clauses into id filters over the primary index.
// It is safe for concurrent use; searches share no mutable state.
type Engine struct {
	history   index.Searcher
	resolver  *literal.Resolver
	users     converter.Converter
	dates     *converter.Date
	l         *logger.Logger
	onPhase   func(Phase)
	collected meter.Counter
	idCount   meter.Histogram
	latency   meter.Histogram
	opts      collector.Options
}

// NewEngine returns an Engine searching history. users converts BY operands
// and dates the time windows.
func NewEngine(history index.Searcher, resolver *literal.Resolver, users converter.Converter,
	dates *converter.Date, opts Options,
) *Engine {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("history")
	}
	p := meter.OrNoop(opts.Metrics)
	return &Engine{
		history:   history,
		resolver:  resolver,
		users:     users,
		dates:     dates,
		l:         opts.Logger,
		onPhase:   opts.OnPhase,
		opts:      opts.Collector,
		collected: p.Counter("history_collect_total", "strategy"),
		idCount:   p.Histogram("history_ids", meter.CountBuckets),
		latency:   p.Histogram("history_latency", meter.DefBuckets, "result"),
	}
}

// Request is a history clause over a tracked field.
type Request struct {
	// Converter maps the values of the field to the ids it's indexed with.
	Converter converter.Converter
	Clause    *clause.Terminal
	// Field is the index field the history records name.
	Field string
	CC    jql.CreationContext
}

type search struct {
	*Engine
	l     *logger.Logger
	req   Request
	phase Phase
}

func (s *search) enter(p Phase) {
	s.phase = p
	if s.onPhase != nil {
		s.onPhase(p)
	}
	s.l.Debug().Str("field", s.req.Field).Stringer("operator", s.req.Clause.Operator).Stringer("phase", p).Msg("history search")
}

// Search returns a filter over the issue ids answering req.
//
// A positive clause whose operand resolves to nothing matches no issue, a negative
// one every issue having history of the field. Failures of the history index
// are returned as ErrHistorySearch.
func (e *Engine) Search(ctx context.Context, req Request) (q index.Query, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		e.latency.Observe(time.Since(start).Seconds(), result)
	}()
	s := &search{Engine: e, req: req, l: logger.FetchOrDefault(ctx, "history", e.l)}
	s.enter(PhaseIdle)
	return s.run(ctx)
}

func (s *search) run(ctx context.Context) (index.Query, error) {
	t := s.req.Clause
	negative := t.Operator.IsNegative()

	s.enter(PhaseResolvingOperand)
	matched, state := s.buildQuery(ctx)
	switch state {
	case unsupported:
		s.enter(PhaseDone)
		return index.NewMatchNoneQuery(), nil
	case unresolved:
		if !negative {
			s.enter(PhaseBuildingFilter)
			return s.filter(nil), nil
		}
		matched = index.NewMatchNoneQuery()
	}

	s.enter(PhaseSearchingHistoryIndex)
	var ids []string
	if negative {
		var all, hit []string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			all, err = s.collect(gctx, index.NewTermQuery(document.FieldChangeField, s.req.Field))
			return err
		})
		g.Go(func() (err error) {
			hit, err = s.collect(gctx, matched)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		s.enter(PhaseCollectingIDs)
		ids = subtract(unique(all), unique(hit))
	} else {
		hit, err := s.collect(ctx, matched)
		if err != nil {
			return nil, err
		}
		s.enter(PhaseCollectingIDs)
		ids = unique(hit)
	}

	s.enter(PhaseBuildingFilter)
	return s.filter(ids), nil
}

func (s *search) filter(ids []string) index.Query {
	s.idCount.Observe(float64(len(ids)))
	s.enter(PhaseDone)
	return index.NewDocIDSetQuery(document.FieldIssueID, ids)
}

func (s *search) collect(ctx context.Context, q index.Query) ([]string, error) {
	if index.IsMatchNone(q) {
		return nil, nil
	}
	ids, strategy, err := collector.Run(ctx, s.history, q, document.FieldChangeIssueID, s.opts)
	if err != nil {
		return nil, errors.Wrapf(ErrHistorySearch, "%s on %s: %v", s.req.Clause, s.req.Field, err)
	}
	s.collected.Inc(1, strategy.String())
	s.l.Debug().Stringer("strategy", strategy).Int("hits", len(ids)).Msg("collected history records")
	return ids, nil
}

type buildState int

const (
	built buildState = iota
	unresolved
	unsupported
)

// buildQuery returns the query over the history records the clause looks for.
func (s *search) buildQuery(ctx context.Context) (index.Query, buildState) {
	t := s.req.Clause
	q := index.NewBooleanQuery().AddMust(index.NewTermQuery(document.FieldChangeField, s.req.Field))
	if t.Operator == clause.OpChanged {
		q.AddMust(index.NewTermQuery(document.FieldChangeKind, document.ChangeKindChange))
	} else {
		literals, ok := s.resolver.Values(ctx, s.req.CC, t.Operand)
		if !ok || len(literals) == 0 {
			return nil, unresolved
		}
		q.AddMust(s.heldAny(ctx, literals))
	}
	if t.History == nil {
		return q, built
	}
	for _, term := range t.History.Terms {
		pq, ok := s.predicate(ctx, term)
		if !ok {
			s.l.Debug().Str("predicate", string(term.Kind)).Msg("unsupported history predicate")
			return nil, unsupported
		}
		q.AddMust(pq)
	}
	return q, built
}

// heldAny matches the records after which the field held one of literals.
// Every issue has a record of the value it was created with.
func (s *search) heldAny(ctx context.Context, literals []literal.Literal) index.Query {
	var held []index.Query
	for _, l := range literals {
		held = append(held, s.values(ctx, l, document.FieldChangeTo, document.FieldChangeNewValue)...)
	}
	return index.NewBooleanQuery().AddShould(held...)
}

// values matches l in the id field, or when l names no current value, its display text in the text field.
func (s *search) values(ctx context.Context, l literal.Literal, idField, textField string) []index.Query {
	if l.IsEmpty() {
		return []index.Query{index.NewTermQuery(idField, document.EmptySentinel)}
	}
	var result []index.Query
	for _, id := range s.req.Converter.IndexedValues(ctx, l) {
		result = append(result, index.NewTermQuery(idField, id))
	}
	if len(result) == 0 {
		result = append(result, index.NewTermQuery(textField, document.ChangeText(l.Text())))
	}
	return result
}

func (s *search) predicate(ctx context.Context, term clause.HistoryTerm) (index.Query, bool) {
	literals, ok := s.resolver.Values(ctx, s.req.CC, term.Operand)
	if !ok || len(literals) == 0 {
		return nil, false
	}
	switch term.Kind {
	case clause.HistoryBy:
		q := index.NewBooleanQuery()
		for _, l := range literals {
			for _, who := range s.users.IndexedValues(ctx, l) {
				q.AddShould(index.NewTermQuery(document.FieldChangeWho, who))
			}
		}
		if len(q.Should) == 0 {
			return index.NewMatchNoneQuery(), true
		}
		return q, true
	case clause.HistoryFrom, clause.HistoryTo:
		if s.req.Clause.Operator != clause.OpChanged {
			return nil, false
		}
		idField, textField := document.FieldChangeTo, document.FieldChangeNewValue
		if term.Kind == clause.HistoryFrom {
			idField, textField = document.FieldChangeFrom, document.FieldChangeOldValue
		}
		var values []index.Query
		for _, l := range literals {
			values = append(values, s.values(ctx, l, idField, textField)...)
		}
		return index.NewBooleanQuery().AddShould(values...), true
	case clause.HistoryBefore:
		r, ok := s.window(ctx, literals, 1)
		if !ok {
			return nil, false
		}
		return index.NewTermRangeQuery(document.FieldChangeDate, "", convert.TimeToTerm(r[0].Start), false, false), true
	case clause.HistoryAfter:
		r, ok := s.window(ctx, literals, 1)
		if !ok {
			return nil, false
		}
		// Strictly after the period: the first instant past it, inclusive.
		lower := r[0].End.Add(time.Millisecond)
		return index.NewTermRangeQuery(document.FieldChangeDate, convert.TimeToTerm(lower), "", true, false), true
	case clause.HistoryDuring:
		r, ok := s.window(ctx, literals, 2)
		if !ok || r[1].End.Before(r[0].Start) {
			return nil, false
		}
		return index.NewTermRangeQuery(document.FieldChangeDate,
			convert.TimeToTerm(r[0].Start), convert.TimeToTerm(r[1].End), true, true), true
	case clause.HistoryOn:
		r, ok := s.window(ctx, literals, 1)
		if !ok {
			return nil, false
		}
		return index.NewTermRangeQuery(document.FieldChangeDate,
			convert.TimeToTerm(r[0].Start), convert.TimeToTerm(r[0].End), true, true), true
	default:
		return nil, false
	}
}

func (s *search) window(ctx context.Context, literals []literal.Literal, n int) ([]timestamp.TimeRange, bool) {
	if len(literals) != n {
		return nil, false
	}
	result := make([]timestamp.TimeRange, 0, n)
	for _, l := range literals {
		r, ok := s.dates.Range(ctx, l)
		if !ok {
			return nil, false
		}
		result = append(result, r)
	}
	return result, true
}

func unique(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	result := ids[:1]
	for _, id := range ids[1:] {
		if id != result[len(result)-1] {
			result = append(result, id)
		}
	}
	return result
}

// subtract returns the sorted ids of all missing from hit, both sorted.
func subtract(all, hit []string) []string {
	var result []string
	j := 0
	for _, id := range all {
		for j < len(hit) && hit[j] < id {
			j++
		}
		if j < len(hit) && hit[j] == id {
			continue
		}
		result = append(result, id)
	}
	return result
}
