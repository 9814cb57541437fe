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

// Package search runs compiled clause trees against the issue index.
package search

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/collector"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/compiler"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/permission"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/meter"
)

// ErrClauseTooComplex is returned when the index refuses a query for holding too many clauses.
var ErrClauseTooComplex = errors.New("clause too complex")

// Options configures a Service.
type Options struct {
	Logger    *logger.Logger
	Metrics   meter.Provider
	Collector collector.Options
}

// Service compiles clause trees and returns the ids of the matching issues.
type Service struct {
	compiler *compiler.Compiler
	primary  index.Searcher
	l        *logger.Logger
	searched meter.Counter
	hits     meter.Histogram
	latency  meter.Histogram
	opts     collector.Options
}

// NewService returns a Service searching primary.
func NewService(c *compiler.Compiler, primary index.Searcher, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("search")
	}
	p := meter.OrNoop(opts.Metrics)
	return &Service{
		compiler: c,
		primary:  primary,
		l:        opts.Logger,
		opts:     opts.Collector,
		searched: p.Counter("search_total", "result"),
		hits:     p.Histogram("search_hits", meter.CountBuckets),
		latency:  p.Histogram("search_latency", meter.DefBuckets),
	}
}

// Search returns the ids of the issues cl matches that the user may see, in ascending order.
func (s *Service) Search(ctx context.Context, req compiler.Request, cl clause.Clause) (ids []string, err error) {
	requestID := uuid.NewString()
	l := s.l.Tagged("request", requestID)
	ctx = logger.WithLogger(ctx, l)
	start := time.Now()
	defer func() {
		s.latency.Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case errors.Is(err, ErrClauseTooComplex):
			result = "too_complex"
		case err != nil:
			result = "error"
		default:
			s.hits.Observe(float64(len(ids)))
		}
		s.searched.Inc(1, result)
		if err != nil {
			l.Warn().Err(err).Str("user", req.CC.User).Msg("search failed")
		}
	}()
	if req.Cache == nil {
		req.Cache = permission.NewFilterCache()
	}
	q, err := s.compiler.Compile(ctx, req, cl)
	if err != nil {
		return nil, tooComplex(err)
	}
	q = s.compiler.Scope(ctx, req, q)
	ids, strategy, err := collector.Run(ctx, s.primary, q, document.FieldIssueID, s.opts)
	if err != nil {
		return nil, tooComplex(err)
	}
	sortNumerically(ids)
	if e := l.Debug(); e.Enabled() {
		e.Str("clause", cl.String()).Stringer("strategy", strategy).
			Int("hits", len(ids)).Dur("took", time.Since(start)).Msg("searched")
	}
	return ids, nil
}

func tooComplex(err error) error {
	if errors.Is(err, index.ErrTooManyClauses) {
		return errors.Wrap(ErrClauseTooComplex, err.Error())
	}
	return err
}

func sortNumerically(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
}
