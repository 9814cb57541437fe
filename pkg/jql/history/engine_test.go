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

package history_test

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/collector"
	"github.com/apache/skywalking-issueql/pkg/index/inverted"
	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/converter"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/factory"
	"github.com/apache/skywalking-issueql/pkg/jql/history"
	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/meter"
	"github.com/apache/skywalking-issueql/pkg/meter/prom"
)

func at(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}

var issues = []document.Issue{
	{
		ID: 1, Key: "HSP-1", Status: "5", Assignee: "fred", Created: at(1, 10),
		Changes: []document.Change{
			{At: at(2, 10), Field: document.FieldStatus, Who: "admin", From: []string{"1"}, To: []string{"3"}, OldValue: "Open", NewValue: "In Progress"},
			{At: at(5, 10), Field: document.FieldStatus, Who: "fred", From: []string{"3"}, To: []string{"5"}, OldValue: "In Progress", NewValue: "Resolved"},
		},
	},
	{ID: 2, Key: "HSP-2", Status: "1", Assignee: "admin", Created: at(1, 11)},
	{
		ID: 3, Key: "HSP-3", Status: "1", Created: at(3, 10),
		Changes: []document.Change{
			{At: at(4, 10), Field: document.FieldStatus, Who: "fred", From: []string{"3"}, To: []string{"1"}, OldValue: "In Progress", NewValue: "Reopened"},
		},
	},
}

type failingSearcher struct {
	index.Searcher
}

func (failingSearcher) Collect(context.Context, index.Query, func(uint64)) error {
	return errors.New("disk failure")
}

type fixture struct {
	dir      *resolve.Memory
	store    *inverted.MemStore
	resolver *literal.Resolver
	phases   []history.Phase
}

func newFixture(issues ...document.Issue) *fixture {
	dir, err := resolve.NewMemory(resolve.Dataset{
		Users: []resolve.User{{Key: "admin", Name: "Administrator"}, {Key: "fred", Name: "Fred"}},
		Constants: []resolve.Constant{
			{Kind: resolve.KindStatus, ID: "1", Name: "Open", Sequence: 1},
			{Kind: resolve.KindStatus, ID: "3", Name: "In Progress", Sequence: 2},
			{Kind: resolve.KindStatus, ID: "5", Name: "Resolved", Sequence: 3},
		},
	})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	store := inverted.NewMemStore(inverted.MemStoreOpts{})
	b := document.NewBuilder(nil)
	for _, is := range issues {
		gomega.Expect(store.Insert(b.History(is)...)).To(gomega.Succeed())
	}
	return &fixture{
		dir:      dir,
		store:    store,
		resolver: literal.NewResolver(nil, literal.Functions(dir, time.UTC, nil)...),
	}
}

func (f *fixture) engine(s index.Searcher, opts collector.Options) *history.Engine {
	return history.NewEngine(s, f.resolver, converter.NewUser(f.dir, nil), converter.NewDate(time.UTC, nil), history.Options{
		Collector: opts,
		OnPhase:   func(p history.Phase) { f.phases = append(f.phases, p) },
	})
}

func (f *fixture) request(t *clause.Terminal) history.Request {
	var conv converter.Converter = converter.NewConstant(f.dir, resolve.KindStatus, nil)
	field := document.FieldStatus
	if t.Field == "assignee" {
		conv, field = converter.NewUser(f.dir, nil), document.FieldAssignee
	}
	return history.Request{Field: field, Converter: conv, Clause: t, CC: jql.CreationContext{User: "fred"}}
}

func ids(q index.Query) []string {
	set, ok := q.(*index.DocIDSetQuery)
	gomega.Expect(ok).To(gomega.BeTrue(), "expected an id filter, got %s", q)
	gomega.Expect(set.Field).To(gomega.Equal(document.FieldIssueID))
	return set.IDs
}

func status(op clause.Operator, operand clause.Operand, terms ...clause.HistoryTerm) *clause.Terminal {
	t := clause.NewTerminal("status", op, operand)
	if len(terms) > 0 {
		t = t.WithHistory(clause.NewHistoryPredicate(terms...))
	}
	return t
}

var _ = ginkgo.Describe("Engine", func() {
	var f *fixture

	ginkgo.BeforeEach(func() {
		f = newFixture(issues...)
	})

	ginkgo.DescribeTable("matches issues by their history",
		func(t *clause.Terminal, want []string) {
			for _, opts := range []collector.Options{{}, {Ratio: 1 << 40, Floor: 1}} {
				q, err := f.engine(f.store, opts).Search(context.Background(), f.request(t))
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				if want == nil {
					gomega.Expect(ids(q)).To(gomega.BeEmpty())
					continue
				}
				gomega.Expect(ids(q)).To(gomega.Equal(want))
			}
		},
		ginkgo.Entry("was the initial value", status(clause.OpWas, clause.Str("Open")), []string{"1", "2", "3"}),
		ginkgo.Entry("was a value set by a change", status(clause.OpWas, clause.Str("in progress")), []string{"1", "3"}),
		ginkgo.Entry("was by id", status(clause.OpWas, clause.Int(5)), []string{"1"}),
		ginkgo.Entry("was in", status(clause.OpWasIn, clause.Strs("Resolved", "In Progress")), []string{"1", "3"}),
		ginkgo.Entry("was not", status(clause.OpWasNot, clause.Str("Resolved")), []string{"2", "3"}),
		ginkgo.Entry("was not in everything", status(clause.OpWasNotIn, clause.Strs("Open", "In Progress")), nil),
		ginkgo.Entry("was by", status(clause.OpWas, clause.Str("Resolved"), clause.By(clause.Str("fred"))), []string{"1"}),
		ginkgo.Entry("was by someone else", status(clause.OpWas, clause.Str("Resolved"), clause.By(clause.Str("admin"))), nil),
		ginkgo.Entry("was by current user", status(clause.OpWas, clause.Str("Resolved"), clause.By(clause.Func(literal.FuncCurrentUser))), []string{"1"}),
		ginkgo.Entry("was a retired value by its text", status(clause.OpWas, clause.Str("Reopened")), []string{"3"}),
		ginkgo.Entry("was an unknown value", status(clause.OpWas, clause.Str("Closed")), nil),
		ginkgo.Entry("was not an unknown value", status(clause.OpWasNot, clause.Str("Closed")), []string{"1", "2", "3"}),
		ginkgo.Entry("was an unresolvable operand", status(clause.OpWas, clause.Func("nosuchfunction")), nil),
		ginkgo.Entry("was not an unresolvable operand", status(clause.OpWasNot, clause.Func("nosuchfunction")), []string{"1", "2", "3"}),
		ginkgo.Entry("changed", status(clause.OpChanged, nil), []string{"1", "3"}),
		ginkgo.Entry("changed from to", status(clause.OpChanged, nil, clause.From(clause.Str("Open")), clause.To(clause.Str("In Progress"))), []string{"1"}),
		ginkgo.Entry("changed from", status(clause.OpChanged, nil, clause.From(clause.Str("In Progress"))), []string{"1", "3"}),
		ginkgo.Entry("changed to retired text", status(clause.OpChanged, nil, clause.To(clause.Str("reopened"))), []string{"3"}),
		ginkgo.Entry("changed by", status(clause.OpChanged, nil, clause.By(clause.Str("admin"))), []string{"1"}),
		ginkgo.Entry("changed before", status(clause.OpChanged, nil, clause.Before(clause.Str("2024-01-03"))), []string{"1"}),
		ginkgo.Entry("changed after", status(clause.OpChanged, nil, clause.After(clause.Str("2024-01-04"))), []string{"1"}),
		ginkgo.Entry("changed on", status(clause.OpChanged, nil, clause.On(clause.Str("2024-01-04"))), []string{"3"}),
		ginkgo.Entry("changed during", status(clause.OpChanged, nil, clause.During(clause.Str("2024-01-02"), clause.Str("2024-01-04"))), []string{"1", "3"}),
		ginkgo.Entry("assignee was empty", clause.NewTerminal("assignee", clause.OpWas, clause.Empty{}), []string{"3"}),
		ginkgo.Entry("assignee was not empty", clause.NewTerminal("assignee", clause.OpWasNot, clause.Empty{}), []string{"1", "2"}),
	)

	ginkgo.It("compiles unsupported predicates to nothing", func() {
		for _, t := range []*clause.Terminal{
			status(clause.OpWas, clause.Str("Open"), clause.From(clause.Str("Open"))),
			status(clause.OpWasNot, clause.Str("Open"), clause.To(clause.Str("Open"))),
			status(clause.OpChanged, nil, clause.Before(clause.Str("not a date"))),
			status(clause.OpChanged, nil, clause.During(clause.Str("2024-01-04"), clause.Str("2024-01-02"))),
		} {
			q, err := f.engine(f.store, collector.Options{}).Search(context.Background(), f.request(t))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(index.IsMatchNone(q)).To(gomega.BeTrue(), t.String())
		}
	})

	ginkgo.It("walks through every phase", func() {
		_, err := f.engine(f.store, collector.Options{}).Search(context.Background(), f.request(status(clause.OpWasNot, clause.Str("Open"))))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(f.phases).To(gomega.Equal([]history.Phase{
			history.PhaseIdle,
			history.PhaseResolvingOperand,
			history.PhaseSearchingHistoryIndex,
			history.PhaseCollectingIDs,
			history.PhaseBuildingFilter,
			history.PhaseDone,
		}))
		gomega.Expect(history.PhaseCollectingIDs.String()).To(gomega.Equal("collecting-ids"))
	})

	ginkgo.It("fails hard when the history index fails", func() {
		e := f.engine(failingSearcher{Searcher: f.store}, collector.Options{})
		for _, t := range []*clause.Terminal{status(clause.OpWas, clause.Str("Open")), status(clause.OpWasNot, clause.Str("Open"))} {
			_, err := e.Search(context.Background(), f.request(t))
			gomega.Expect(errors.Is(err, history.ErrHistorySearch)).To(gomega.BeTrue())
		}
	})

	ginkgo.It("records the latency of failed searches", func() {
		reg := prometheus.NewRegistry()
		e := history.NewEngine(failingSearcher{Searcher: f.store}, f.resolver, converter.NewUser(f.dir, nil),
			converter.NewDate(time.UTC, nil), history.Options{Metrics: prom.NewProvider(meter.NewHierarchicalScope("iql", "_"), reg)})
		_, err := e.Search(context.Background(), f.request(status(clause.OpWas, clause.Str("Open"))))
		gomega.Expect(err).To(gomega.HaveOccurred())

		families, err := reg.Gather()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		counts := map[string]uint64{}
		for _, mf := range families {
			if mf.GetName() != "iql_history_latency" {
				continue
			}
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "result" {
						counts[lp.GetValue()] = m.GetHistogram().GetSampleCount()
					}
				}
			}
		}
		gomega.Expect(counts).To(gomega.Equal(map[string]uint64{"error": 1}))
	})

	ginkgo.It("leaves other operators to the field compiler", func() {
		c := history.NewCompiler(f.engine(f.store, collector.Options{}), document.FieldStatus,
			converter.NewConstant(f.dir, resolve.KindStatus, nil))
		r, err := c.Compile(context.Background(), factory.Env{}, status(clause.OpEquals, clause.Str("Open")))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(r.IsFalse()).To(gomega.BeTrue())
		r, err = c.Compile(context.Background(), factory.Env{}, status(clause.OpChanged, nil))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(ids(r.Query)).To(gomega.Equal([]string{"1", "3"}))
	})
})

var _ = ginkgo.Describe("Time window boundaries", func() {
	t1 := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	ginkgo.It("includes changes exactly at both ends of DURING", func() {
		var changed []document.Issue
		for i, when := range []time.Time{t1.Add(-time.Second), t1, t2, t2.Add(time.Second)} {
			changed = append(changed, document.Issue{
				ID: int64(i + 1), Key: "HSP", Status: "3", Created: at(1, 10),
				Changes: []document.Change{{At: when, Field: document.FieldStatus, Who: "fred", From: []string{"1"}, To: []string{"3"}}},
			})
		}
		f := newFixture(changed...)
		t := status(clause.OpChanged, nil, clause.During(clause.Str(t1.Format(time.RFC3339)), clause.Str(t2.Format(time.RFC3339))))
		q, err := f.engine(f.store, collector.Options{}).Search(context.Background(), f.request(t))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(ids(q)).To(gomega.Equal([]string{"2", "3"}))
	})
})
