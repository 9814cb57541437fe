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

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/apache/skywalking-issueql/iqlctl/pkg/file"
	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/collector"
	"github.com/apache/skywalking-issueql/pkg/index/inverted"
	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/compiler"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/jql/search"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/meter"
	"github.com/apache/skywalking-issueql/pkg/meter/prom"
)

const (
	backendMem    = "mem"
	backendBluge  = "bluge"
	backendSQLite = "sqlite"
)

var (
	errUnknownBackend  = errors.New("unknown backend")
	errDatasetRequired = errors.New("--dataset is required")
)

// workspace holds the flags shared by the commands and the resources they open.
type workspace struct {
	dataset           string
	indexBackend      string
	indexPath         string
	directoryBackend  string
	sqlitePath        string
	user              string
	timeZone          string
	opts              compiler.Options
	overrideSecurity  bool
	metrics           bool
	historyDirectRate uint64
	historyFloor      uint64

	dir      resolve.Directory
	primary  index.Store
	history  index.Store
	registry *prometheus.Registry
	keys     map[string]string
	closers  []io.Closer
}

func (w *workspace) bindFlags(fs *pflag.FlagSet) {
	defaults := compiler.DefaultOptions()
	fs.StringVarP(&w.dataset, "dataset", "d", "", "the YAML dataset holding the reference data and the issues")
	fs.StringVar(&w.indexBackend, "backend", backendMem, "the index backend: mem or bluge")
	fs.StringVar(&w.indexPath, "index-path", "", "the directory of the bluge indexes, empty keeps them in memory")
	fs.StringVar(&w.directoryBackend, "directory", backendMem, "the reference data backend: mem or sqlite")
	fs.StringVar(&w.sqlitePath, "sqlite-path", ":memory:", "the sqlite database of the reference data")
	fs.StringVarP(&w.user, "user", "u", "", "the user the clause is compiled for, empty is anonymous")
	fs.BoolVar(&w.overrideSecurity, "override-security", false, "skip the authorization scoping")
	fs.StringVar(&w.timeZone, "time-zone", "UTC", "the time zone of date literals")
	fs.IntVar(&w.opts.MaxClauses, "max-clauses", defaults.MaxClauses, "the clause limit of a compiled query")
	fs.Float64Var(&w.opts.SummaryBoost, "summary-boost", defaults.SummaryBoost, "the relevance boost of summary matches")
	fs.Uint64Var(&w.historyDirectRate, "history-direct-ratio", defaults.HistoryDirectRatio,
		"the document count divided by it bounds the history hits resolved one by one")
	fs.Uint64Var(&w.historyFloor, "history-direct-floor", defaults.HistoryDirectFloor,
		"the history hits always resolved one by one")
	fs.IntVar(&w.opts.HoursPerDay, "hours-per-day", defaults.HoursPerDay, "the working hours of a day in estimates")
	fs.IntVar(&w.opts.DaysPerWeek, "days-per-week", defaults.DaysPerWeek, "the working days of a week in estimates")
	fs.BoolVar(&w.metrics, "metrics", false, "print the collected metrics to stderr when done")
}

func (w *workspace) open(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = multierr.Append(err, w.Close())
		}
	}()
	loc, err := time.LoadLocation(w.timeZone)
	if err != nil {
		return errors.WithMessagef(err, "time zone %q", w.timeZone)
	}
	w.opts.Location = loc
	w.opts.HistoryDirectRatio = w.historyDirectRate
	w.opts.HistoryDirectFloor = w.historyFloor
	w.registry = prometheus.NewRegistry()
	w.opts.Metrics = prom.NewProvider(meter.NewHierarchicalScope("iql", "_"), w.registry)

	var ds document.Dataset
	if w.dataset != "" {
		docs, err := file.Read(w.dataset, os.Stdin)
		if err != nil {
			return errors.WithMessage(err, "read dataset")
		}
		if len(docs) != 1 {
			return errors.Errorf("dataset %s holds %d documents, want 1", w.dataset, len(docs))
		}
		if ds, err = document.ParseDataset(docs[0].Content); err != nil {
			return err
		}
	}
	if err = w.openDirectory(ctx, ds.Dataset); err != nil {
		return err
	}
	if err = w.openIndexes(); err != nil {
		return err
	}
	if err = document.NewBuilder(ds.CustomFields).Index(w.primary, w.history, ds.Issues...); err != nil {
		return err
	}
	w.keys = make(map[string]string, len(ds.Issues))
	for _, is := range ds.Issues {
		w.keys[strconv.FormatInt(is.ID, 10)] = is.Key
	}
	w.opts.History = w.history
	w.opts.Logger = logger.GetLogger("iqlctl", "compiler")
	return nil
}

func (w *workspace) openDirectory(ctx context.Context, d resolve.Dataset) error {
	switch w.directoryBackend {
	case backendMem:
		dir, err := resolve.NewMemory(d)
		if err != nil {
			return err
		}
		w.dir = dir
	case backendSQLite:
		dir, err := resolve.OpenSQLite(resolve.SQLiteOpts{
			Logger: logger.GetLogger("iqlctl", "sqlite"),
			Path:   w.sqlitePath,
		})
		if err != nil {
			return err
		}
		w.closers = append(w.closers, dir)
		if err = dir.Load(ctx, d); err != nil {
			return err
		}
		w.dir = dir
	default:
		return errors.Wrapf(errUnknownBackend, "directory %q", w.directoryBackend)
	}
	return nil
}

func (w *workspace) openIndexes() error {
	switch w.indexBackend {
	case backendMem:
		w.primary = inverted.NewMemStore(inverted.MemStoreOpts{MaxClauses: w.opts.MaxClauses})
		w.history = inverted.NewMemStore(inverted.MemStoreOpts{MaxClauses: w.opts.MaxClauses})
	case backendBluge:
		var err error
		if w.primary, err = w.openBluge("primary"); err != nil {
			return err
		}
		if w.history, err = w.openBluge("history"); err != nil {
			return err
		}
	default:
		return errors.Wrapf(errUnknownBackend, "index %q", w.indexBackend)
	}
	w.closers = append(w.closers, w.primary, w.history)
	return nil
}

func (w *workspace) openBluge(name string) (*inverted.BlugeStore, error) {
	opts := inverted.StoreOpts{
		Logger:     logger.GetLogger("iqlctl", "bluge", name),
		MaxClauses: w.opts.MaxClauses,
	}
	if w.indexPath != "" {
		opts.Path = filepath.Join(w.indexPath, name)
	}
	return inverted.NewStore(opts)
}

func (w *workspace) request() compiler.Request {
	return compiler.Request{
		CC: jql.CreationContext{User: w.user, OverrideSecurity: w.overrideSecurity},
	}
}

func (w *workspace) compiler() *compiler.Compiler {
	return compiler.New(w.dir, w.opts)
}

func (w *workspace) service() *search.Service {
	return search.NewService(w.compiler(), w.primary, search.Options{
		Logger:  logger.GetLogger("iqlctl", "search"),
		Metrics: w.opts.Metrics,
		Collector: collector.Options{
			Ratio: w.opts.HistoryDirectRatio,
			Floor: w.opts.HistoryDirectFloor,
		},
	})
}

// key returns the issue key of id, or id itself for issues outside the dataset.
func (w *workspace) key(id string) string {
	if k, ok := w.keys[id]; ok {
		return k
	}
	return id
}

func (w *workspace) clauses(path string, stdin io.Reader) ([]clause.Clause, error) {
	docs, err := file.Read(path, stdin)
	if err != nil {
		return nil, errors.WithMessage(err, "read clauses")
	}
	if len(docs) == 0 {
		return nil, errors.Errorf("no clause found at %s", path)
	}
	cc := make([]clause.Clause, 0, len(docs))
	for _, d := range docs {
		c, err := clause.Decode(d.Content)
		if err != nil {
			return nil, errors.WithMessage(err, d.Name)
		}
		cc = append(cc, c)
	}
	return cc, nil
}

// printMetrics writes one line per sample of the counters and histograms gathered so far.
func (w *workspace) printMetrics(out io.Writer) error {
	if !w.metrics || w.registry == nil {
		return nil
	}
	families, err := w.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(pairs)
			name := mf.GetName()
			if len(pairs) > 0 {
				name += "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				_, err = fmt.Fprintf(out, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				_, err = fmt.Fprintf(out, "%s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			case m.GetGauge() != nil:
				_, err = fmt.Fprintf(out, "%s %g\n", name, m.GetGauge().GetValue())
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the indexes and the reference data store.
func (w *workspace) Close() error {
	var err error
	for i := len(w.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, w.closers[i].Close())
	}
	w.closers = nil
	return err
}
