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

// Package registry maps clause field names to the compilers of their index fields.
package registry

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/collector"
	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/converter"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/factory"
	"github.com/apache/skywalking-issueql/pkg/jql/history"
	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/jql/permission"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/meter"
)

// DefaultSummaryBoost is the relevance multiplier of summary matches.
const DefaultSummaryBoost = 9.0

var customFieldPattern = regexp.MustCompile(`(?i)^cf\[(\d+)\]$`)

// Options configures a Registry.
type Options struct {
	Logger   *logger.Logger
	Metrics  meter.Provider
	Location *time.Location
	// History is the change history index. Without it history clauses match nothing.
	History      index.Searcher
	Collector    collector.Options
	SummaryBoost float64
	HoursPerDay  int
	DaysPerWeek  int
}

// Registry holds the compilers of every searchable field.
// It is read-only once built and safe for concurrent use.
type Registry struct {
	dir      resolve.Directory
	resolver *literal.Resolver
	system   map[string][]factory.ClauseCompiler
	level    []factory.ClauseCompiler
	users    *converter.User
	dates    *converter.Date
	l        *logger.Logger
}

// New builds the registry of the fields dir describes.
func New(dir resolve.Directory, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("registry")
	}
	if opts.SummaryBoost <= 0 {
		opts.SummaryBoost = DefaultSummaryBoost
	}
	resolver := literal.NewResolver(opts.Logger.Named("literal"), literal.Functions(dir, opts.Location, opts.Logger.Named("function"))...)
	r := &Registry{
		dir:      dir,
		resolver: resolver,
		system:   make(map[string][]factory.ClauseCompiler),
		users:    converter.NewUser(dir, opts.Logger.Named("user")),
		dates:    converter.NewDate(opts.Location, opts.Logger.Named("date")),
		l:        opts.Logger,
	}
	var engine *history.Engine
	if opts.History != nil {
		engine = history.NewEngine(opts.History, resolver, r.users, r.dates, history.Options{
			Logger:    opts.Logger.Named("history"),
			Metrics:   opts.Metrics,
			Collector: opts.Collector,
		})
	}
	r.registerSystemFields(engine, opts)
	return r
}

// Resolver returns the operand resolver shared by the compilers.
func (r *Registry) Resolver() *literal.Resolver {
	return r.resolver
}

func (r *Registry) register(compilers []factory.ClauseCompiler, names ...string) {
	for _, n := range names {
		r.system[strings.ToLower(n)] = compilers
	}
}

func (r *Registry) generic(field string, conv converter.Converter, strategies ...factory.Strategy) *factory.Generic {
	return factory.NewGeneric(field, r.resolver, conv, strategies...)
}

func (r *Registry) registerSystemFields(engine *history.Engine, opts Options) {
	l := opts.Logger
	tracked := func(field string, conv converter.Converter, strategies ...factory.Strategy) []factory.ClauseCompiler {
		compilers := []factory.ClauseCompiler{r.generic(field, conv, strategies...)}
		if engine != nil {
			compilers = append(compilers, history.NewCompiler(engine, field, conv))
		}
		return compilers
	}
	constant := func(kind resolve.ConstantKind) *converter.Constant {
		return converter.NewConstant(r.dir, kind, l.Named(string(kind)))
	}
	single := func(c factory.ClauseCompiler) []factory.ClauseCompiler {
		return []factory.ClauseCompiler{c}
	}
	sentinel := factory.Equality(document.EmptySentinel)
	plain := factory.Equality("")

	r.register(single(r.generic(document.FieldProject, converter.NewProject(r.dir, l.Named("project")), plain)), "project")
	r.register(single(r.generic(document.FieldType, constant(resolve.KindIssueType), plain)), "issuetype", "type")
	r.register(tracked(document.FieldStatus, constant(resolve.KindStatus), plain), "status")
	priority := constant(resolve.KindPriority)
	r.register(tracked(document.FieldPriority, priority, sentinel, factory.MutatedRelational(priority)), "priority")
	r.register(tracked(document.FieldResolution, constant(resolve.KindResolution), sentinel), "resolution")
	r.register(tracked(document.FieldAssignee, r.users, sentinel), "assignee")
	r.register(tracked(document.FieldReporter, r.users, sentinel), "reporter")
	r.register(single(r.generic(document.FieldCreator, r.users, plain)), "creator")

	like := factory.Like(index.AnalyzerStandard)
	summary := r.generic(document.FieldSummary, nil, like).WithBoost(opts.SummaryBoost)
	description := r.generic(document.FieldDescription, nil, like)
	environment := r.generic(document.FieldEnvironment, nil, like)
	comment := r.generic(document.FieldComment, nil, like)
	r.register(single(summary), "summary")
	r.register(single(description), "description")
	r.register(single(environment), "environment")
	r.register(single(comment), "comment")
	text := factory.Any(summary, description, environment, comment)
	r.register(single(factory.CompilerFunc(func(ctx context.Context, env factory.Env, t *clause.Terminal) (factory.Result, error) {
		if t.Operator != clause.OpLike {
			return factory.False(), nil
		}
		return text.Compile(ctx, env, t)
	})), "text")

	r.register(single(r.generic(document.FieldLabels, converter.Text{CaseSensitive: true}, plain)), "labels")
	versions := converter.NewVersion(r.dir, l.Named("version"))
	r.register(tracked(document.FieldFixVersion, versions, sentinel), "fixVersion", "fixfor")
	r.register(single(r.generic(document.FieldAffectedVersion, versions, sentinel)), "affectedVersion", "version")
	r.register(single(r.generic(document.FieldComponent, converter.NewComponent(r.dir, l.Named("component")), sentinel)), "component")

	provider := permission.NewQueryProvider(r.dir, l.Named("permission"))
	r.register(single(r.overlaid(document.FieldWatchers, provider)), "watcher", "watchers")
	r.register(single(r.overlaid(document.FieldVoters, provider)), "voter", "voters")
	r.register(single(r.generic(document.FieldVotes, converter.Number{}, plain, factory.Relational())), "votes")

	for field, names := range map[string][]string{
		document.FieldCreated:  {"created", "createdDate"},
		document.FieldUpdated:  {"updated", "updatedDate"},
		document.FieldResolved: {"resolved", "resolutiondate"},
		document.FieldDue:      {"due", "duedate"},
	} {
		r.register(single(r.generic(field, r.dates, factory.RangeEquality(), factory.Relational())), names...)
	}
	durations := converter.NewDuration(opts.HoursPerDay, opts.DaysPerWeek)
	for field, name := range map[string]string{
		document.FieldOriginalEstimate:  "originalEstimate",
		document.FieldRemainingEstimate: "remainingEstimate",
		document.FieldTimeSpent:         "timeSpent",
	} {
		r.register(single(r.generic(field, durations, plain, factory.Relational())), name, field)
	}

	r.level = single(r.generic(document.FieldSecurityLevel, constant(resolve.KindSecurityLevel),
		factory.SecurityLevel(document.EmptySentinel)))
	r.register(single(r.generic(document.FieldKey, converter.Text{}, plain)), "key", "issuekey")
	r.register(single(factory.CompilerFunc(r.compileFilter)), "filter", "request", "savedFilter", "searchRequest")
}

// overlaid compiles a user list field scoped by the permission to view it.
func (r *Registry) overlaid(field string, provider *permission.QueryProvider) factory.ClauseCompiler {
	g := r.generic(field, r.users, factory.Equality(""))
	overlay := permission.NewOverlay(provider, field, resolve.PermViewVotersAndWatchers)
	return factory.CompilerFunc(func(ctx context.Context, env factory.Env, t *clause.Terminal) (factory.Result, error) {
		res, err := g.Compile(ctx, env, t)
		if err != nil {
			return factory.Result{}, err
		}
		var terms []string
		if !t.Operator.IsNegative() {
			terms = g.IndexedTerms(ctx, env.CC, t.Operand)
		}
		return factory.Result{Query: overlay.Wrap(ctx, env.CC, env.Cache, res.Resolve(), terms)}, nil
	})
}

// compileFilter matches the issues of saved filters.
func (r *Registry) compileFilter(ctx context.Context, env factory.Env, t *clause.Terminal) (factory.Result, error) {
	var negative bool
	switch t.Operator {
	case clause.OpEquals, clause.OpIn:
	case clause.OpNotEquals, clause.OpNotIn:
		negative = true
	default:
		return factory.False(), nil
	}
	if env.Visitor == nil {
		return factory.False(), nil
	}
	literals, ok := r.resolver.Values(ctx, env.CC, t.Operand)
	if !ok {
		return factory.False(), nil
	}
	var queries []index.Query
	for _, l := range literals {
		if l.IsEmpty() {
			continue
		}
		f, err := r.dir.Filter(ctx, l.Text())
		if err != nil {
			if !errors.Is(err, resolve.ErrNotFound) {
				r.l.Warn().Err(err).Str("filter", l.Text()).Msg("failed to load saved filter")
			}
			continue
		}
		q, err := env.Visitor.VisitFilter(ctx, f)
		if err != nil {
			return factory.Result{}, err
		}
		queries = append(queries, q)
	}
	var q index.Query
	switch len(queries) {
	case 0:
		if negative {
			return factory.Result{Query: index.NewMatchAllQuery()}, nil
		}
		return factory.False(), nil
	case 1:
		q = queries[0]
	default:
		q = index.NewBooleanQuery().AddShould(queries...)
	}
	return factory.Result{Query: q, MustNegate: negative}, nil
}

// Lookup returns the compilers of field, or nothing when the field is unknown
// or not visible in cc.
func (r *Registry) Lookup(ctx context.Context, field string, cc jql.CreationContext) []factory.ClauseCompiler {
	name := strings.ToLower(strings.TrimSpace(field))
	if compilers, ok := r.system[name]; ok {
		return compilers
	}
	if name == "level" {
		if r.canSeeLevels(ctx, cc) {
			return r.level
		}
		return nil
	}
	return r.custom(ctx, strings.TrimSpace(field))
}

func (r *Registry) canSeeLevels(ctx context.Context, cc jql.CreationContext) bool {
	if cc.OverrideSecurity {
		return true
	}
	levels, err := r.dir.SecurityLevels(ctx, cc.User)
	if err != nil {
		r.l.Warn().Err(err).Str("user", cc.User).Msg("failed to load security levels")
		return false
	}
	return len(levels) > 0
}

func (r *Registry) custom(ctx context.Context, field string) []factory.ClauseCompiler {
	fields, err := r.dir.CustomFields(ctx)
	if err != nil {
		r.l.Warn().Err(err).Msg("failed to load custom fields")
		return nil
	}
	var id string
	if m := customFieldPattern.FindStringSubmatch(field); m != nil {
		id = m[1]
	}
	for _, cf := range fields {
		if (id != "" && cf.ID == id) || (id == "" && strings.EqualFold(cf.Name, field)) {
			return []factory.ClauseCompiler{r.customCompiler(cf)}
		}
	}
	return nil
}

func (r *Registry) customCompiler(cf resolve.CustomField) factory.ClauseCompiler {
	field := document.CustomField(cf.ID)
	switch cf.Type {
	case resolve.CustomSelect:
		return r.generic(field, converter.NewOption(r.dir, cf.ID, r.l.Named("option")), factory.Equality(document.EmptySentinel))
	case resolve.CustomUser:
		return r.generic(field, r.users, factory.Equality(document.EmptySentinel))
	case resolve.CustomText:
		return r.generic(field, nil, factory.Like(index.AnalyzerStandard))
	case resolve.CustomNumber:
		return r.generic(field, converter.Number{}, factory.Equality(""), factory.Relational())
	case resolve.CustomDate:
		return r.generic(field, r.dates, factory.RangeEquality(), factory.Relational())
	default:
		return r.generic(field, converter.Text{CaseSensitive: true}, factory.Equality(""))
	}
}
