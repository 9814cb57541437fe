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

// Package permission scopes compiled queries to what the acting user may see.
package permission

import (
	"context"
	"strconv"
	"sync"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/logger"
)

// QueryProvider builds authorization queries over the project field.
type QueryProvider struct {
	perms resolve.Permissions
	l     *logger.Logger
}

// NewQueryProvider returns a QueryProvider reading grants from perms.
func NewQueryProvider(perms resolve.Permissions, l *logger.Logger) *QueryProvider {
	if l == nil {
		l = logger.GetLogger("permission")
	}
	return &QueryProvider{perms: perms, l: l}
}

// BuildAuthorizationQuery matches the issues of the projects where user holds perm.
// A user without such a project, or a failing lookup, gets MatchNone.
func (p *QueryProvider) BuildAuthorizationQuery(ctx context.Context, user string, perm resolve.Permission) index.Query {
	projects, err := p.perms.ProjectsWithPermission(ctx, user, perm)
	if err != nil {
		p.l.Warn().Err(err).Str("user", user).Str("permission", string(perm)).Msg("failed to load permitted projects")
		return index.NewMatchNoneQuery()
	}
	if len(projects) == 0 {
		return index.NewMatchNoneQuery()
	}
	q := index.NewBooleanQuery()
	for _, id := range projects {
		q.AddShould(index.NewTermQuery(document.FieldProject, strconv.FormatInt(id, 10)))
	}
	return q
}

// BuildSecurityLevelQuery matches the issues without a security level and the
// issues at a level user holds. A failing lookup leaves only the former.
func (p *QueryProvider) BuildSecurityLevelQuery(ctx context.Context, user string) index.Query {
	q := index.NewBooleanQuery().AddShould(
		index.NewTermQuery(document.FieldSecurityLevel, document.EmptySentinel),
		index.NewBooleanQuery().
			AddMust(index.NewMatchAllQuery()).
			AddMustNot(index.NewTermQuery(document.FieldVisible, document.FieldSecurityLevel)),
	)
	levels, err := p.perms.SecurityLevels(ctx, user)
	if err != nil {
		p.l.Warn().Err(err).Str("user", user).Msg("failed to load security levels")
		return q
	}
	for _, l := range levels {
		q.AddShould(index.NewTermQuery(document.FieldSecurityLevel, l.ID))
	}
	return q
}

// Scope restricts q to the issues cc.User may browse, at the security levels
// the user holds. Overriding security leaves q untouched.
func (p *QueryProvider) Scope(ctx context.Context, cc jql.CreationContext, cache *FilterCache, q index.Query) index.Query {
	if cc.OverrideSecurity || index.IsMatchNone(q) {
		return q
	}
	browse := cache.GetOrBuild(cc.User, resolve.PermBrowse, func() index.Query {
		return p.BuildAuthorizationQuery(ctx, cc.User, resolve.PermBrowse)
	})
	if index.IsMatchNone(browse) {
		return browse
	}
	levels := cache.GetOrBuild(cc.User, resolve.PermViewIssueSecurityLevel, func() index.Query {
		return p.BuildSecurityLevelQuery(ctx, cc.User)
	})
	return index.NewBooleanQuery().AddMust(q, browse, levels)
}

type cacheKey struct {
	user string
	perm resolve.Permission
}

// FilterCache holds the authorization queries built for one request.
// A nil cache builds every query afresh.
type FilterCache struct {
	entries map[cacheKey]index.Query
	mu      sync.Mutex
}

// NewFilterCache returns an empty cache. Create one per request.
func NewFilterCache() *FilterCache {
	return &FilterCache{entries: make(map[cacheKey]index.Query)}
}

// GetOrBuild returns the query cached for (user, perm), calling build on a miss.
func (c *FilterCache) GetOrBuild(user string, perm resolve.Permission, build func() index.Query) index.Query {
	if c == nil {
		return build()
	}
	key := cacheKey{user: user, perm: perm}
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.entries[key]; ok {
		return q
	}
	q := build()
	c.entries[key] = q
	return q
}

// Len returns how many queries are cached.
func (c *FilterCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Presence classifies the acting user among the values a clause searches for.
type Presence int

// Presence states.
const (
	PresenceAbsent Presence = iota
	PresenceAmongOthers
	PresenceOnlyValue
)

func (p Presence) String() string {
	switch p {
	case PresenceAbsent:
		return "absent"
	case PresenceAmongOthers:
		return "among-others"
	case PresenceOnlyValue:
		return "only-value"
	default:
		return "unknown"
	}
}

// Classify returns where user stands among terms. An anonymous user is always absent.
func Classify(user string, terms []string) Presence {
	if user == "" {
		return PresenceAbsent
	}
	found, others := false, false
	for _, t := range terms {
		if t == user {
			found = true
		} else {
			others = true
		}
	}
	switch {
	case !found:
		return PresenceAbsent
	case others:
		return PresenceAmongOthers
	default:
		return PresenceOnlyValue
	}
}

// Overlay restricts a user field, such as watchers, to the projects where its
// values may be seen, never hiding the acting user's own associations.
type Overlay struct {
	provider *QueryProvider
	field    string
	perm     resolve.Permission
}

// NewOverlay returns an Overlay of the index field guarded by perm.
func NewOverlay(provider *QueryProvider, field string, perm resolve.Permission) *Overlay {
	return &Overlay{provider: provider, field: field, perm: perm}
}

// Wrap scopes q, the compiled query of a clause searching for terms.
func (o *Overlay) Wrap(ctx context.Context, cc jql.CreationContext, cache *FilterCache, q index.Query, terms []string) index.Query {
	if cc.OverrideSecurity || index.IsMatchNone(q) {
		return q
	}
	presence := Classify(cc.User, terms)
	if presence == PresenceOnlyValue {
		return q
	}
	auth := cache.GetOrBuild(cc.User, o.perm, func() index.Query {
		return o.provider.BuildAuthorizationQuery(ctx, cc.User, o.perm)
	})
	scoped := index.NewBooleanQuery().AddMust(q, auth)
	if presence == PresenceAbsent {
		return scoped
	}
	return index.NewBooleanQuery().AddShould(scoped, index.NewTermQuery(o.field, cc.User))
}
