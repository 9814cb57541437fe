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

package literal

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/timestamp"
)

// Function names.
const (
	FuncCurrentUser        = "currentUser"
	FuncNow                = "now"
	FuncStartOfDay         = "startOfDay"
	FuncEndOfDay           = "endOfDay"
	FuncStartOfWeek        = "startOfWeek"
	FuncEndOfWeek          = "endOfWeek"
	FuncStartOfMonth       = "startOfMonth"
	FuncEndOfMonth         = "endOfMonth"
	FuncStartOfYear        = "startOfYear"
	FuncEndOfYear          = "endOfYear"
	FuncReleasedVersions   = "releasedVersions"
	FuncUnreleasedVersions = "unreleasedVersions"
	FuncMembersOf          = "membersOf"
)

var offsetPattern = regexp.MustCompile(`^([+-]?\d+)([yMwdhm])?$`)

var offsetUnits = map[string]timestamp.Precision{
	"y": timestamp.PrecisionYear,
	"M": timestamp.PrecisionMonth,
	"w": timestamp.PrecisionWeek,
	"d": timestamp.PrecisionDay,
	"h": timestamp.PrecisionHour,
	"m": timestamp.PrecisionMinute,
}

// Functions returns the built-in functions. Dates are computed in loc with the clock of the context.
func Functions(dir resolve.Directory, loc *time.Location, l *logger.Logger) []Function {
	if loc == nil {
		loc = time.UTC
	}
	if l == nil {
		l = logger.GetLogger("literal", "function")
	}
	return []Function{
		currentUser{},
		now{},
		period{name: FuncStartOfDay, precision: timestamp.PrecisionDay, loc: loc},
		period{name: FuncEndOfDay, precision: timestamp.PrecisionDay, loc: loc, end: true},
		period{name: FuncStartOfWeek, precision: timestamp.PrecisionWeek, loc: loc},
		period{name: FuncEndOfWeek, precision: timestamp.PrecisionWeek, loc: loc, end: true},
		period{name: FuncStartOfMonth, precision: timestamp.PrecisionMonth, loc: loc},
		period{name: FuncEndOfMonth, precision: timestamp.PrecisionMonth, loc: loc, end: true},
		period{name: FuncStartOfYear, precision: timestamp.PrecisionYear, loc: loc},
		period{name: FuncEndOfYear, precision: timestamp.PrecisionYear, loc: loc, end: true},
		versions{name: FuncReleasedVersions, dir: dir, l: l, released: true},
		versions{name: FuncUnreleasedVersions, dir: dir, l: l},
		membersOf{dir: dir, l: l},
	}
}

type currentUser struct{}

func (currentUser) Name() string { return FuncCurrentUser }

// Values yields nothing for an anonymous user.
func (currentUser) Values(_ context.Context, cc jql.CreationContext, args []string) ([]Literal, bool) {
	if len(args) > 0 {
		return nil, false
	}
	if cc.IsAnonymous() {
		return nil, true
	}
	return []Literal{String(cc.User)}, true
}

type now struct{}

func (now) Name() string { return FuncNow }

func (now) Values(ctx context.Context, _ jql.CreationContext, args []string) ([]Literal, bool) {
	if len(args) > 0 {
		return nil, false
	}
	return []Literal{Int(timestamp.GetClock(ctx).Now().UnixMilli())}, true
}

// period yields the first or the last millisecond of the current period,
// moved by an optional offset like "-1", "+2w" or "3d".
type period struct {
	loc       *time.Location
	name      string
	precision timestamp.Precision
	end       bool
}

func (p period) Name() string { return p.name }

func (p period) Values(ctx context.Context, _ jql.CreationContext, args []string) ([]Literal, bool) {
	if len(args) > 1 {
		return nil, false
	}
	n, unit := 0, p.precision
	if len(args) == 1 {
		m := offsetPattern.FindStringSubmatch(strings.TrimSpace(args[0]))
		if m == nil {
			return nil, false
		}
		var err error
		if n, err = strconv.Atoi(strings.TrimPrefix(m[1], "+")); err != nil {
			return nil, false
		}
		if m[2] != "" {
			unit = offsetUnits[m[2]]
		}
	}
	t := timestamp.StartOf(timestamp.GetClock(ctx).Now().In(p.loc), p.precision)
	if p.end {
		t = timestamp.Next(t, p.precision, 1)
	}
	t = timestamp.Next(t, unit, n)
	if p.end {
		t = t.Add(-time.Millisecond)
	}
	return []Literal{Int(t.UnixMilli())}, true
}

type versions struct {
	dir      resolve.Directory
	l        *logger.Logger
	name     string
	released bool
}

func (v versions) Name() string { return v.name }

// Values yields the ids of the versions of the project given by key, name or id, or of every project.
func (v versions) Values(ctx context.Context, _ jql.CreationContext, args []string) ([]Literal, bool) {
	if len(args) > 1 {
		return nil, false
	}
	var projectIDs []int64
	if len(args) == 1 {
		projects, err := v.dir.Projects(ctx)
		if err != nil {
			v.l.Warn().Err(err).Str("function", v.name).Msg("failed to load projects")
			return nil, false
		}
		for _, p := range projects {
			if strings.EqualFold(p.Key, args[0]) || strings.EqualFold(p.Name, args[0]) ||
				strconv.FormatInt(p.ID, 10) == args[0] {
				projectIDs = append(projectIDs, p.ID)
			}
		}
		if len(projectIDs) == 0 {
			return nil, false
		}
	}
	all, err := v.dir.Versions(ctx, 0)
	if err != nil {
		v.l.Warn().Err(err).Str("function", v.name).Msg("failed to load versions")
		return nil, false
	}
	var result []Literal
	for _, ver := range all {
		if ver.Released != v.released {
			continue
		}
		if len(projectIDs) > 0 && !slices.Contains(projectIDs, ver.ProjectID) {
			continue
		}
		result = append(result, Int(ver.ID))
	}
	return result, true
}

type membersOf struct {
	dir resolve.Directory
	l   *logger.Logger
}

func (membersOf) Name() string { return FuncMembersOf }

func (m membersOf) Values(ctx context.Context, _ jql.CreationContext, args []string) ([]Literal, bool) {
	if len(args) != 1 {
		return nil, false
	}
	keys, err := m.dir.GroupMembers(ctx, args[0])
	if err != nil {
		m.l.Warn().Err(err).Str("group", args[0]).Msg("failed to load group members")
		return nil, false
	}
	result := make([]Literal, 0, len(keys))
	for _, k := range keys {
		result = append(result, String(k))
	}
	return result, true
}
