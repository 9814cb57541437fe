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

// Package resolve provides the reference data a query is compiled against:
// users, issue constants, projects, versions, components, custom field options,
// saved filters and permissions.
package resolve

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/jql/clause"
)

// ErrNotFound indicates the requested entity doesn't exist.
var ErrNotFound = errors.New("not found")

// User is an account.
type User struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

// Matches reports whether s names u by key, name or email, ignoring case.
func (u User) Matches(s string) bool {
	return strings.EqualFold(u.Key, s) || strings.EqualFold(u.Name, s) ||
		(u.Email != "" && strings.EqualFold(u.Email, s))
}

// ConstantKind is the family of an issue constant.
type ConstantKind string

// Constant kinds.
const (
	KindStatus        ConstantKind = "status"
	KindPriority      ConstantKind = "priority"
	KindResolution    ConstantKind = "resolution"
	KindIssueType     ConstantKind = "issuetype"
	KindSecurityLevel ConstantKind = "securitylevel"
)

// Constant is an enumerated issue value such as a status or a priority.
// Sequence orders the constants of a kind; a lower sequence ranks higher.
type Constant struct {
	Kind     ConstantKind `json:"kind"`
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Sequence int          `json:"sequence"`
}

// Project groups issues.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// Version is a release of a project.
type Version struct {
	Name      string `json:"name"`
	ID        int64  `json:"id"`
	ProjectID int64  `json:"projectId"`
	Sequence  int    `json:"sequence"`
	Released  bool   `json:"released"`
}

// Component is a part of a project.
type Component struct {
	Name      string `json:"name"`
	ID        int64  `json:"id"`
	ProjectID int64  `json:"projectId"`
}

// Option is a value of a select custom field.
type Option struct {
	FieldID string `json:"fieldId"`
	Value   string `json:"value"`
	ID      int64  `json:"id"`
}

// CustomFieldType is the value type of a custom field.
type CustomFieldType string

// Custom field types.
const (
	CustomSelect CustomFieldType = "select"
	CustomText   CustomFieldType = "text"
	CustomNumber CustomFieldType = "number"
	CustomDate   CustomFieldType = "date"
	CustomUser   CustomFieldType = "user"
	CustomLabels CustomFieldType = "labels"
)

// CustomField is a field defined by administrators.
type CustomField struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type CustomFieldType `json:"type"`
}

// Filter is a saved query.
type Filter struct {
	Clause clause.Clause `json:"-"`
	Name   string        `json:"name"`
	Owner  string        `json:"owner"`
	ID     int64         `json:"id"`
}

// Permission is a project permission.
type Permission string

// Permissions checked while compiling.
const (
	PermBrowse                 Permission = "browse"
	PermViewVotersAndWatchers  Permission = "view_voters_and_watchers"
	PermViewReadOnlyWorkflow   Permission = "view_workflow_readonly"
	PermViewIssueSecurityLevel Permission = "view_security_level"
)

// Grant gives users and groups a permission in a project.
type Grant struct {
	Permission Permission `json:"permission"`
	Users      []string   `json:"users,omitempty"`
	Groups     []string   `json:"groups,omitempty"`
	ProjectID  int64      `json:"projectId"`
}

// SecurityGrant lets users and groups see issues of a security level.
type SecurityGrant struct {
	LevelID string   `json:"levelId"`
	Users   []string `json:"users,omitempty"`
	Groups  []string `json:"groups,omitempty"`
}

// Users resolves accounts.
type Users interface {
	// FindUsers returns the users named s by key, name or email.
	FindUsers(ctx context.Context, s string) ([]User, error)
	// GroupMembers returns the keys of the members of group.
	GroupMembers(ctx context.Context, group string) ([]string, error)
}

// Constants resolves issue constants.
type Constants interface {
	// Constants returns the constants of kind ordered by sequence.
	Constants(ctx context.Context, kind ConstantKind) ([]Constant, error)
}

// Projects resolves projects.
type Projects interface {
	Projects(ctx context.Context) ([]Project, error)
}

// Versions resolves versions.
type Versions interface {
	// Versions returns the versions of projectID, or of every project when it's zero.
	Versions(ctx context.Context, projectID int64) ([]Version, error)
}

// Components resolves components.
type Components interface {
	Components(ctx context.Context) ([]Component, error)
}

// Options resolves custom field options.
type Options interface {
	Options(ctx context.Context, fieldID string) ([]Option, error)
}

// CustomFields resolves custom field definitions.
type CustomFields interface {
	CustomFields(ctx context.Context) ([]CustomField, error)
}

// Filters resolves saved filters.
type Filters interface {
	// Filter returns the filter with id or name idOrName, or ErrNotFound.
	Filter(ctx context.Context, idOrName string) (Filter, error)
}

// Permissions resolves what a user may see.
type Permissions interface {
	// ProjectsWithPermission returns the ids of the projects where user holds perm.
	ProjectsWithPermission(ctx context.Context, user string, perm Permission) ([]int64, error)
	// SecurityLevels returns the security levels user can see.
	SecurityLevels(ctx context.Context, user string) ([]Constant, error)
}

// Directory is the whole reference data.
type Directory interface {
	Users
	Constants
	Projects
	Versions
	Components
	Options
	CustomFields
	Filters
	Permissions
}

// Dataset is the serialized form of a Directory.
type Dataset struct {
	Users          []User          `json:"users,omitempty"`
	Constants      []Constant      `json:"constants,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Versions       []Version       `json:"versions,omitempty"`
	Components     []Component     `json:"components,omitempty"`
	Options        []Option        `json:"options,omitempty"`
	CustomFields   []CustomField   `json:"customFields,omitempty"`
	Filters        []FilterSpec    `json:"filters,omitempty"`
	Grants         []Grant         `json:"grants,omitempty"`
	SecurityGrants []SecurityGrant `json:"securityGrants,omitempty"`
}

// FilterSpec is a saved filter whose clause is still encoded.
type FilterSpec struct {
	Name   string          `json:"name"`
	Owner  string          `json:"owner"`
	Clause json.RawMessage `json:"clause"`
	ID     int64           `json:"id"`
}

// Decode parses the clause of the filter.
func (f FilterSpec) Decode() (Filter, error) {
	c, err := clause.Decode(f.Clause)
	if err != nil {
		return Filter{}, errors.WithMessagef(err, "filter %d", f.ID)
	}
	return Filter{ID: f.ID, Name: f.Name, Owner: f.Owner, Clause: c}, nil
}

// matchesFilter reports whether idOrName names f.
func matchesFilter(id int64, name, idOrName string) bool {
	if n, err := strconv.ParseInt(idOrName, 10, 64); err == nil && n == id {
		return true
	}
	return strings.EqualFold(name, idOrName)
}

func canSee(user string, groups map[string]struct{}, users, allowed []string) bool {
	for _, u := range users {
		if u == user {
			return true
		}
	}
	for _, g := range allowed {
		if _, ok := groups[g]; ok {
			return true
		}
	}
	return false
}
