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

package resolve

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var _ Directory = (*Memory)(nil)

// Memory is a Directory held in memory. It's safe for concurrent reads.
type Memory struct {
	users          map[string]User
	constants      map[ConstantKind][]Constant
	options        map[string][]Option
	projects       []Project
	versions       []Version
	components     []Component
	customFields   []CustomField
	filters        []Filter
	grants         []Grant
	securityGrants []SecurityGrant
	mu             sync.RWMutex
}

// NewMemory builds a Memory from d.
func NewMemory(d Dataset) (*Memory, error) {
	m := &Memory{
		users:     make(map[string]User, len(d.Users)),
		constants: make(map[ConstantKind][]Constant),
		options:   make(map[string][]Option),
	}
	for _, u := range d.Users {
		if u.Key == "" {
			return nil, errors.Errorf("user %q without key", u.Name)
		}
		m.users[u.Key] = u
	}
	for _, c := range d.Constants {
		m.constants[c.Kind] = append(m.constants[c.Kind], c)
	}
	for k := range m.constants {
		sortConstants(m.constants[k])
	}
	for _, o := range d.Options {
		m.options[o.FieldID] = append(m.options[o.FieldID], o)
	}
	m.projects = append(m.projects, d.Projects...)
	m.versions = append(m.versions, d.Versions...)
	sort.SliceStable(m.versions, func(i, j int) bool { return m.versions[i].Sequence < m.versions[j].Sequence })
	m.components = append(m.components, d.Components...)
	m.customFields = append(m.customFields, d.CustomFields...)
	for _, fs := range d.Filters {
		f, err := fs.Decode()
		if err != nil {
			return nil, err
		}
		m.filters = append(m.filters, f)
	}
	m.grants = append(m.grants, d.Grants...)
	m.securityGrants = append(m.securityGrants, d.SecurityGrants...)
	return m, nil
}

// AddFilter registers a saved filter.
func (m *Memory) AddFilter(f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, f)
}

// FindUsers implements Users.
func (m *Memory) FindUsers(_ context.Context, s string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[s]; ok {
		return []User{u}, nil
	}
	var result []User
	for _, u := range m.users {
		if u.Matches(s) {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// GroupMembers implements Users.
func (m *Memory) GroupMembers(_ context.Context, group string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for _, u := range m.users {
		for _, g := range u.Groups {
			if strings.EqualFold(g, group) {
				keys = append(keys, u.Key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Constants implements Constants.
func (m *Memory) Constants(_ context.Context, kind ConstantKind) ([]Constant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Constant(nil), m.constants[kind]...), nil
}

// Projects implements Projects.
func (m *Memory) Projects(_ context.Context) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Project(nil), m.projects...), nil
}

// Versions implements Versions.
func (m *Memory) Versions(_ context.Context, projectID int64) ([]Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Version
	for _, v := range m.versions {
		if projectID == 0 || v.ProjectID == projectID {
			result = append(result, v)
		}
	}
	return result, nil
}

// Components implements Components.
func (m *Memory) Components(_ context.Context) ([]Component, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Component(nil), m.components...), nil
}

// Options implements Options.
func (m *Memory) Options(_ context.Context, fieldID string) ([]Option, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Option(nil), m.options[fieldID]...), nil
}

// CustomFields implements CustomFields.
func (m *Memory) CustomFields(_ context.Context) ([]CustomField, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CustomField(nil), m.customFields...), nil
}

// Filter implements Filters.
func (m *Memory) Filter(_ context.Context, idOrName string) (Filter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.filters {
		if matchesFilter(f.ID, f.Name, idOrName) {
			return f, nil
		}
	}
	return Filter{}, errors.Wrapf(ErrNotFound, "filter %q", idOrName)
}

// ProjectsWithPermission implements Permissions.
func (m *Memory) ProjectsWithPermission(_ context.Context, user string, perm Permission) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := m.groupsOf(user)
	seen := make(map[int64]struct{})
	var ids []int64
	for _, g := range m.grants {
		if g.Permission != perm || !canSee(user, groups, g.Users, g.Groups) {
			continue
		}
		if _, ok := seen[g.ProjectID]; ok {
			continue
		}
		seen[g.ProjectID] = struct{}{}
		ids = append(ids, g.ProjectID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SecurityLevels implements Permissions.
func (m *Memory) SecurityLevels(_ context.Context, user string) ([]Constant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := m.groupsOf(user)
	visible := make(map[string]struct{})
	for _, g := range m.securityGrants {
		if canSee(user, groups, g.Users, g.Groups) {
			visible[g.LevelID] = struct{}{}
		}
	}
	var levels []Constant
	for _, c := range m.constants[KindSecurityLevel] {
		if _, ok := visible[c.ID]; ok {
			levels = append(levels, c)
		}
	}
	return levels, nil
}

func (m *Memory) groupsOf(user string) map[string]struct{} {
	groups := make(map[string]struct{})
	if u, ok := m.users[user]; ok {
		for _, g := range u.Groups {
			groups[g] = struct{}{}
		}
	}
	return groups
}

func sortConstants(cc []Constant) {
	sort.SliceStable(cc, func(i, j int) bool { return cc[i].Sequence < cc[j].Sequence })
}
