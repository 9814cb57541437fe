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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/apache/skywalking-issueql/pkg/jql/clause"
)

const dataset = `
users:
- {key: admin, name: Admin, email: admin@example.com, groups: [administrators, developers]}
- {key: fred, name: Fred, email: fred@example.com, groups: [developers]}
- {key: bob, name: bob, groups: [users]}
constants:
- {kind: priority, id: "3", name: Major, sequence: 3}
- {kind: priority, id: "1", name: Blocker, sequence: 1}
- {kind: priority, id: "2", name: Critical, sequence: 2}
- {kind: securitylevel, id: "10000", name: Internal, sequence: 1}
- {kind: securitylevel, id: "10001", name: Secret, sequence: 2}
projects:
- {id: 10, key: HSP, name: homosapien}
- {id: 11, key: MKY, name: monkey}
versions:
- {id: 2, projectId: 10, name: "1.1", sequence: 2}
- {id: 1, projectId: 10, name: "1.0", released: true, sequence: 1}
- {id: 3, projectId: 11, name: "1.0", sequence: 1}
components:
- {id: 20, projectId: 10, name: backend}
customFields:
- {id: "10010", name: Colour, type: select}
options:
- {id: 100, fieldId: "10010", value: Red}
- {id: 101, fieldId: "10010", value: Green}
filters:
- id: 1
  name: My Open
  owner: admin
  clause: {field: status, operator: "=", value: Open}
grants:
- {projectId: 10, permission: browse, groups: [developers]}
- {projectId: 11, permission: browse, users: [bob]}
- {projectId: 10, permission: view_voters_and_watchers, users: [admin]}
securityGrants:
- {levelId: "10000", groups: [developers]}
- {levelId: "10001", users: [admin]}
`

func loadDataset(t *testing.T) Dataset {
	var d Dataset
	require.NoError(t, yaml.Unmarshal([]byte(dataset), &d))
	return d
}

func directories(t *testing.T) map[string]Directory {
	d := loadDataset(t)
	m, err := NewMemory(d)
	require.NoError(t, err)
	s, err := OpenSQLite(SQLiteOpts{Path: filepath.Join(t.TempDir(), "directory.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Load(context.Background(), d))
	return map[string]Directory{"memory": m, "sqlite": s}
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	for name, dir := range directories(t) {
		t.Run(name, func(t *testing.T) {
			users, err := dir.FindUsers(ctx, "FRED@example.com")
			require.NoError(t, err)
			require.Len(t, users, 1)
			assert.Equal(t, "fred", users[0].Key)
			assert.Equal(t, []string{"developers"}, users[0].Groups)

			users, err = dir.FindUsers(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, users)

			members, err := dir.GroupMembers(ctx, "developers")
			require.NoError(t, err)
			assert.Equal(t, []string{"admin", "fred"}, members)

			priorities, err := dir.Constants(ctx, KindPriority)
			require.NoError(t, err)
			require.Len(t, priorities, 3)
			assert.Equal(t, []string{"Blocker", "Critical", "Major"},
				[]string{priorities[0].Name, priorities[1].Name, priorities[2].Name})

			versions, err := dir.Versions(ctx, 10)
			require.NoError(t, err)
			require.Len(t, versions, 2)
			assert.Equal(t, "1.0", versions[0].Name)
			assert.True(t, versions[0].Released)
			all, err := dir.Versions(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			options, err := dir.Options(ctx, "10010")
			require.NoError(t, err)
			assert.Len(t, options, 2)

			projects, err := dir.Projects(ctx)
			require.NoError(t, err)
			assert.Len(t, projects, 2)

			components, err := dir.Components(ctx)
			require.NoError(t, err)
			assert.Len(t, components, 1)

			fields, err := dir.CustomFields(ctx)
			require.NoError(t, err)
			assert.Equal(t, []CustomField{{ID: "10010", Name: "Colour", Type: CustomSelect}}, fields)
		})
	}
}

func TestDirectoryFilters(t *testing.T) {
	ctx := context.Background()
	for name, dir := range directories(t) {
		t.Run(name, func(t *testing.T) {
			byID, err := dir.Filter(ctx, "1")
			require.NoError(t, err)
			byName, err := dir.Filter(ctx, "my open")
			require.NoError(t, err)
			assert.Equal(t, byID.ID, byName.ID)
			assert.Equal(t, clause.NewTerminal("status", clause.OpEquals, clause.Str("Open")), byID.Clause)

			_, err = dir.Filter(ctx, "42")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDirectoryPermissions(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		user     string
		perm     Permission
		projects []int64
		levels   []string
	}{
		{user: "admin", perm: PermBrowse, projects: []int64{10}, levels: []string{"10000", "10001"}},
		{user: "fred", perm: PermBrowse, projects: []int64{10}, levels: []string{"10000"}},
		{user: "bob", perm: PermBrowse, projects: []int64{11}},
		{user: "fred", perm: PermViewVotersAndWatchers},
		{user: "admin", perm: PermViewVotersAndWatchers, projects: []int64{10}, levels: []string{"10000", "10001"}},
		{user: "", perm: PermBrowse},
	}
	for name, dir := range directories(t) {
		t.Run(name, func(t *testing.T) {
			for _, tt := range tests {
				projects, err := dir.ProjectsWithPermission(ctx, tt.user, tt.perm)
				require.NoError(t, err)
				assert.ElementsMatch(t, tt.projects, projects, "%s %s", tt.user, tt.perm)
				levels, err := dir.SecurityLevels(ctx, tt.user)
				require.NoError(t, err)
				ids := make([]string, 0, len(levels))
				for _, l := range levels {
					ids = append(ids, l.ID)
				}
				assert.ElementsMatch(t, tt.levels, ids, "%s levels", tt.user)
			}
		})
	}
}

func TestSQLiteLoadDropsCache(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(SQLiteOpts{Path: filepath.Join(t.TempDir(), "directory.db"), CacheSize: 8})
	require.NoError(t, err)
	defer s.Close()
	users, err := s.FindUsers(ctx, "fred")
	require.NoError(t, err)
	assert.Empty(t, users)
	require.NoError(t, s.Load(ctx, Dataset{Users: []User{{Key: "fred", Name: "Fred"}}}))
	users, err = s.FindUsers(ctx, "fred")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSQLiteLoadReplacesDataset(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(SQLiteOpts{Path: filepath.Join(t.TempDir(), "directory.db")})
	require.NoError(t, err)
	defer s.Close()
	d := loadDataset(t)
	require.NoError(t, s.Load(ctx, d))
	require.NoError(t, s.Load(ctx, d))
	var grants int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM grants").Scan(&grants))
	assert.Equal(t, 3, grants)

	d.Grants = d.Grants[:1]
	require.NoError(t, s.Load(ctx, d))
	projects, err := s.ProjectsWithPermission(ctx, "bob", PermBrowse)
	require.NoError(t, err)
	assert.Empty(t, projects)
	projects, err = s.ProjectsWithPermission(ctx, "fred", PermBrowse)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, projects)
}

func TestNewMemoryRejectsInvalidFilter(t *testing.T) {
	_, err := NewMemory(Dataset{Filters: []FilterSpec{{ID: 1, Name: "broken", Clause: []byte(`{field: status}`)}}})
	assert.ErrorIs(t, err, clause.ErrInvalidClause)
}
