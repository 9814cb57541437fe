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
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	// sqlite3 registers the database/sql driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/apache/skywalking-issueql/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// tables lists the tables of the schema, dependents first.
var tables = []string{
	"security_grants", "grants", "filters", "custom_fields", "options",
	"components", "versions", "projects", "constants", "user_groups", "users",
}

const (
	schemaVersion    = 1
	defaultCacheSize = 1024
)

var _ Directory = (*SQLite)(nil)

// SQLiteOpts wraps options to open a SQLite directory.
type SQLiteOpts struct {
	Logger *logger.Logger
	// Path is the database file. ":memory:" keeps the database in memory.
	Path string
	// CacheSize bounds the number of cached lookups.
	CacheSize int
}

// SQLite is a Directory persisted in a SQLite database.
// Lookups are cached until the next Load.
type SQLite struct {
	db    *sql.DB
	cache *lru.Cache
	l     *logger.Logger
}

// OpenSQLite opens or creates the database and applies the schema.
func OpenSQLite(opts SQLiteOpts) (*SQLite, error) {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger("resolve", "sqlite")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, errors.WithMessagef(err, "open %s", opts.Path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err = db.Ping(); err != nil {
		return nil, multierr.Append(errors.WithMessagef(err, "connect %s", opts.Path), db.Close())
	}
	if err = applySchema(db); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	cache, err := lru.NewWithEvict(opts.CacheSize, func(key, _ interface{}) {
		if e := opts.Logger.Debug(); e.Enabled() {
			e.Interface("key", key).Msg("evict lookup")
		}
	})
	if err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return &SQLite{db: db, cache: cache, l: opts.Logger}, nil
}

func applySchema(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return errors.WithMessagef(err, "execute %q", pragma)
		}
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.WithMessage(err, "read user_version")
	}
	if version >= schemaVersion {
		return nil
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.WithMessage(err, "create schema")
	}
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

// Close closes the database.
func (s *SQLite) Close() error {
	s.cache.Purge()
	return s.db.Close()
}

// Load replaces the contents of the database with d in one transaction and drops
// every cached lookup.
func (s *SQLite) Load(ctx context.Context, d Dataset) (err error) {
	defer s.cache.Purge()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
			return
		}
		err = tx.Commit()
	}()
	exec := func(query string, args ...interface{}) {
		if err != nil {
			return
		}
		_, err = tx.ExecContext(ctx, query, args...)
	}
	for _, table := range tables {
		exec("DELETE FROM " + table)
	}
	for _, u := range d.Users {
		exec("INSERT OR REPLACE INTO users(user_key, name, email, display_name) VALUES (?, ?, ?, ?)",
			u.Key, u.Name, u.Email, u.DisplayName)
		for _, g := range u.Groups {
			exec("INSERT OR IGNORE INTO user_groups(user_key, group_name) VALUES (?, ?)", u.Key, g)
		}
	}
	for _, c := range d.Constants {
		exec("INSERT OR REPLACE INTO constants(kind, id, name, sequence) VALUES (?, ?, ?, ?)",
			string(c.Kind), c.ID, c.Name, c.Sequence)
	}
	for _, p := range d.Projects {
		exec("INSERT OR REPLACE INTO projects(id, project_key, name) VALUES (?, ?, ?)", p.ID, p.Key, p.Name)
	}
	for _, v := range d.Versions {
		exec("INSERT OR REPLACE INTO versions(id, project_id, name, released, sequence) VALUES (?, ?, ?, ?, ?)",
			v.ID, v.ProjectID, v.Name, v.Released, v.Sequence)
	}
	for _, c := range d.Components {
		exec("INSERT OR REPLACE INTO components(id, project_id, name) VALUES (?, ?, ?)", c.ID, c.ProjectID, c.Name)
	}
	for _, o := range d.Options {
		exec("INSERT OR REPLACE INTO options(id, field_id, value) VALUES (?, ?, ?)", o.ID, o.FieldID, o.Value)
	}
	for _, f := range d.CustomFields {
		exec("INSERT OR REPLACE INTO custom_fields(id, name, field_type) VALUES (?, ?, ?)", f.ID, f.Name, string(f.Type))
	}
	for _, f := range d.Filters {
		if _, decodeErr := f.Decode(); decodeErr != nil && err == nil {
			err = decodeErr
		}
		exec("INSERT OR REPLACE INTO filters(id, name, owner, clause) VALUES (?, ?, ?, ?)",
			f.ID, f.Name, f.Owner, string(f.Clause))
	}
	for _, g := range d.Grants {
		for _, u := range g.Users {
			exec("INSERT INTO grants(project_id, permission, user_key) VALUES (?, ?, ?)", g.ProjectID, string(g.Permission), u)
		}
		for _, gr := range g.Groups {
			exec("INSERT INTO grants(project_id, permission, group_name) VALUES (?, ?, ?)", g.ProjectID, string(g.Permission), gr)
		}
	}
	for _, g := range d.SecurityGrants {
		for _, u := range g.Users {
			exec("INSERT INTO security_grants(level_id, user_key) VALUES (?, ?)", g.LevelID, u)
		}
		for _, gr := range g.Groups {
			exec("INSERT INTO security_grants(level_id, group_name) VALUES (?, ?)", g.LevelID, gr)
		}
	}
	return err
}

func cached[T any](s *SQLite, key string, load func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.Add(key, v)
	return v, nil
}

func queryRows[T any](ctx context.Context, db *sql.DB, scan func(*sql.Rows) (T, error), query string, args ...interface{}) (result []T, err error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()
	for rows.Next() {
		v, scanErr := scan(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// FindUsers implements Users.
func (s *SQLite) FindUsers(ctx context.Context, name string) ([]User, error) {
	return cached(s, "user:"+strings.ToLower(name), func() ([]User, error) {
		users, err := queryRows(ctx, s.db, func(rows *sql.Rows) (User, error) {
			var u User
			return u, rows.Scan(&u.Key, &u.Name, &u.Email, &u.DisplayName)
		}, `SELECT user_key, name, email, display_name FROM users
			WHERE user_key = ? COLLATE NOCASE OR name = ? COLLATE NOCASE OR (email != '' AND email = ? COLLATE NOCASE)
			ORDER BY user_key`, name, name, name)
		if err != nil {
			return nil, errors.WithMessagef(err, "find users %q", name)
		}
		for i := range users {
			if users[i].Groups, err = s.groupsOf(ctx, users[i].Key); err != nil {
				return nil, err
			}
		}
		return users, nil
	})
}

func (s *SQLite) groupsOf(ctx context.Context, user string) ([]string, error) {
	return queryRows(ctx, s.db, scanString, "SELECT group_name FROM user_groups WHERE user_key = ? ORDER BY group_name", user)
}

// GroupMembers implements Users.
func (s *SQLite) GroupMembers(ctx context.Context, group string) ([]string, error) {
	return cached(s, "group:"+strings.ToLower(group), func() ([]string, error) {
		return queryRows(ctx, s.db, scanString,
			"SELECT user_key FROM user_groups WHERE group_name = ? COLLATE NOCASE ORDER BY user_key", group)
	})
}

// Constants implements Constants.
func (s *SQLite) Constants(ctx context.Context, kind ConstantKind) ([]Constant, error) {
	return cached(s, "constant:"+string(kind), func() ([]Constant, error) {
		return queryRows(ctx, s.db, func(rows *sql.Rows) (Constant, error) {
			c := Constant{Kind: kind}
			return c, rows.Scan(&c.ID, &c.Name, &c.Sequence)
		}, "SELECT id, name, sequence FROM constants WHERE kind = ? ORDER BY sequence, id", string(kind))
	})
}

// Projects implements Projects.
func (s *SQLite) Projects(ctx context.Context) ([]Project, error) {
	return cached(s, "projects", func() ([]Project, error) {
		return queryRows(ctx, s.db, func(rows *sql.Rows) (Project, error) {
			var p Project
			return p, rows.Scan(&p.ID, &p.Key, &p.Name)
		}, "SELECT id, project_key, name FROM projects ORDER BY id")
	})
}

// Versions implements Versions.
func (s *SQLite) Versions(ctx context.Context, projectID int64) ([]Version, error) {
	return cached(s, "versions:"+strconv.FormatInt(projectID, 10), func() ([]Version, error) {
		return queryRows(ctx, s.db, func(rows *sql.Rows) (Version, error) {
			var v Version
			return v, rows.Scan(&v.ID, &v.ProjectID, &v.Name, &v.Released, &v.Sequence)
		}, `SELECT id, project_id, name, released, sequence FROM versions
			WHERE ? = 0 OR project_id = ? ORDER BY sequence, id`, projectID, projectID)
	})
}

// Components implements Components.
func (s *SQLite) Components(ctx context.Context) ([]Component, error) {
	return cached(s, "components", func() ([]Component, error) {
		return queryRows(ctx, s.db, func(rows *sql.Rows) (Component, error) {
			var c Component
			return c, rows.Scan(&c.ID, &c.ProjectID, &c.Name)
		}, "SELECT id, project_id, name FROM components ORDER BY id")
	})
}

// Options implements Options.
func (s *SQLite) Options(ctx context.Context, fieldID string) ([]Option, error) {
	return cached(s, "options:"+fieldID, func() ([]Option, error) {
		return queryRows(ctx, s.db, func(rows *sql.Rows) (Option, error) {
			o := Option{FieldID: fieldID}
			return o, rows.Scan(&o.ID, &o.Value)
		}, "SELECT id, value FROM options WHERE field_id = ? ORDER BY id", fieldID)
	})
}

// CustomFields implements CustomFields.
func (s *SQLite) CustomFields(ctx context.Context) ([]CustomField, error) {
	return cached(s, "customfields", func() ([]CustomField, error) {
		return queryRows(ctx, s.db, func(rows *sql.Rows) (CustomField, error) {
			var (
				f   CustomField
				typ string
			)
			err := rows.Scan(&f.ID, &f.Name, &typ)
			f.Type = CustomFieldType(typ)
			return f, err
		}, "SELECT id, name, field_type FROM custom_fields ORDER BY id")
	})
}

// Filter implements Filters.
func (s *SQLite) Filter(ctx context.Context, idOrName string) (Filter, error) {
	return cached(s, "filter:"+strings.ToLower(idOrName), func() (Filter, error) {
		specs, err := queryRows(ctx, s.db, func(rows *sql.Rows) (FilterSpec, error) {
			var (
				f   FilterSpec
				raw string
			)
			err := rows.Scan(&f.ID, &f.Name, &f.Owner, &raw)
			f.Clause = []byte(raw)
			return f, err
		}, "SELECT id, name, owner, clause FROM filters ORDER BY id")
		if err != nil {
			return Filter{}, err
		}
		for _, f := range specs {
			if matchesFilter(f.ID, f.Name, idOrName) {
				return f.Decode()
			}
		}
		return Filter{}, errors.Wrapf(ErrNotFound, "filter %q", idOrName)
	})
}

// ProjectsWithPermission implements Permissions.
func (s *SQLite) ProjectsWithPermission(ctx context.Context, user string, perm Permission) ([]int64, error) {
	return cached(s, "perm:"+string(perm)+":"+user, func() ([]int64, error) {
		ids, err := queryRows(ctx, s.db, func(rows *sql.Rows) (int64, error) {
			var id int64
			return id, rows.Scan(&id)
		}, `SELECT DISTINCT g.project_id FROM grants g
			WHERE g.permission = ? AND ((g.user_key != '' AND g.user_key = ?)
			OR (g.group_name != '' AND g.group_name IN (SELECT group_name FROM user_groups WHERE user_key = ?)))`,
			string(perm), user, user)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids, err
	})
}

// SecurityLevels implements Permissions.
func (s *SQLite) SecurityLevels(ctx context.Context, user string) ([]Constant, error) {
	return cached(s, "levels:"+user, func() ([]Constant, error) {
		return queryRows(ctx, s.db, func(rows *sql.Rows) (Constant, error) {
			c := Constant{Kind: KindSecurityLevel}
			return c, rows.Scan(&c.ID, &c.Name, &c.Sequence)
		}, `SELECT c.id, c.name, c.sequence FROM constants c
			WHERE c.kind = ? AND c.id IN (
				SELECT level_id FROM security_grants
				WHERE (user_key != '' AND user_key = ?)
				OR (group_name != '' AND group_name IN (SELECT group_name FROM user_groups WHERE user_key = ?)))
			ORDER BY c.sequence, c.id`, string(KindSecurityLevel), user, user)
	})
}

func scanString(rows *sql.Rows) (string, error) {
	var s string
	return s, rows.Scan(&s)
}
