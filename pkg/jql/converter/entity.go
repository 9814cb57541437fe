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

package converter

import (
	"context"

	"github.com/apache/skywalking-issueql/pkg/jql/literal"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/logger"
)

var (
	_ Ranker    = (*Constant)(nil)
	_ Converter = (*User)(nil)
	_ Converter = (*Version)(nil)
	_ Converter = (*Component)(nil)
	_ Converter = (*Option)(nil)
	_ Converter = (*Project)(nil)
)

// Constant converts issue constants of one kind. Literals match an id or a name.
type Constant struct {
	dir  resolve.Constants
	l    *logger.Logger
	kind resolve.ConstantKind
}

// NewConstant returns a Constant converter for kind.
func NewConstant(dir resolve.Constants, kind resolve.ConstantKind, l *logger.Logger) *Constant {
	return &Constant{dir: dir, kind: kind, l: defaultLogger(l, string(kind))}
}

// Indexed returns the term of c.
func (c *Constant) Indexed(v resolve.Constant) string {
	return v.ID
}

func (c *Constant) all(ctx context.Context) []resolve.Constant {
	all, err := c.dir.Constants(ctx, c.kind)
	if err != nil {
		c.l.Warn().Err(err).Str("kind", string(c.kind)).Msg("failed to load constants")
		return nil
	}
	return all
}

// IndexedValues implements Converter.
func (c *Constant) IndexedValues(ctx context.Context, l literal.Literal) []string {
	return named(l, c.all(ctx),
		func(v resolve.Constant) string { return v.ID },
		func(v resolve.Constant) []string { return []string{v.Name} })
}

// Ranked implements Ranker. The constant with the lowest sequence ranks highest.
func (c *Constant) Ranked(ctx context.Context) []string {
	all := c.all(ctx)
	ids := make([]string, 0, len(all))
	for _, v := range all {
		ids = append(ids, v.ID)
	}
	return ids
}

// User converts accounts. Literals match a key, a name or an email.
type User struct {
	dir resolve.Users
	l   *logger.Logger
}

// NewUser returns a User converter.
func NewUser(dir resolve.Users, l *logger.Logger) *User {
	return &User{dir: dir, l: defaultLogger(l, "user")}
}

// Indexed returns the term of u.
func (u *User) Indexed(v resolve.User) string {
	return v.Key
}

// IndexedValues implements Converter.
func (u *User) IndexedValues(ctx context.Context, l literal.Literal) []string {
	if l.IsEmpty() {
		return nil
	}
	users, err := u.dir.FindUsers(ctx, l.Text())
	if err != nil {
		u.l.Warn().Err(err).Stringer("literal", l).Msg("failed to find users")
		return nil
	}
	keys := make([]string, 0, len(users))
	for _, v := range users {
		keys = append(keys, u.Indexed(v))
	}
	return keys
}

// Version converts versions of every project. Literals match an id or a name.
type Version struct {
	dir resolve.Versions
	l   *logger.Logger
}

// NewVersion returns a Version converter.
func NewVersion(dir resolve.Versions, l *logger.Logger) *Version {
	return &Version{dir: dir, l: defaultLogger(l, "version")}
}

// Indexed returns the term of v.
func (c *Version) Indexed(v resolve.Version) string {
	return formatID(v.ID)
}

// IndexedValues implements Converter.
func (c *Version) IndexedValues(ctx context.Context, l literal.Literal) []string {
	all, err := c.dir.Versions(ctx, 0)
	if err != nil {
		c.l.Warn().Err(err).Msg("failed to load versions")
		return nil
	}
	return named(l, all, c.Indexed, func(v resolve.Version) []string { return []string{v.Name} })
}

// Component converts components. Literals match an id or a name.
type Component struct {
	dir resolve.Components
	l   *logger.Logger
}

// NewComponent returns a Component converter.
func NewComponent(dir resolve.Components, l *logger.Logger) *Component {
	return &Component{dir: dir, l: defaultLogger(l, "component")}
}

// Indexed returns the term of v.
func (c *Component) Indexed(v resolve.Component) string {
	return formatID(v.ID)
}

// IndexedValues implements Converter.
func (c *Component) IndexedValues(ctx context.Context, l literal.Literal) []string {
	all, err := c.dir.Components(ctx)
	if err != nil {
		c.l.Warn().Err(err).Msg("failed to load components")
		return nil
	}
	return named(l, all, c.Indexed, func(v resolve.Component) []string { return []string{v.Name} })
}

// Option converts the options of a select custom field. Literals match an id or a value.
type Option struct {
	dir     resolve.Options
	l       *logger.Logger
	fieldID string
}

// NewOption returns an Option converter for the custom field fieldID.
func NewOption(dir resolve.Options, fieldID string, l *logger.Logger) *Option {
	return &Option{dir: dir, fieldID: fieldID, l: defaultLogger(l, "option")}
}

// Indexed returns the term of v.
func (c *Option) Indexed(v resolve.Option) string {
	return formatID(v.ID)
}

// IndexedValues implements Converter.
func (c *Option) IndexedValues(ctx context.Context, l literal.Literal) []string {
	all, err := c.dir.Options(ctx, c.fieldID)
	if err != nil {
		c.l.Warn().Err(err).Str("field", c.fieldID).Msg("failed to load options")
		return nil
	}
	return named(l, all, c.Indexed, func(v resolve.Option) []string { return []string{v.Value} })
}

// Project converts projects. Literals match an id, a key or a name.
type Project struct {
	dir resolve.Projects
	l   *logger.Logger
}

// NewProject returns a Project converter.
func NewProject(dir resolve.Projects, l *logger.Logger) *Project {
	return &Project{dir: dir, l: defaultLogger(l, "project")}
}

// Indexed returns the term of v.
func (c *Project) Indexed(v resolve.Project) string {
	return formatID(v.ID)
}

// IndexedValues implements Converter.
func (c *Project) IndexedValues(ctx context.Context, l literal.Literal) []string {
	all, err := c.dir.Projects(ctx)
	if err != nil {
		c.l.Warn().Err(err).Msg("failed to load projects")
		return nil
	}
	return named(l, all, c.Indexed, func(v resolve.Project) []string { return []string{v.Key, v.Name} })
}
