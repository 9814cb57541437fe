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

package history

import (
	"context"

	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/jql/converter"
	"github.com/apache/skywalking-issueql/pkg/jql/factory"
)

var _ factory.ClauseCompiler = (*Compiler)(nil)

// Compiler compiles the history clauses of a tracked field.
type Compiler struct {
	engine *Engine
	conv   converter.Converter
	field  string
}

// NewCompiler returns the history compiler of the index field whose values conv converts.
func NewCompiler(engine *Engine, field string, conv converter.Converter) *Compiler {
	return &Compiler{engine: engine, field: field, conv: conv}
}

// Compile implements factory.ClauseCompiler. Clauses without a history operator compile to False.
func (c *Compiler) Compile(ctx context.Context, env factory.Env, t *clause.Terminal) (factory.Result, error) {
	if !t.Operator.IsHistory() {
		return factory.False(), nil
	}
	q, err := c.engine.Search(ctx, Request{Field: c.field, Converter: c.conv, Clause: t, CC: env.CC})
	if err != nil {
		return factory.Result{}, err
	}
	return factory.Result{Query: q}, nil
}
