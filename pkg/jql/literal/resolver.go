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
	"strings"

	"github.com/pkg/errors"

	"github.com/apache/skywalking-issueql/pkg/jql"
	"github.com/apache/skywalking-issueql/pkg/jql/clause"
	"github.com/apache/skywalking-issueql/pkg/logger"
)

// ErrUnknownFunction indicates a function operand nobody registered.
var ErrUnknownFunction = errors.New("unknown function")

// Function produces the values of a function operand.
type Function interface {
	Name() string
	// Values returns the literals for args. False means the call is invalid.
	Values(ctx context.Context, cc jql.CreationContext, args []string) ([]Literal, bool)
}

// Resolver turns operands into literals. It's safe for concurrent use.
type Resolver struct {
	functions map[string]Function
	l         *logger.Logger
}

// NewResolver returns a Resolver knowing fns. Function names are case insensitive.
func NewResolver(l *logger.Logger, fns ...Function) *Resolver {
	if l == nil {
		l = logger.GetLogger("literal")
	}
	r := &Resolver{functions: make(map[string]Function, len(fns)), l: l}
	for _, f := range fns {
		r.functions[strings.ToLower(f.Name())] = f
	}
	return r
}

// Function returns the function registered as name.
func (r *Resolver) Function(name string) (Function, error) {
	f, ok := r.functions[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFunction, "%s()", name)
	}
	return f, nil
}

// Values resolves operand into an ordered list of literals.
//
// A single operand yields one literal, EMPTY yields the empty literal and a list
// is flattened in order. Elements that can't be resolved keep their position as
// the empty literal. False means the operand as a whole can't be resolved.
func (r *Resolver) Values(ctx context.Context, cc jql.CreationContext, operand clause.Operand) ([]Literal, bool) {
	switch o := operand.(type) {
	case clause.Single:
		if o.IsInt {
			return []Literal{Int(o.Int)}, true
		}
		return []Literal{String(o.Str)}, true
	case clause.Empty:
		return []Literal{Empty()}, true
	case clause.Multi:
		result := make([]Literal, 0, len(o.Values))
		for _, v := range o.Values {
			values, ok := r.Values(ctx, cc, v)
			if !ok {
				result = append(result, Empty())
				continue
			}
			result = append(result, values...)
		}
		return result, true
	case clause.Function:
		f, err := r.Function(o.Name)
		if err != nil {
			r.l.Debug().Err(err).Msg("unresolved function operand")
			return nil, false
		}
		return f.Values(ctx, cc, o.Args)
	default:
		return nil, false
	}
}
