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

// Package logger implements a logging system with a module tag.
// The module tag represents a component that owns this logger.
package logger

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ContextKey is the key to store Logger in the context.
var ContextKey = contextKey{}

type contextKey struct{}

// Logging is the config info.
type Logging struct {
	Env     string
	Level   string
	Modules []string
	Levels  []string
}

// Logger is wrapper for rs/zerolog logger with module, it is singleton.
type Logger struct {
	*zerolog.Logger
	base        *zerolog.Logger
	modules     map[string]zerolog.Level
	module      string
	development bool
}

// Module as an identity of the logger.
func (l Logger) Module() string {
	return l.module
}

// Named creates a new Logger and assigns a module to it.
func (l *Logger) Named(name ...string) *Logger {
	var mm []string
	if l.module == rootName {
		mm = name
	} else {
		mm = append([]string{l.module}, name...)
	}
	var moduleBuilder strings.Builder
	var module string
	level := l.GetLevel()
	for i, m := range mm {
		if i != 0 {
			moduleBuilder.WriteString(".")
		}
		moduleBuilder.WriteString(strings.ToUpper(m))
		module = moduleBuilder.String()
		if ml, ok := l.modules[module]; ok {
			level = ml
		}
	}
	subLogger := l.base.With().Str("module", module).Logger().Level(level)
	return &Logger{module: module, base: l.base, modules: l.modules, development: l.development, Logger: &subLogger}
}

// Tagged returns a Logger adding key=value to every event, its named children included.
func (l *Logger) Tagged(key, value string) *Logger {
	base := l.base.With().Str(key, value).Logger()
	tagged := l.Logger.With().Str(key, value).Logger()
	return &Logger{module: l.module, base: &base, modules: l.modules, development: l.development, Logger: &tagged}
}

// Nop returns a Logger discarding every event.
func Nop() *Logger {
	l := zerolog.New(io.Discard).Level(zerolog.Disabled)
	return &Logger{module: rootName, base: &l, Logger: &l}
}

// WithLogger stores l in ctx for Fetch.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ContextKey, l)
}

// Fetch returns the child named newModuleName of the Logger ctx carries.
func Fetch(ctx context.Context, newModuleName string) *Logger {
	return FetchOrDefault(ctx, newModuleName, nil)
}

// FetchOrDefault returns the child named newModuleName of the Logger ctx carries,
// or defaultLogger when ctx carries none. A nil defaultLogger falls back to the global one.
func FetchOrDefault(ctx context.Context, newModuleName string, defaultLogger *Logger) *Logger {
	parentLogger := ctx.Value(ContextKey)
	if parentLogger != nil {
		if pl, ok := parentLogger.(*Logger); ok {
			return pl.Named(newModuleName)
		}
	}
	if defaultLogger == nil {
		return GetLogger(newModuleName)
	}
	return defaultLogger
}
