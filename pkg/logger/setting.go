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

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const rootName = "ROOT"

var root = rootLogger{}

type rootLogger struct {
	l    *Logger
	m    sync.Mutex
	done uint32
}

func (rl *rootLogger) verify() {
	if atomic.LoadUint32(&rl.done) == 0 {
		rl.setDefault()
	}
}

func (rl *rootLogger) setDefault() {
	rl.m.Lock()
	defer rl.m.Unlock()
	if rl.done == 0 {
		defer atomic.StoreUint32(&rl.done, 1)
		var err error
		rl.l, err = getLogger(Logging{
			Env:   "prod",
			Level: "info",
		})
		if err != nil {
			panic(err)
		}
	}
}

func (rl *rootLogger) set(cfg Logging) error {
	rl.m.Lock()
	defer rl.m.Unlock()
	l, err := getLogger(cfg)
	if err != nil {
		return err
	}
	rl.l = l
	atomic.StoreUint32(&rl.done, 1)
	return nil
}

// GetLogger return logger with a scope.
func GetLogger(scope ...string) *Logger {
	root.verify()
	if len(scope) < 1 {
		return root.l
	}
	return root.l.Named(scope...)
}

// Init initializes a rs/zerolog logger from user config.
func Init(cfg Logging) error {
	return root.set(cfg)
}

func getLogger(cfg Logging) (*Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	modules, err := parseModuleLevels(cfg.Modules, cfg.Levels)
	if err != nil {
		return nil, err
	}
	var w io.Writer
	development := cfg.Env == "dev"
	if development {
		cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		cw.FormatLevel = func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		}
		cw.FormatFieldName = func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		}
		w = io.Writer(cw)
	} else {
		w = os.Stdout
	}
	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{module: rootName, base: &l, modules: modules, development: development, Logger: &l}, nil
}

func parseModuleLevels(modules, levels []string) (map[string]zerolog.Level, error) {
	if len(modules) != len(levels) {
		return nil, errors.Errorf("modules %v and levels %v are not paired", modules, levels)
	}
	if len(modules) == 0 {
		return nil, nil
	}
	result := make(map[string]zerolog.Level, len(modules))
	for i, m := range modules {
		lvl, err := zerolog.ParseLevel(levels[i])
		if err != nil {
			return nil, errors.WithMessagef(err, "module %s", m)
		}
		result[strings.ToUpper(m)] = lvl
	}
	return result, nil
}
