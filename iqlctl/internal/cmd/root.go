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

// Package cmd implements the commands of iqlctl.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/apache/skywalking-issueql/pkg/config"
	"github.com/apache/skywalking-issueql/pkg/logger"
	"github.com/apache/skywalking-issueql/pkg/version"
)

const configName = "iqlctl"

// NewRoot returns the root command.
func NewRoot() *cobra.Command {
	logging := logger.Logging{}
	ws := &workspace{}
	cmd := &cobra.Command{
		DisableAutoGenTag: true,
		Use:               "iqlctl",
		Version:           version.Parse(),
		Short:             "iqlctl compiles issue query clauses and runs them against a dataset",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(configName, cmd.Flags()); err != nil {
				return err
			}
			return logger.Init(logging)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&logging.Env, "logging-env", "prod", "the logging")
	flags.StringVar(&logging.Level, "logging-level", "warn", "the root level of logging")
	flags.StringArrayVar(&logging.Modules, "logging-modules", nil, "the specific module")
	flags.StringArrayVar(&logging.Levels, "logging-levels", nil, "the level logging of logging")
	ws.bindFlags(flags)
	cmd.AddCommand(newCompileCmd(ws), newSearchCmd(ws))
	return cmd
}
