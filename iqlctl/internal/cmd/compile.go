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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/apache/skywalking-issueql/pkg/version"
)

const docSeparator = "---"

func newCompileCmd(ws *workspace) *cobra.Command {
	var clausePath string
	compileCmd := &cobra.Command{
		Use:     "compile -f [file|dir|-]",
		Version: version.Parse(),
		Short:   "Compile clauses and print the index queries as JSON",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if err = ws.open(cmd.Context()); err != nil {
				return err
			}
			defer func() {
				err = multierr.Combine(err, ws.printMetrics(cmd.ErrOrStderr()), ws.Close())
			}()
			out := cmd.OutOrStdout()
			clauses, err := ws.clauses(clausePath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			c := ws.compiler()
			for i, cl := range clauses {
				explained, err := c.Explain(cmd.Context(), ws.request(), cl)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out, docSeparator)
				}
				fmt.Fprintln(out, explained)
			}
			return nil
		},
	}
	compileCmd.Flags().StringVarP(&clausePath, "file", "f", "", "the clause file, a directory of them or - for stdin")
	_ = compileCmd.MarkFlagRequired("file")
	return compileCmd
}
