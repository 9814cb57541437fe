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

func newSearchCmd(ws *workspace) *cobra.Command {
	var clausePath string
	searchCmd := &cobra.Command{
		Use:     "search -f [file|dir|-] -d dataset.yaml",
		Version: version.Parse(),
		Short:   "Search the dataset and print the keys of the matching issues",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if ws.dataset == "" {
				return errDatasetRequired
			}
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
			svc := ws.service()
			for i, cl := range clauses {
				ids, err := svc.Search(cmd.Context(), ws.request(), cl)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out, docSeparator)
				}
				for _, id := range ids {
					fmt.Fprintln(out, ws.key(id))
				}
			}
			return nil
		},
	}
	searchCmd.Flags().StringVarP(&clausePath, "file", "f", "", "the clause file, a directory of them or - for stdin")
	_ = searchCmd.MarkFlagRequired("file")
	return searchCmd
}
