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

package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenizh/go-capturer"

	"github.com/apache/skywalking-issueql/iqlctl/internal/cmd"
	"github.com/apache/skywalking-issueql/pkg/jql/compiler"
	"github.com/apache/skywalking-issueql/pkg/jql/search"
	"github.com/apache/skywalking-issueql/pkg/test/fixture"
)

const (
	statusOpen    = "field: status\noperator: \"=\"\nvalue: Open\n"
	ownWatches    = "field: watchers\noperator: \"=\"\nfunction:\n  name: currentUser\n"
	cyclicFilter  = "field: filter\noperator: \"=\"\nvalue: Cycle A\n"
	statusOrOwned = "or:\n  - field: status\n    operator: \"=\"\n    value: Closed\n  - field: assignee\n    operator: \"=\"\n    value: bob\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func dataset(t *testing.T) string {
	return writeFile(t, t.TempDir(), "dataset.yaml", string(fixture.Dataset))
}

func execute(t *testing.T, args ...string) (string, error) {
	root := cmd.NewRoot()
	root.SetArgs(args)
	var err error
	out := capturer.CaptureStdout(func() {
		err = root.Execute()
	})
	return out, err
}

// keys drops the log lines sharing stdout with the issue keys.
func keys(out string) []string {
	var kk []string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if l != "" && !strings.HasPrefix(l, "{") {
			kk = append(kk, l)
		}
	}
	return kk
}

func TestSearch(t *testing.T) {
	ds := dataset(t)
	tests := []struct {
		name   string
		clause string
		args   []string
		want   []string
	}{
		{name: "memory", clause: statusOpen, args: []string{"--override-security"}, want: []string{"HSP-2", "MKY-1"}},
		{name: "bluge", clause: statusOpen, args: []string{"--override-security", "--backend", "bluge"}, want: []string{"HSP-2", "MKY-1"}},
		{name: "sqlite directory", clause: statusOpen, args: []string{"--override-security", "--directory", "sqlite"}, want: []string{"HSP-2", "MKY-1"}},
		{name: "or", clause: statusOrOwned, args: []string{"--override-security"}, want: []string{"HSP-3", "MKY-1"}},
		{name: "browsable by admin", clause: statusOpen, args: []string{"--user", "admin"}, want: []string{"HSP-2"}},
		{name: "browsable by bob", clause: statusOpen, args: []string{"--user", "bob"}, want: []string{"MKY-1"}},
		{name: "sqlite grants", clause: statusOrOwned, args: []string{"--user", "admin", "--directory", "sqlite"}, want: []string{"HSP-3"}},
		{name: "current user", clause: ownWatches, args: []string{"--user", "fred"}, want: []string{"HSP-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "clause.yaml", tt.clause)
			out, err := execute(t, append([]string{"search", "-d", ds, "-f", path}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(out))
		})
	}
}

func TestSearchUserFromEnv(t *testing.T) {
	t.Setenv("IQL_USER", "bob")
	path := writeFile(t, t.TempDir(), "clause.yaml", ownWatches)
	out, err := execute(t, "search", "-d", dataset(t), "-f", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"MKY-1"}, keys(out))
}

func TestSearchWithoutUser(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clause.yaml", statusOpen)
	out, err := execute(t, "search", "-d", dataset(t), "-f", path)
	require.NoError(t, err)
	assert.Empty(t, keys(out))
}

func TestSearchWritesToCommandOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clause.yaml", statusOpen)
	root := cmd.NewRoot()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"search", "-d", dataset(t), "-f", path, "--user", "bob", "--metrics"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "MKY-1\n", stdout.String())
	assert.Contains(t, stderr.String(), `iql_search_total{result="ok"} 1`)
}

func TestSearchRequiresDataset(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clause.yaml", statusOpen)
	_, err := execute(t, "search", "-f", path)
	assert.ErrorContains(t, err, "--dataset is required")
}

func TestSearchErrors(t *testing.T) {
	ds := dataset(t)
	path := writeFile(t, t.TempDir(), "clause.yaml", cyclicFilter)
	_, err := execute(t, "search", "-d", ds, "-f", path)
	assert.ErrorIs(t, err, compiler.ErrCyclicReference)

	path = writeFile(t, t.TempDir(), "clause.yaml", statusOrOwned)
	_, err = execute(t, "search", "-d", ds, "-f", path, "--max-clauses", "1")
	assert.ErrorIs(t, err, search.ErrClauseTooComplex)

	_, err = execute(t, "search", "-d", ds, "-f", path, "--backend", "lsm")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestCompile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clause.yaml", statusOpen)
	out, err := execute(t, "compile", "-d", dataset(t), "-f", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"term":{"field":"status","value":"1"}}`, out)
}

func TestCompileWithoutDataset(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clause.yaml", statusOpen)
	out, err := execute(t, "compile", "-f", path)
	require.NoError(t, err)
	assert.JSONEq(t, `"matchNone"`, out)
}

func TestCompileDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1-open.yaml", statusOpen)
	writeFile(t, dir, "2-key.yaml", "field: key\noperator: \"=\"\nvalue: HSP-1\n")
	out, err := execute(t, "compile", "-d", dataset(t), "-f", dir)
	require.NoError(t, err)
	docs := strings.Split(out, "---\n")
	require.Len(t, docs, 2)
	assert.JSONEq(t, `{"term":{"field":"status","value":"1"}}`, docs[0])
	assert.JSONEq(t, `{"term":{"field":"key","value":"hsp-1"}}`, docs[1])
}

func TestMetrics(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clause.yaml", statusOpen)
	var err error
	stderr := capturer.CaptureStderr(func() {
		_, err = execute(t, "search", "-d", dataset(t), "-f", path, "--metrics")
	})
	require.NoError(t, err)
	assert.Contains(t, stderr, `iql_search_total{result="ok"} 1`)
	assert.Contains(t, stderr, `iql_compile_total{result="ok"} 1`)
}
