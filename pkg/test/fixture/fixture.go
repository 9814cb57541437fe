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

// Package fixture loads the sample issue dataset shared by the query tests.
package fixture

import (
	_ "embed"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/index/inverted"
	"github.com/apache/skywalking-issueql/pkg/jql/document"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
)

// Dataset is the sample dataset in YAML.
//
//go:embed dataset.yaml
var Dataset []byte

// Issues is the indexed sample dataset.
type Issues struct {
	Dir     *resolve.Memory
	Primary index.Store
	History index.Store
	Dataset document.Dataset
}

// Backend names a way of indexing the sample dataset.
type Backend struct {
	Load func(t testing.TB) *Issues
	Name string
}

// Backends lists the index backends the sample dataset loads into.
var Backends = []Backend{
	{Name: "memory", Load: Load},
	{Name: "bluge", Load: LoadBluge},
}

// Load parses and indexes the sample dataset in memory.
func Load(t testing.TB) *Issues {
	return load(t, inverted.NewMemStore(inverted.MemStoreOpts{}), inverted.NewMemStore(inverted.MemStoreOpts{}))
}

// LoadBluge parses and indexes the sample dataset into in-memory bluge stores.
func LoadBluge(t testing.TB) *Issues {
	primary, err := inverted.NewStore(inverted.StoreOpts{})
	require.NoError(t, err)
	history, err := inverted.NewStore(inverted.StoreOpts{})
	require.NoError(t, err)
	return load(t, primary, history)
}

func load(t testing.TB, primary, history index.Store) *Issues {
	t.Cleanup(func() {
		_ = primary.Close()
		_ = history.Close()
	})
	d, err := document.ParseDataset(Dataset)
	require.NoError(t, err)
	dir, err := resolve.NewMemory(d.Dataset)
	require.NoError(t, err)
	is := &Issues{
		Dir:     dir,
		Primary: primary,
		History: history,
		Dataset: d,
	}
	require.NoError(t, document.NewBuilder(d.CustomFields).Index(is.Primary, is.History, d.Issues...))
	return is
}

// Keys returns the keys of the issues with the given ids, in dataset order.
func (is *Issues) Keys(ids ...string) []string {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var keys []string
	for _, i := range is.Dataset.Issues {
		if _, ok := set[strconv.FormatInt(i.ID, 10)]; ok {
			keys = append(keys, i.Key)
		}
	}
	return keys
}
