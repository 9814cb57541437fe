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

package document

import (
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/apache/skywalking-issueql/pkg/index"
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
)

// Dataset is the reference data plus the issues to index.
type Dataset struct {
	resolve.Dataset
	Issues []Issue `json:"issues,omitempty"`
}

// ParseDataset decodes a YAML or JSON dataset.
func ParseDataset(data []byte) (Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Dataset{}, errors.WithMessage(err, "decode dataset")
	}
	return d, nil
}

// Index writes the documents of issues into primary and history.
func (b *Builder) Index(primary, history index.Writer, issues ...Issue) error {
	docs := make([]index.Document, 0, len(issues))
	var changes []index.Document
	for _, is := range issues {
		docs = append(docs, b.Issue(is))
		changes = append(changes, b.History(is)...)
	}
	if err := primary.Insert(docs...); err != nil {
		return errors.WithMessage(err, "index issues")
	}
	if err := history.Insert(changes...); err != nil {
		return errors.WithMessage(err, "index change history")
	}
	return nil
}
