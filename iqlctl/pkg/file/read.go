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

// Package file reads clause and dataset documents.
package file

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Document is the content of one file.
type Document struct {
	Name    string
	Content []byte
}

// Read returns the document at path, stdin when path is "-", or every
// YAML and JSON document below path when it's a directory, ordered by name.
func Read(path string, stdin io.Reader) ([]Document, error) {
	if path == "-" {
		b, err := io.ReadAll(bufio.NewReader(stdin))
		if err != nil {
			return nil, errors.WithMessage(err, "read stdin")
		}
		return []Document{{Name: "-", Content: b}}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Document{{Name: path, Content: b}}, nil
	}
	var docs []Document
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(p) {
		case ".yml", ".yaml", ".json":
		default:
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		docs = append(docs, Document{Name: p, Content: b})
		return nil
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "walk %s", path)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
