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

package inverted

import (
	"github.com/blugelabs/bluge/analysis"
	"github.com/blugelabs/bluge/analysis/analyzer"

	"github.com/apache/skywalking-issueql/pkg/convert"
	"github.com/apache/skywalking-issueql/pkg/index"
)

// Analyzers is a map that associates each analyzer name with a corresponding Analyzer.
var Analyzers map[string]*analysis.Analyzer

func init() {
	Analyzers = map[string]*analysis.Analyzer{
		index.AnalyzerKeyword:  analyzer.NewKeywordAnalyzer(),
		index.AnalyzerSimple:   analyzer.NewSimpleAnalyzer(),
		index.AnalyzerStandard: analyzer.NewStandardAnalyzer(),
	}
}

// Analyze splits text into the terms the named analyzer indexes.
// Unknown analyzers fall back to the keyword analyzer.
func Analyze(name, text string) []string {
	if text == "" {
		return nil
	}
	a, ok := Analyzers[name]
	if !ok {
		a = Analyzers[index.AnalyzerKeyword]
	}
	tokens := a.Analyze(convert.StringToBytes(text))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len(t.Term) == 0 {
			continue
		}
		terms = append(terms, string(t.Term))
	}
	return terms
}
