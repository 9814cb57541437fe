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

// Package version reports the build of iqlctl, injected from git at link time.
package version

import (
	"fmt"
	"strings"
)

// build is set with -ldflags "-X github.com/apache/skywalking-issueql/pkg/version.build=$(git describe --tags --long --all)".
var build string

// Build returns the raw build label.
func Build() string {
	return build
}

// Parse renders the build label <tag>-<commits>-g<hash>-<branch> as a version.
func Parse() string {
	return parse(build)
}

func parse(label string) string {
	parts := strings.SplitN(label, "-", 4)
	if len(parts) != 4 {
		return "v0.0.0-unofficial"
	}
	tag := parts[0]
	if tag != "" && tag[0] != 'v' && tag[0] != 'V' {
		tag = "v" + tag
	}
	commits, hash, branch := parts[1], strings.TrimPrefix(parts[2], "g"), parts[3]
	switch {
	case commits != "0":
		return fmt.Sprintf("%s-%s (%s, +%s)", tag, branch, hash, commits)
	case branch != "main":
		return tag + "-" + branch
	default:
		return tag
	}
}
