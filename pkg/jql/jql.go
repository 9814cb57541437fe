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

// Package jql compiles issue query clause trees into index queries.
package jql

// CreationContext is the identity a query is compiled for.
// It is read-only for the duration of a compilation.
type CreationContext struct {
	// User is the key of the acting user. Empty means anonymous.
	User string
	// OverrideSecurity skips authorization scoping.
	OverrideSecurity bool
}

// IsAnonymous reports whether no user is acting.
func (cc CreationContext) IsAnonymous() bool {
	return cc.User == ""
}
