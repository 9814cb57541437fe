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

package convert

import (
	"time"
)

// TimeLayout is the layout of indexed timestamps, millisecond precision in UTC.
const TimeLayout = "20060102150405.000"

// TimeToTerm encodes t as a sortable term.
func TimeToTerm(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// TermToTime reverts TimeToTerm.
func TermToTime(term string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, term, time.UTC)
}

// MillisToTime converts epoch milliseconds to a time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
