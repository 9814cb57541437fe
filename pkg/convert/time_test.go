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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeToTerm(t *testing.T) {
	ts := time.Date(2008, 6, 15, 15, 23, 1, 7*int(time.Millisecond), time.UTC)
	term := TimeToTerm(ts)
	assert.Equal(t, "20080615152301.007", term)
	back, err := TermToTime(term)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))

	earlier := TimeToTerm(ts.Add(-time.Millisecond))
	later := TimeToTerm(ts.Add(time.Millisecond))
	assert.Less(t, earlier, term)
	assert.Less(t, term, later)
}

func TestTimeToTermNormalizesZone(t *testing.T) {
	sydney := time.FixedZone("AEST", 10*3600)
	ts := time.Date(2008, 6, 16, 8, 0, 0, 0, sydney)
	assert.Equal(t, "20080615220000.000", TimeToTerm(ts))
	assert.Equal(t, "20080615220000.000", TimeToTerm(MillisToTime(ts.UnixMilli())))
}
