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

// Package convert implements helpers converting values to and from their indexed forms.
package convert

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/pkg/errors"
)

const signFlip = uint64(1) << 63

// ErrInvalidTerm indicates a term is not an encoded number.
var ErrInvalidTerm = errors.New("invalid numeric term")

// Uint64ToBytes encodes u in big endian.
func Uint64ToBytes(u uint64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, u)
	return bs
}

// Int64ToBytes encodes i so that the byte order follows the numeric order.
func Int64ToBytes(i int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(i)^signFlip)
	return buf
}

// BytesToUint64 decodes a big endian uint64.
func BytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// BytesToInt64 reverts Int64ToBytes.
func BytesToInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ signFlip)
}

// Int64ToTerm encodes i as a fixed width hexadecimal term.
// Terms sort lexicographically in the same order as the numbers.
func Int64ToTerm(i int64) string {
	return hex.EncodeToString(Int64ToBytes(i))
}

// TermToInt64 reverts Int64ToTerm.
func TermToInt64(term string) (int64, error) {
	if len(term) != 16 {
		return 0, errors.WithMessagef(ErrInvalidTerm, "term %q", term)
	}
	b, err := hex.DecodeString(term)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidTerm, "term %q: %v", term, err)
	}
	return BytesToInt64(b), nil
}

// MinInt64Term is the lowest numeric term.
var MinInt64Term = Int64ToTerm(math.MinInt64)

// MaxInt64Term is the highest numeric term.
var MaxInt64Term = Int64ToTerm(math.MaxInt64)
