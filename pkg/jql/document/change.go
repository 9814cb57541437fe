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
	"strconv"
	"strings"
	"time"

	"github.com/apache/skywalking-issueql/pkg/convert"
	"github.com/apache/skywalking-issueql/pkg/index"
)

// TrackedFields are the fields whose changes are recorded, by index field name.
var TrackedFields = []string{
	FieldStatus,
	FieldAssignee,
	FieldReporter,
	FieldPriority,
	FieldResolution,
	FieldFixVersion,
}

// Change is one transition of a tracked field. From and To hold ids or keys,
// OldValue and NewValue the text shown at the time. Empty means unset.
type Change struct {
	At       time.Time `json:"at"`
	Field    string    `json:"field"`
	Who      string    `json:"who,omitempty"`
	From     []string  `json:"from,omitempty"`
	To       []string  `json:"to,omitempty"`
	OldValue string    `json:"oldValue,omitempty"`
	NewValue string    `json:"newValue,omitempty"`
}

// History returns the change history documents of is.
//
// Every tracked field gets an initial record at creation whose old value is empty
// and whose new value is the value the issue was created with: the From of its
// first change, or the current value when it never changed.
func (b *Builder) History(is Issue) []index.Document {
	docs := make([]index.Document, 0, len(TrackedFields)+len(is.Changes))
	creator := is.Reporter
	if is.Creator != "" {
		creator = is.Creator
	}
	for _, field := range TrackedFields {
		initial := Change{At: is.Created, Field: field, Who: creator, To: current(is, field)}
		for _, c := range is.Changes {
			if c.Field == field {
				initial.To, initial.NewValue = c.From, c.OldValue
				break
			}
		}
		if initial.NewValue == "" && len(initial.To) > 0 {
			initial.NewValue = strings.Join(initial.To, ",")
		}
		docs = append(docs, changeDoc(is.ID, ChangeKindInitial, initial))
	}
	for _, c := range is.Changes {
		docs = append(docs, changeDoc(is.ID, ChangeKindChange, c))
	}
	return docs
}

func current(is Issue, field string) []string {
	var v string
	switch field {
	case FieldStatus:
		v = is.Status
	case FieldAssignee:
		v = is.Assignee
	case FieldReporter:
		v = is.Reporter
	case FieldPriority:
		v = is.Priority
	case FieldResolution:
		v = is.Resolution
	case FieldFixVersion:
		return formatIDs(is.FixVersions)
	}
	return compact([]string{v})
}

func changeDoc(issueID int64, kind string, c Change) index.Document {
	var d index.Document
	d.AddStored(FieldChangeIssueID, strconv.FormatInt(issueID, 10))
	d.Add(FieldChangeField, c.Field)
	d.Add(FieldChangeKind, kind)
	if c.Who != "" {
		d.Add(FieldChangeWho, c.Who)
	}
	d.Add(FieldChangeDate, convert.TimeToTerm(c.At))
	d.Add(FieldChangeFrom, orSentinel(c.From)...)
	d.Add(FieldChangeTo, orSentinel(c.To)...)
	d.Add(FieldChangeOldValue, ChangeText(c.OldValue))
	d.Add(FieldChangeNewValue, ChangeText(c.NewValue))
	return d
}

// ChangeText returns the indexed form of a displayed value.
func ChangeText(s string) string {
	return ChangeTextPrefix + strings.ToLower(strings.TrimSpace(s))
}

func orSentinel(values []string) []string {
	values = compact(values)
	if len(values) == 0 {
		return []string{EmptySentinel}
	}
	return values
}
