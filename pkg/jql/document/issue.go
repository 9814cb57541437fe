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
	"github.com/apache/skywalking-issueql/pkg/jql/resolve"
	"github.com/apache/skywalking-issueql/pkg/timestamp"
)

// Issue is the indexed state of an issue. Constants, versions, components
// and options are referenced by id, users by key.
type Issue struct {
	Created          time.Time           `json:"created"`
	Updated          time.Time           `json:"updated,omitempty"`
	Resolved         time.Time           `json:"resolved,omitempty"`
	Due              time.Time           `json:"due,omitempty"`
	CustomFields     map[string][]string `json:"customFields,omitempty"`
	Key              string              `json:"key"`
	Type             string              `json:"type,omitempty"`
	Status           string              `json:"status,omitempty"`
	Priority         string              `json:"priority,omitempty"`
	Resolution       string              `json:"resolution,omitempty"`
	SecurityLevel    string              `json:"securityLevel,omitempty"`
	Assignee         string              `json:"assignee,omitempty"`
	Reporter         string              `json:"reporter,omitempty"`
	Creator          string              `json:"creator,omitempty"`
	Summary          string              `json:"summary,omitempty"`
	Description      string              `json:"description,omitempty"`
	Environment      string              `json:"environment,omitempty"`
	Comments         []string            `json:"comments,omitempty"`
	Labels           []string            `json:"labels,omitempty"`
	FixVersions      []int64             `json:"fixVersions,omitempty"`
	AffectedVersions []int64             `json:"affectedVersions,omitempty"`
	Components       []int64             `json:"components,omitempty"`
	Watchers         []string            `json:"watchers,omitempty"`
	Voters           []string            `json:"voters,omitempty"`
	// Hidden lists the fields the issue's configuration doesn't show.
	Hidden            []string  `json:"hidden,omitempty"`
	Changes           []Change  `json:"changes,omitempty"`
	ID                int64     `json:"id"`
	ProjectID         int64     `json:"projectId"`
	Votes             int64     `json:"votes,omitempty"`
	OriginalEstimate  *Duration `json:"originalEstimate,omitempty"`
	RemainingEstimate *Duration `json:"remainingEstimate,omitempty"`
	TimeSpent         *Duration `json:"timeSpent,omitempty"`
}

// Duration is a time tracking value written as a Go duration, "2h30m" for instance.
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	d.Duration, err = timestamp.ParseDuration(s)
	return err
}

// Builder turns issues into index documents.
type Builder struct {
	customFields map[string]resolve.CustomField
}

// NewBuilder returns a Builder aware of the custom field definitions.
func NewBuilder(customFields []resolve.CustomField) *Builder {
	b := &Builder{customFields: make(map[string]resolve.CustomField, len(customFields))}
	for _, f := range customFields {
		b.customFields[f.ID] = f
	}
	return b
}

type issueDoc struct {
	hidden map[string]struct{}
	doc    index.Document
}

func (d *issueDoc) visible(field string) bool {
	_, ok := d.hidden[field]
	return !ok
}

func (d *issueDoc) mark(field string, nonEmpty bool) {
	d.doc.Add(FieldVisible, field)
	if nonEmpty {
		d.doc.Add(FieldNonEmpty, field)
	}
}

// terms indexes values, or nothing when the field is empty.
func (d *issueDoc) terms(field string, values ...string) {
	if !d.visible(field) {
		return
	}
	values = compact(values)
	d.mark(field, len(values) > 0)
	if len(values) > 0 {
		d.doc.Add(field, values...)
	}
}

// sentinel indexes values, or EmptySentinel when the field is empty.
func (d *issueDoc) sentinel(field string, values ...string) {
	if !d.visible(field) {
		return
	}
	values = compact(values)
	d.mark(field, len(values) > 0)
	if len(values) == 0 {
		values = []string{EmptySentinel}
	}
	d.doc.Add(field, values...)
}

func (d *issueDoc) text(field string, texts ...string) {
	if !d.visible(field) {
		return
	}
	text := strings.TrimSpace(strings.Join(texts, "\n"))
	d.mark(field, text != "")
	if text != "" {
		d.doc.AddText(field, text, index.AnalyzerStandard)
	}
}

func (d *issueDoc) date(field string, t time.Time) {
	if t.IsZero() {
		d.terms(field)
		return
	}
	d.terms(field, convert.TimeToTerm(t))
}

func (d *issueDoc) duration(field string, v *Duration) {
	if v == nil {
		d.terms(field)
		return
	}
	d.terms(field, convert.Int64ToTerm(int64(v.Duration/time.Second)))
}

// Issue returns the primary index document of is.
func (b *Builder) Issue(is Issue) index.Document {
	d := &issueDoc{hidden: make(map[string]struct{}, len(is.Hidden))}
	for _, h := range is.Hidden {
		d.hidden[h] = struct{}{}
	}
	d.doc.AddStored(FieldIssueID, strconv.FormatInt(is.ID, 10))
	d.terms(FieldKey, strings.ToLower(is.Key))
	d.terms(FieldProject, strconv.FormatInt(is.ProjectID, 10))
	d.terms(FieldType, is.Type)
	d.terms(FieldStatus, is.Status)
	d.sentinel(FieldPriority, is.Priority)
	d.sentinel(FieldResolution, is.Resolution)
	d.sentinel(FieldSecurityLevel, is.SecurityLevel)
	d.sentinel(FieldAssignee, is.Assignee)
	d.sentinel(FieldReporter, is.Reporter)
	d.terms(FieldCreator, is.Creator)
	d.text(FieldSummary, is.Summary)
	d.text(FieldDescription, is.Description)
	d.text(FieldEnvironment, is.Environment)
	d.text(FieldComment, is.Comments...)
	d.terms(FieldLabels, is.Labels...)
	d.sentinel(FieldFixVersion, formatIDs(is.FixVersions)...)
	d.sentinel(FieldAffectedVersion, formatIDs(is.AffectedVersions)...)
	d.sentinel(FieldComponent, formatIDs(is.Components)...)
	d.terms(FieldWatchers, is.Watchers...)
	d.terms(FieldVoters, is.Voters...)
	d.terms(FieldVotes, convert.Int64ToTerm(is.Votes))
	d.date(FieldCreated, is.Created)
	d.date(FieldUpdated, is.Updated)
	d.date(FieldResolved, is.Resolved)
	d.date(FieldDue, is.Due)
	d.duration(FieldOriginalEstimate, is.OriginalEstimate)
	d.duration(FieldRemainingEstimate, is.RemainingEstimate)
	d.duration(FieldTimeSpent, is.TimeSpent)
	for id, cf := range b.customFields {
		b.custom(d, cf, is.CustomFields[id])
	}
	return d.doc
}

func (b *Builder) custom(d *issueDoc, cf resolve.CustomField, values []string) {
	field := CustomField(cf.ID)
	switch cf.Type {
	case resolve.CustomSelect, resolve.CustomUser:
		d.sentinel(field, values...)
	case resolve.CustomText:
		d.text(field, values...)
	case resolve.CustomNumber:
		terms := make([]string, 0, len(values))
		for _, v := range values {
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				terms = append(terms, convert.Int64ToTerm(n))
			}
		}
		d.terms(field, terms...)
	case resolve.CustomDate:
		terms := make([]string, 0, len(values))
		for _, v := range values {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				terms = append(terms, convert.TimeToTerm(t))
			} else if t, err := time.Parse("2006-01-02", strings.TrimSpace(v)); err == nil {
				terms = append(terms, convert.TimeToTerm(t))
			}
		}
		d.terms(field, terms...)
	default:
		d.terms(field, values...)
	}
}

func formatIDs(ids []int64) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, strconv.FormatInt(id, 10))
	}
	return result
}

func compact(values []string) []string {
	result := values[:0:0]
	for _, v := range values {
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
