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

// Package document builds the index documents of issues and their change history.
package document

// Primary index fields.
const (
	FieldIssueID           = "issue_id"
	FieldKey               = "key"
	FieldProject           = "project"
	FieldType              = "type"
	FieldStatus            = "status"
	FieldPriority          = "priority"
	FieldResolution        = "resolution"
	FieldAssignee          = "assignee"
	FieldReporter          = "reporter"
	FieldCreator           = "creator"
	FieldSummary           = "summary"
	FieldDescription       = "description"
	FieldEnvironment       = "environment"
	FieldComment           = "comment"
	FieldLabels            = "labels"
	FieldFixVersion        = "fixfor"
	FieldAffectedVersion   = "version"
	FieldComponent         = "component"
	FieldWatchers          = "watchers"
	FieldVoters            = "voters"
	FieldVotes             = "votes"
	FieldSecurityLevel     = "issue_security_level"
	FieldCreated           = "created"
	FieldUpdated           = "updated"
	FieldResolved          = "resolutiondate"
	FieldDue               = "duedate"
	FieldOriginalEstimate  = "timeoriginalestimate"
	FieldRemainingEstimate = "timeestimate"
	FieldTimeSpent         = "timespent"

	// FieldVisible lists the fields configured for the issue.
	FieldVisible = "visiblefieldids"
	// FieldNonEmpty lists the fields holding a value.
	FieldNonEmpty = "nonemptyfieldids"

	// CustomFieldPrefix prefixes the index field of a custom field id.
	CustomFieldPrefix = "customfield_"
)

// EmptySentinel is indexed in place of a missing value by the fields that track emptiness with a term.
const EmptySentinel = "-1"

// Change history index fields.
const (
	FieldChangeIssueID  = "ch_issueid"
	FieldChangeField    = "ch_field"
	FieldChangeKind     = "ch_kind"
	FieldChangeWho      = "ch_who"
	FieldChangeDate     = "ch_date"
	FieldChangeFrom     = "ch_from"
	FieldChangeTo       = "ch_to"
	FieldChangeOldValue = "ch_oldvalue"
	FieldChangeNewValue = "ch_newvalue"
)

// Change kinds.
const (
	ChangeKindInitial = "initial"
	ChangeKindChange  = "change"
)

// ChangeTextPrefix prefixes the display text indexed in ch_oldvalue and ch_newvalue.
const ChangeTextPrefix = "ch-"

// CustomField returns the index field of the custom field id.
func CustomField(id string) string {
	return CustomFieldPrefix + id
}
