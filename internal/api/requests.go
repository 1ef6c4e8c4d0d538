// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package api

// QueryRequest is the body of POST /get_data. All fields are optional;
// omitted fields fall back to configured defaults.
//
// start_index, end_index, start_date and end_date are accepted and
// validated for forward compatibility with range queries, but do not yet
// narrow the result set.
type QueryRequest struct {
	SourceTable string `json:"source_table" validate:"omitempty,max=128"`
	StartIndex  *int   `json:"start_index" validate:"omitempty,min=0"`
	EndIndex    *int   `json:"end_index" validate:"omitempty,min=0"`
	StartDate   string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Limit       *int   `json:"limit" validate:"omitempty,min=1,max=1000"`
}

// table resolves the target table, falling back to the default.
func (q *QueryRequest) table(defaultTable string) string {
	if q.SourceTable != "" {
		return q.SourceTable
	}
	return defaultTable
}

// limit resolves the row bound, falling back to the default.
func (q *QueryRequest) limit(defaultLimit int) int {
	if q.Limit != nil {
		return *q.Limit
	}
	return defaultLimit
}
