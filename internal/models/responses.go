// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

// Package models defines the wire types shared by the HTTP handlers.
package models

// Record is a single row returned by a query, keyed by column name.
type Record map[string]interface{}

// QueryResponse is the envelope returned by the data endpoint.
// Data carries the rows on success and is null on failure; Message and
// Code mirror the static status catalog below.
//
// Example successful response:
//
//	{
//	  "data": [{"id": 1, "name": "alpha"}],
//	  "message": "success",
//	  "code": 200
//	}
//
// Example error response:
//
//	{
//	  "data": null,
//	  "message": "error",
//	  "code": 400
//	}
type QueryResponse struct {
	Data    []Record `json:"data"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
}

// Status is one entry of the static status catalog.
type Status struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Statuses is the static lookup for envelope statuses. The data endpoint
// only ever answers with one of these two entries.
var Statuses = map[string]Status{
	"SUCCESS": {Message: "success", Code: 200},
	"ERROR":   {Message: "error", Code: 400},
}

// NewQueryResponse wraps rows in a SUCCESS envelope.
// A nil slice is normalized to an empty one so the JSON data field is
// always an array on success.
func NewQueryResponse(rows []Record) QueryResponse {
	if rows == nil {
		rows = []Record{}
	}
	s := Statuses["SUCCESS"]
	return QueryResponse{Data: rows, Message: s.Message, Code: s.Code}
}

// NewQueryError returns an ERROR envelope with a null data field.
func NewQueryError() QueryResponse {
	s := Statuses["ERROR"]
	return QueryResponse{Data: nil, Message: s.Message, Code: s.Code}
}

// IdentityResponse is the payload of the whoami endpoint.
type IdentityResponse struct {
	Username string `json:"username"`
}

// APIError represents a structured error body for non-envelope failures
// such as validation errors.
//
// Fields:
//   - Code: machine-readable error code (e.g. "VALIDATION_ERROR")
//   - Message: human-readable error message
//   - Details: additional context (field names, constraints)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}
