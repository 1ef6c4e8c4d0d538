// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package database

import (
	"errors"
	"fmt"
	"io"

	"github.com/datagate/datagate/internal/logging"
)

// ErrTableNotAllowed is returned when a requested table is not on the
// configured allow-list.
var ErrTableNotAllowed = errors.New("table not allowed")

// QueryError wraps every failure raised while executing a pipeline query.
// Callers match it with errors.As to distinguish store failures from
// validation or transport errors.
type QueryError struct {
	Table     string
	Operation string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s on table %q failed: %v", e.Operation, e.Table, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func newQueryError(table, operation string, err error) *QueryError {
	return &QueryError{Table: table, Operation: operation, Err: err}
}

// closeWithLog closes a resource and logs any error.
// Use this for cleanup operations where errors should be acknowledged but not fail the operation.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this for cleanup in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
