package server

import (
	"github.com/SimonWaldherr/dataapi/internal/value"
)

// ExecuteStatementInput runs one statement with at most one parameter set.
// ResourceArn, SecretArn, IncludeResultMetadata, ContinueAfterTimeout and
// FormatRecordsAs are accepted for compatibility with existing callers and
// otherwise ignored.
type ExecuteStatementInput struct {
	SQL           string                 `json:"sql"`
	Database      string                 `json:"database,omitempty"`
	Schema        string                 `json:"schema,omitempty"`
	Parameters    []value.NamedParameter `json:"parameters,omitempty"`
	TransactionID string                 `json:"transactionId,omitempty"`

	ResourceArn           string `json:"resourceArn,omitempty"`
	SecretArn             string `json:"secretArn,omitempty"`
	IncludeResultMetadata bool   `json:"includeResultMetadata,omitempty"`
	ContinueAfterTimeout  bool   `json:"continueAfterTimeout,omitempty"`
	FormatRecordsAs       string `json:"formatRecordsAs,omitempty"`
}

// ExecuteStatementOutput carries either the records of a read or the number
// of affected rows of a write. Records is present, possibly empty, for reads
// only. GeneratedFields is never populated.
type ExecuteStatementOutput struct {
	Records                []value.Record `json:"records,omitzero"`
	NumberOfRecordsUpdated int64          `json:"numberOfRecordsUpdated"`
	GeneratedFields        value.Record   `json:"generatedFields,omitempty"`
}

// BatchExecuteStatementInput runs one statement once per parameter set, all
// in a single transaction.
type BatchExecuteStatementInput struct {
	SQL           string                   `json:"sql"`
	Database      string                   `json:"database,omitempty"`
	Schema        string                   `json:"schema,omitempty"`
	ParameterSets [][]value.NamedParameter `json:"parameterSets,omitempty"`
	TransactionID string                   `json:"transactionId,omitempty"`

	ResourceArn string `json:"resourceArn,omitempty"`
	SecretArn   string `json:"secretArn,omitempty"`
}

// BatchExecuteStatementOutput has one UpdateResult per parameter set.
type BatchExecuteStatementOutput struct {
	UpdateResults []UpdateResult `json:"updateResults,omitempty"`
}

// UpdateResult is the result of one parameter set of a batch.
type UpdateResult struct {
	GeneratedFields value.Record `json:"generatedFields,omitempty"`
}

// ErrorResponse is the body of every failed HTTP request.
type ErrorResponse struct {
	Message string `json:"message"`
}
