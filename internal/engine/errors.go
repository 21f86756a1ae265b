package engine

import "errors"

var (
	// ErrTableNotAllowed reports a table outside the fixed allow-list,
	// regardless of whether it exists in the schema.
	ErrTableNotAllowed = errors.New("table not allowed")

	// ErrMissingColumns reports an INSERT or UPDATE with an empty payload.
	ErrMissingColumns = errors.New("operation requires at least one column value")

	// ErrMissingFilters reports an UPDATE or DELETE whose compiled predicate
	// is empty. Unfiltered mutations are refused unconditionally.
	ErrMissingFilters = errors.New("operation requires at least one filter")

	// ErrUnknownPayloadColumn reports a payload column absent from metadata.
	ErrUnknownPayloadColumn = errors.New("unknown payload column")

	// ErrMismatchedPayload reports a bulk row whose column-name and
	// column-value arrays differ in length.
	ErrMismatchedPayload = errors.New("column names and values have different lengths")

	// ErrEmptyBulkPayload reports a bulk request with zero rows.
	ErrEmptyBulkPayload = errors.New("bulk request contains no rows")

	// ErrUnsupportedOperation reports an operation this execution path does
	// not handle; SELECT is served by the separate read path.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrStatementExecutionFailed wraps driver-level failures of the
	// synthesized statement.
	ErrStatementExecutionFailed = errors.New("statement execution failed")
)
