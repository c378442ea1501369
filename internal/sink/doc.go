// Package sink persists records to a SQL database as each file is analyzed,
// so a run that dies halfway still leaves its results behind.
//
// Supported backends are sqlite (modernc.org/sqlite, no cgo), mysql and
// postgres (pgx stdlib). Writes are best effort from the caller's point of
// view: the pipeline logs sink errors and carries on.
package sink
