// Package core provides the dispatch board business logic on top of the
// report parser in package dispatch.
//
// It is used by the HTTP server and can be driven from tests with any
// [Repository]; [Store] is the Postgres implementation.
//
// # Imports
//
// A report goes through [Service.PreviewImport] or [Service.CommitImport]:
//
//  1. An [ImportLimiter] slot is taken, so at most Import.MaxConcurrent
//     reports are processed at once.
//  2. [ReadReport] enforces the size limit, strips a BOM, replaces invalid
//     UTF-8 and flattens .xlsx workbooks to CSV.
//  3. The order ids already on the board are loaded and the report is parsed.
//  4. CommitImport inserts the accepted deliveries as stops and an import
//     history entry in one transaction. Commits run one at a time.
//
// Rows the parser rejects are reported in the result and never written.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Codes
// are grouped as DB (database), IMP (import slots and deadlines), DRV
// (drivers and stops), FILE (uploads) and RATE (throttling).
package core
