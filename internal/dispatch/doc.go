// Package dispatch recovers delivery stops from dispatch-report CSV exports.
//
// A dispatch report is a quasi-fixed-column CSV file:
//
//	line 1    free text carrying the report date, e.g. "Dispatch Report - 04/15/2025"
//	lines 2-3 reserved (metadata or column headers)
//	line 4+   one delivery per row
//
// The parser never fails on a bad row. Each row either becomes a
// [ParsedDelivery] or an entry in one of the result's issue lists:
//
//   - Errors: the row was rejected (missing address, too few columns, ...)
//   - Warnings: a value was repaired and the repaired value was used
//   - Duplicates: the order id was already imported or appeared earlier
//
// Only a file with fewer than four lines short-circuits, and even then
// [Parser.Parse] returns a result carrying a single row-0 error.
//
// # Column layout
//
// Fields are located by a [ColumnResolver]. [FixedColumnResolver] uses
// [DefaultColumnMap]; [HeaderDetectingResolver] reads column headers from
// the reserved lines and keeps the fixed position for anything it cannot
// find. When content sniffing is enabled, an empty address or time cell is
// recovered from another column whose content has the right shape.
//
// # Normalization
//
// Times become zero-padded 24-hour HH:MM ([ConvertTimeFormat]). Phone
// numbers with ten digits become (NNN) NNN-NNNN ([CleanPhone]). Addresses
// get Canadian postal codes and province codes normalized ([CleanAddress]),
// and address text found in the phone column, or a phone number trailing
// the address, is moved to the right field.
package dispatch
