// Package core provides the business logic for CSV standardization.
//
// A user defines a [Template] of named, typed fields. Third parties upload
// arbitrary CSV files, and this package turns each file into rows keyed by
// the template's field names. It has no UI or storage dependencies; web
// handlers, the CLI and tests all drive it the same way.
//
// # Pipeline
//
// Each stage is a pure function over the data model:
//
//  1. [Parse] reads CSV text into headers and rows (BOM stripped, ragged
//     rows allowed, blank lines skipped). [DecodeCharset] converts legacy
//     encodings first.
//  2. [Suggest] proposes a [Mappings] set by fuzzy-matching column names
//     against field names with [Score].
//  3. [Validate] checks every mapped cell with [IsValid] and collects all
//     [ValidationError] values, after [CheckRequiredMapped] confirms every
//     required field has a column.
//  4. [Transform] re-keys rows by field name into [CanonicalRow] values.
//  5. [Serialize] writes canonical rows back out as CSV; [Project] flattens
//     them for the sheet and Parquet writers.
//
// # Sessions
//
// [Service] wraps the pipeline in per-upload sessions for interactive use:
//
//	svc := core.NewService(store, core.WithSheetSink(sink))
//	view, err := svc.StartSession(ctx, "customers", "export.csv", file, "")
//	view, err = svc.UpdateMapping(view.ID, "f-email", "E-Mail Address")
//	res, err := svc.Standardize(ctx, view.ID)
//	err = svc.ExportCSV(view.ID, w)
//
// Auto-mapping runs once when the session starts. Later mapping edits never
// re-run it. Idle sessions are dropped by [Service.StartSweeper].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - MAP001-MAP003: Mapping errors (unmapped required fields, unknown columns)
//   - VAL001-VAL002: Validation errors
//   - TPL001-TPL003: Template errors
//   - UPL002-UPL005: Upload errors (busy, expired, cancelled, timeout)
//   - SHEET001-SHEET002: Google Sheets errors
package core
