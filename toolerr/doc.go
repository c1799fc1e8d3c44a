// Package toolerr provides structured error types for report ingestion.
//
// # Error Codes
//
//   - ErrCodeValidation: an issue builder was sealed without path or type
//   - ErrCodeParse: a report file cannot be opened, decoded or recognized
//   - ErrCodeMalformedRecord: one record inside a valid report is unusable
//   - ErrCodeNotFound: a tool ID is not registered
//   - ErrCodeConfig: configuration or priority tables are invalid
//   - ErrCodeCache: the parse cache failed
//
// # Propagation
//
// Malformed records are recovered inside the adapter (ScopeRecord) and only
// counted and logged. Parse, lookup and validation errors propagate to the
// caller unchanged; a report that cannot be parsed never turns into an empty
// result.
//
// Check for specific errors:
//
//	if errors.Is(err, toolerr.ErrParse) {
//	    // skip this tool, keep the run going
//	}
//
//	var terr *toolerr.Error
//	if errors.As(err, &terr) {
//	    fmt.Printf("tool: %s, path: %s, code: %s\n", terr.Tool, terr.Path, terr.Code)
//	}
package toolerr
