// Package issue provides the normalized issue model shared by every report
// adapter.
//
// # Core Types
//
// Issue is one static-analysis finding. It is immutable: adapters assemble it
// with a Builder, and afterwards its fields are only readable through
// accessors. Every issue carries a Fingerprint, a sha256 over type, path,
// line range and message, so the same defect keeps its identity across builds.
//
// Collection is the ordered result of one parse. Order is parse order, which
// makes repeated parses of the same report directly diffable.
//
// # Priorities
//
// Priority is one of error, high, normal or low, independent of the scale of
// the originating tool. The priority package maps tool signals onto it.
//
// # Builder reuse
//
// Build resets the builder after sealing an issue, so one builder can stamp
// every record of a report:
//
//	b := issue.NewBuilder()
//	for _, r := range records {
//	    i, err := b.SetPath(r.File).SetLine(r.Line).SetType(r.Rule).SetMessage(r.Text).Build()
//	    if err != nil {
//	        b.Reset()
//	        continue
//	    }
//	    coll.Add(i)
//	}
//
// # Export and Filtering
//
// Collections export to JSON, SARIF 2.1.0 and CSV. Filter selects issues by
// priority, category, type, path prefix or a CEL expression.
package issue
