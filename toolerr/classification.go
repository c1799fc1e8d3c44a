package toolerr

// Scope describes how far an error propagates. Record-scope errors are
// recovered locally by the adapter; every other scope reaches the caller
// unchanged so the host can report which tool or file failed.
type Scope string

const (
	// ScopeRecord is fatal to one record only; parsing continues.
	ScopeRecord Scope = "record"

	// ScopeFile is fatal to a whole parse invocation.
	ScopeFile Scope = "file"

	// ScopeLookup is fatal to a single registry lookup.
	ScopeLookup Scope = "lookup"

	// ScopeCall is fatal to the call that produced it (builder misuse, bad configuration).
	ScopeCall Scope = "call"
)

// ScopeForCode returns the default scope for a given error code.
func ScopeForCode(code string) Scope {
	switch code {
	case ErrCodeMalformedRecord:
		return ScopeRecord
	case ErrCodeParse:
		return ScopeFile
	case ErrCodeNotFound:
		return ScopeLookup
	default:
		return ScopeCall
	}
}

// Recoverable reports whether the error should be swallowed with a
// skip-and-continue policy.
func (s Scope) Recoverable() bool {
	return s == ScopeRecord
}
