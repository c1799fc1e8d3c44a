package warnings

import (
	"io"
	"log/slog"

	"github.com/zero-day-ai/warnings/toolerr"
)

// Sentinel errors re-exported for callers that only import the engine.
// Match them with errors.Is.
var (
	// ErrNotFound indicates the requested tool is not registered.
	ErrNotFound = toolerr.ErrNotFound

	// ErrParse indicates a report could not be read as a report of its tool.
	ErrParse = toolerr.ErrParse

	// ErrValidation indicates an incomplete request or issue.
	ErrValidation = toolerr.ErrValidation

	// ErrConfig indicates invalid parser settings or configuration.
	ErrConfig = toolerr.ErrConfig
)

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements to ensure
// cleanup errors are not silently ignored.
//
// The name parameter should describe the resource being closed (e.g., "report",
// "redis client", "tracer provider"). If logger is nil, slog.Default() is used.
//
//	defer warnings.CloseWithLog(client, logger, "queue client")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
