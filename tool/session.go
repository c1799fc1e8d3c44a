package tool

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/toolerr"
)

// Session tracks one Parse invocation. Adapters call Begin for every record,
// fill the returned Builder, and finish the record with Commit or Skip.
type Session struct {
	ctx     context.Context
	tool    string
	path    string
	builder *issue.Builder
	logger  *slog.Logger
	result  *Result
}

// NewSession starts a session for the report at src. A nil newBuilder uses
// issue.NewBuilder.
func NewSession(ctx context.Context, toolID string, src Source, newBuilder issue.BuilderFactory, logger *slog.Logger) *Session {
	if newBuilder == nil {
		newBuilder = issue.NewBuilder
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ctx:     ctx,
		tool:    toolID,
		path:    src.Path,
		builder: newBuilder(),
		logger:  logger.With("tool", toolID, "report", src.Path),
		result:  &Result{Issues: issue.NewCollection()},
	}
}

// Begin starts the next record and returns the reset Builder with the origin
// already set. It fails when the session context is done.
func (s *Session) Begin() (*issue.Builder, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	s.result.Stats.Records++
	return s.builder.Reset().SetOrigin(s.tool), nil
}

// Commit builds the current record. A record the Builder rejects is skipped.
func (s *Session) Commit() {
	iss, err := s.builder.Build()
	if err != nil {
		s.Skip(err)
		return
	}
	s.result.Issues.Add(iss)
	s.result.Stats.Issues++
}

// Skip drops the current record as malformed.
func (s *Session) Skip(cause error) {
	err := toolerr.NewMalformedRecordError(s.tool, s.path, s.result.Stats.Records, cause)
	s.result.Skipped = append(s.result.Skipped, err)
	s.result.Stats.Malformed++
	s.logger.Debug("skipping malformed record", "record", s.result.Stats.Records, "error", cause)
}

// Fail wraps a report level failure as a parse error.
func (s *Session) Fail(cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	return toolerr.NewParseError(s.tool, s.path, cause)
}

// Result returns the accumulated result.
func (s *Session) Result() *Result {
	if s.result.Stats.Malformed > 0 {
		s.logger.Info("report parsed with skipped records",
			"issues", s.result.Stats.Issues,
			"malformed", s.result.Stats.Malformed,
		)
	}
	return s.result
}
