package warnings

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/warnings/toolerr"
)

type mockCloser struct {
	closeErr   error
	closeCalls int
}

func (m *mockCloser) Close() error {
	m.closeCalls++
	return m.closeErr
}

func TestCloseWithLog(t *testing.T) {
	tests := []struct {
		name    string
		closer  *mockCloser
		wantLog []string
	}{
		{name: "successful close", closer: &mockCloser{}},
		{
			name:    "close error",
			closer:  &mockCloser{closeErr: errors.New("close failed: resource busy")},
			wantLog: []string{"failed to close resource", "report file", "resource busy", "level=WARN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			CloseWithLog(tt.closer, logger, "report file")

			assert.Equal(t, 1, tt.closer.closeCalls)
			if len(tt.wantLog) == 0 {
				assert.Empty(t, logBuf.String())
			}
			for _, want := range tt.wantLog {
				assert.Contains(t, logBuf.String(), want)
			}
		})
	}
}

func TestCloseWithLog_NilArguments(t *testing.T) {
	var logBuf bytes.Buffer
	CloseWithLog(nil, slog.New(slog.NewTextHandler(&logBuf, nil)), "nothing")
	assert.Empty(t, logBuf.String())

	closer := &mockCloser{closeErr: errors.New("test error")}
	require.NotPanics(t, func() {
		CloseWithLog(closer, nil, "report file")
	})
	assert.Equal(t, 1, closer.closeCalls)
}

func TestSentinels(t *testing.T) {
	assert.ErrorIs(t, toolerr.NewNotFoundError("pmd"), ErrNotFound)
	assert.ErrorIs(t, toolerr.NewParseError("findbugs", "r.xml", errors.New("eof")), ErrParse)
	assert.ErrorIs(t, toolerr.NewValidationError("build", "path"), ErrValidation)
	assert.NotErrorIs(t, toolerr.NewNotFoundError("pmd"), ErrParse)
}
