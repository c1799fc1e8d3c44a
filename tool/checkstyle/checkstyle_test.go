package checkstyle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/warnings/issue"
	"github.com/zero-day-ai/warnings/priority"
	"github.com/zero-day-ai/warnings/tool"
	"github.com/zero-day-ai/warnings/toolerr"
)

func TestParse(t *testing.T) {
	p, err := New(nil, nil)
	require.NoError(t, err)

	res, err := p.Parse(context.Background(), tool.Source{Path: filepath.Join("testdata", "checkstyle.xml")}, issue.NewBuilder)
	require.NoError(t, err)
	require.Equal(t, 3, res.Issues.Len())
	assert.Equal(t, tool.Stats{Records: 3, Issues: 3}, res.Stats)

	magic := res.Issues.Get(0)
	assert.Equal(t, "src/main/java/com/example/Greeter.java", magic.Path())
	assert.Equal(t, 12, magic.LineStart())
	assert.Equal(t, issue.ColumnRange{Start: 5, End: 5}, magic.Columns())
	assert.Equal(t, "MagicNumber", magic.Type())
	assert.Equal(t, "coding", magic.Category())
	assert.Equal(t, "'42' is a magic number.", magic.Message())
	assert.Equal(t, issue.PriorityNormal, magic.Priority())
	assert.Equal(t, ID, magic.Origin())

	length := res.Issues.Get(1)
	assert.Equal(t, "LineLength", length.Type())
	assert.Equal(t, issue.PriorityError, length.Priority())
	assert.True(t, length.Columns().IsZero())

	javadoc := res.Issues.Get(2)
	assert.Equal(t, "src/main/java/com/example/Order.java", javadoc.Path())
	assert.Equal(t, issue.PriorityLow, javadoc.Priority())
	assert.Equal(t, "javadoc", javadoc.Category())
}

func TestParse_SkipsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkstyle.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<checkstyle>
  <file name="A.java">
    <error line="1" severity="error" message="a" source="x.ACheck"/>
    <error line="one" severity="error" message="b" source="x.BCheck"/>
    <error line="3" column="-" severity="error" message="c" source="x.CCheck"/>
  </file>
  <file name="">
    <error line="4" severity="error" message="d" source="x.DCheck"/>
  </file>
  <file name="E.java">
    <error line="5" severity="fatal" message="e"/>
    <error line="6" severity="warning" message="f" source="x.FCheck"/>
  </file>
</checkstyle>`), 0o644))

	p, err := New(nil, nil)
	require.NoError(t, err)
	res, err := p.Parse(context.Background(), tool.Source{Path: path}, issue.NewBuilder)
	require.NoError(t, err)

	require.Equal(t, 2, res.Issues.Len())
	assert.Equal(t, "A", res.Issues.Get(0).Type())
	assert.Equal(t, "F", res.Issues.Get(1).Type())
	assert.Equal(t, tool.Stats{Records: 6, Issues: 2, Malformed: 4}, res.Stats)
	for _, skipped := range res.Skipped {
		assert.True(t, toolerr.IsMalformedRecord(skipped))
	}
}

func TestParse_Errors(t *testing.T) {
	p, err := New(nil, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<BugCollection/>`), 0o644))

	_, err = p.Parse(context.Background(), tool.Source{Path: path}, issue.NewBuilder)
	assert.True(t, toolerr.IsParse(err))
}

func TestNewParser_PriorityOverride(t *testing.T) {
	parser, err := NewParser(tool.Settings{
		UseRankAsPriority: true,
		Priorities:        &priority.Table{Confidence: map[string]issue.Priority{"warning": issue.PriorityHigh}},
	})
	require.NoError(t, err)

	res, err := parser.Parse(context.Background(), tool.Source{Path: filepath.Join("testdata", "checkstyle.xml")}, issue.NewBuilder)
	require.NoError(t, err)
	assert.Equal(t, issue.PriorityHigh, res.Issues.Get(0).Priority())
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		source       string
		wantCategory string
		wantType     string
	}{
		{"com.puppycrawl.tools.checkstyle.checks.coding.MagicNumberCheck", "coding", "MagicNumber"},
		{"com.puppycrawl.tools.checkstyle.checks.NewlineAtEndOfFileCheck", "", "NewlineAtEndOfFile"},
		{"TodoComment", "", "TodoComment"},
		{"Check", "", "Check"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			category, typ := splitSource(tt.source)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantType, typ)
		})
	}
}
