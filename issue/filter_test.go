package issue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture(t *testing.T) *Collection {
	t.Helper()
	b := NewBuilder()
	var out []Issue
	for _, tc := range []struct {
		path, typ, cat string
		line           int
		p              Priority
	}{
		{"src/main/A.java", "NP_NULL", "CORRECTNESS", 10, PriorityHigh},
		{"src/main/B.java", "DM_DEFAULT_ENCODING", "I18N", 3, PriorityLow},
		{"src/test/C.java", "NP_NULL", "CORRECTNESS", 120, PriorityNormal},
		{"src/main/D.java", "EI_EXPOSE_REP", "MALICIOUS_CODE", 7, PriorityError},
	} {
		i, err := b.SetPath(tc.path).SetType(tc.typ).SetCategory(tc.cat).
			SetLine(tc.line).SetPriority(tc.p).Build()
		require.NoError(t, err)
		out = append(out, i)
	}
	return NewCollection(out...)
}

func paths(c *Collection) []string {
	var out []string
	for _, i := range c.All() {
		out = append(out, i.Path())
	}
	return out
}

func TestFilter_Compile(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty matches all", Filter{}, []string{"src/main/A.java", "src/main/B.java", "src/test/C.java", "src/main/D.java"}},
		{"priorities", Filter{Priorities: []Priority{PriorityLow, PriorityError}}, []string{"src/main/B.java", "src/main/D.java"}},
		{"min priority", Filter{MinPriority: PriorityHigh}, []string{"src/main/A.java", "src/main/D.java"}},
		{"categories", Filter{Categories: []string{"I18N"}}, []string{"src/main/B.java"}},
		{"types", Filter{Types: []string{"NP_NULL"}}, []string{"src/main/A.java", "src/test/C.java"}},
		{"path prefix", Filter{PathPrefix: "src/test/"}, []string{"src/test/C.java"}},
		{"expression", Filter{Expression: `type_key == "NP_NULL" && line > 100`}, []string{"src/test/C.java"}},
		{"expression with weight", Filter{Expression: `weight >= 3 && path.startsWith("src/main")`}, []string{"src/main/A.java", "src/main/D.java"}},
		{"fields and expression", Filter{Categories: []string{"CORRECTNESS"}, Expression: `priority == "high"`}, []string{"src/main/A.java"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep, err := tt.filter.Compile()
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths(filterFixture(t).Filter(keep)))
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"bad priority", Filter{Priorities: []Priority{"severe"}}},
		{"bad min priority", Filter{MinPriority: "severe"}},
		{"syntax error", Filter{Expression: `type_key ==`}},
		{"unknown variable", Filter{Expression: `rule == "x"`}},
		{"non bool", Filter{Expression: `line + 1`}},
		{"reserved package", Filter{Expression: `package == "a.b"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.filter.Validate())
			_, err := tt.filter.Compile()
			assert.Error(t, err)
		})
	}
}

func TestExpression_String(t *testing.T) {
	e, err := CompileExpression(`origin == "findbugs"`)
	require.NoError(t, err)
	assert.Equal(t, `origin == "findbugs"`, e.String())
}

func TestExpression_Matches(t *testing.T) {
	i, err := NewBuilder().
		SetPath("src/main/java/a/B.java").
		SetLineRange(12, 14).
		SetType("NP_NULL_ON_SOME_PATH").
		SetCategory("CORRECTNESS").
		SetPackageName("com.example").
		SetOrigin("spotbugs").
		SetMessage("Possible null pointer dereference").
		SetPriority(PriorityHigh).
		Build()
	require.NoError(t, err)

	tests := []struct {
		expr string
		want bool
	}{
		{`path.endsWith("B.java")`, true},
		{`line == 12 && end_line == 14`, true},
		{`type_key.startsWith("NP_")`, true},
		{`category == "CORRECTNESS"`, true},
		{`package_name == "com.example"`, true},
		{`origin == "findbugs"`, false},
		{`message.contains("null pointer")`, true},
		{`priority == "high" && weight == 3`, true},
		{`priority == "low"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := CompileExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Matches(i))
		})
	}
}
