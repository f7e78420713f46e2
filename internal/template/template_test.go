package template_test

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_RosterRows(t *testing.T) {
	r, err := roster.Load(strings.NewReader("login,number\nstudent1,1\nstudent2,2\n"))
	require.NoError(t, err)

	tmpl := template.MustParse("teaching/course/student-{number}-{login}")

	var got []string
	for row := range r.Rows() {
		path, expErr := tmpl.Expand(row, nil)
		require.NoError(t, expErr)
		got = append(got, path)
	}

	assert.Equal(t, []string{
		"teaching/course/student-1-student1",
		"teaching/course/student-2-student2",
	}, got)
}

func TestExpand(t *testing.T) {
	row := roster.NewRow(1, map[string]string{"login": "alice", "group": "g1"})
	commit := template.Struct(template.Fields{"id": "abc123"})

	tests := []struct {
		name    string
		source  string
		extra   template.Context
		want    string
		wantKey string
	}{
		{name: "no placeholders", source: "plain/path", want: "plain/path"},
		{name: "row fields", source: "{group}/{login}", want: "g1/alice"},
		{name: "structured extra", source: "{login},{commit.id}", extra: template.Context{"commit": commit}, want: "alice,abc123"},
		{name: "extra shadows row", source: "{login}", extra: template.Context{"login": template.String("bob")}, want: "bob"},
		{name: "missing column", source: "{missing}", wantKey: "missing"},
		{name: "missing synthetic", source: "{commit.id}", wantKey: "commit"},
		{name: "missing sub-field", source: "{commit.nope}", extra: template.Context{"commit": commit}, wantKey: "commit.nope"},
		{name: "attribute on row field", source: "{login.upper}", wantKey: "login.upper"},
		{name: "structured without field", source: "{commit}", extra: template.Context{"commit": commit}, wantKey: "commit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := template.Expand(tt.source, row, tt.extra)
			if tt.wantKey == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			require.ErrorIs(t, err, template.ErrUnresolvedPlaceholder)
			var upe *template.UnresolvedPlaceholderError
			require.ErrorAs(t, err, &upe)
			assert.Equal(t, tt.wantKey, upe.Key)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, source := range []string{
		"{login",
		"login}",
		"{{login}}",
		"{}",
		"{a.b.c}",
		"{first name}",
		"{login.}",
	} {
		t.Run(source, func(t *testing.T) {
			_, err := template.Parse(source)
			assert.True(t, errors.Is(err, template.ErrMalformedTemplate), "got %v", err)
		})
	}
}

func TestTemplate_Fields(t *testing.T) {
	tmpl := template.MustParse("{login}/{commit.id}/{login}-{number}")
	assert.Equal(t, []string{"login", "commit", "number"}, tmpl.Fields())
	assert.Equal(t, "{login}/{commit.id}/{login}-{number}", tmpl.String())
}

func buildSource(values map[string]string, literals []string) string {
	keys := slices.Sorted(maps.Keys(values))

	var b strings.Builder
	for i, lit := range literals {
		b.WriteString(lit)
		b.WriteString("{" + keys[i%len(keys)] + "}")
	}
	return b.String()
}

func TestExpand_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("expansion over known columns leaves no braces", prop.ForAll(
		func(values map[string]string, literals []string) bool {
			if len(values) == 0 {
				return true
			}
			out, err := template.Expand(buildSource(values, literals), roster.NewRow(1, values), nil)
			return err == nil && !strings.ContainsAny(out, "{}")
		},
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("expansion is deterministic", prop.ForAll(
		func(values map[string]string, literals []string) bool {
			if len(values) == 0 {
				return true
			}
			row := roster.NewRow(1, values)
			source := buildSource(values, literals)
			a, errA := template.Expand(source, row, nil)
			b, errB := template.Expand(source, row, nil)
			return errA == nil && errB == nil && a == b
		},
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
