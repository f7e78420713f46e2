package roster_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apiarycd/glroster/internal/roster"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	src := "login,number\nstudent1,1\nstudent2,2\n"

	r, err := roster.Load(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"login", "number"}, r.Columns())
	assert.Equal(t, 2, r.Len())

	var got []map[string]string
	for row := range r.Rows() {
		got = append(got, row.Map())
	}
	want := []map[string]string{
		{"login": "student1", "number": "1"},
		{"login": "student2", "number": "2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRow_Get(t *testing.T) {
	r, err := roster.Load(strings.NewReader("login,group\nalice,a1\n"))
	require.NoError(t, err)

	var row roster.Row
	for row = range r.Rows() {
		break
	}

	v, ok := row.Get("group")
	assert.True(t, ok)
	assert.Equal(t, "a1", v)
	assert.Equal(t, 1, row.Number())

	_, ok = row.Get("email")
	assert.False(t, ok, "absent column must not resolve")
}

func TestLoad_Options(t *testing.T) {
	src := "\ufefflogin;number\n\nalice;1\n"

	r, err := roster.Load(strings.NewReader(src), roster.WithDelimiter(';'))
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "number"}, r.Columns())
	assert.Equal(t, 1, r.Len())
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{name: "empty source", src: "", line: 0},
		{name: "ragged row", src: "login,number\nalice,1\nbob\n", line: 3},
		{name: "too many fields", src: "login\nalice,1\n", line: 2},
		{name: "duplicate header", src: "login,login\nalice,bob\n", line: 1},
		{name: "empty header cell", src: "login,\nalice,1\n", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := roster.Load(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, roster.ErrMalformedRoster))

			var mre *roster.MalformedRosterError
			require.ErrorAs(t, err, &mre)
			assert.Equal(t, tt.line, mre.Line)
		})
	}
}

func TestScanner_Lazy(t *testing.T) {
	s, err := roster.NewScanner(strings.NewReader("login\nalice\nbob\n"))
	require.NoError(t, err)

	first, err := s.Next()
	require.NoError(t, err)
	v, _ := first.Get("login")
	assert.Equal(t, "alice", v)

	second, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, second.Number())

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, []byte("login\nalice\n"), 0o600))

	r, err := roster.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	_, err = roster.LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
