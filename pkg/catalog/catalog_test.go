package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
items:
  - id: "2.47"
    title: Patience
    tags: [short, evening]
  - id: "2.48"
    title: Courage
    body: Take heart.
    tags: [long]
  - id: " 2.14 "
    tags: [short, Morning]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	c, err := Load(writeFile(t, "catalog.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"2.47", "2.48", "2.14"}, IDs(c.Items(Filter{})))

	it, ok := c.Lookup("2.48")
	require.True(t, ok)
	assert.Equal(t, "Courage", it.Title)
	assert.Equal(t, "Take heart.", it.Body)

	_, ok = c.Lookup("9.99")
	assert.False(t, ok)
}

func TestLoad_JSON(t *testing.T) {
	c, err := Load(writeFile(t, "catalog.json", `{"items":[{"id":"a"},{"id":"b","tags":["x"]}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, IDs(c.Items(Filter{})))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"duplicate id", "items:\n  - id: a\n  - id: a\n"},
		{"duplicate after trim", "items:\n  - id: a\n  - id: ' a'\n"},
		{"empty id", "items:\n  - id: a\n  - title: nameless\n"},
		{"unknown field", "items:\n  - id: a\n    weight: 3\n"},
		{"not yaml", "items: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Items(Filter{}))
}

func TestItems_Filter(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"none", Filter{}, []string{"2.47", "2.48", "2.14"}},
		{"include", Filter{Tags: []string{"short"}}, []string{"2.47", "2.14"}},
		{"include any of", Filter{Tags: []string{"long", "evening"}}, []string{"2.47", "2.48"}},
		{"case-insensitive", Filter{Tags: []string{"morning"}}, []string{"2.14"}},
		{"exclude", Filter{Exclude: []string{"evening"}}, []string{"2.48", "2.14"}},
		{"exclude wins", Filter{Tags: []string{"short"}, Exclude: []string{"morning"}}, []string{"2.47"}},
		{"no match", Filter{Tags: []string{"weekend"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IDs(c.Items(tt.filter)))
		})
	}
}

func TestNew_CopiesTags(t *testing.T) {
	tags := []string{"a"}
	c, err := New([]Item{{ID: "x", Tags: tags}})
	require.NoError(t, err)
	tags[0] = "b"
	it, _ := c.Lookup("x")
	assert.Equal(t, []string{"a"}, it.Tags)
}
