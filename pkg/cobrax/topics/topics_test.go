package topics

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"formula.md":           {Data: []byte("# Formula\n\nA recipe.\n")},
		"hooks.txt":            {Data: []byte("four hooks\n")},
		"flags/option-head.md": {Data: []byte("# --head\n")},
		"notes.rst":            {Data: []byte("ignored")},
	}
}

func TestLoad(t *testing.T) {
	m, err := Load(testFS(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"formula", "hooks", "option-head"}, m.Names())

	topic, ok := m.Get("formula")
	require.True(t, ok)
	assert.Equal(t, "# Formula\n\nA recipe.\n", topic.Content)

	topic, ok = m.Get("--head")
	require.True(t, ok)
	assert.Equal(t, "option-head", topic.Name)

	_, ok = m.Get("notes")
	assert.False(t, ok)
}

func TestLoad_Extensions(t *testing.T) {
	m, err := Load(testFS(), Options{Extensions: []string{".txt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"hooks"}, m.Names())
}

func TestGlamourRenderer_OnlyMarkdown(t *testing.T) {
	r := NewGlamourRenderer()
	assert.Equal(t, "plain text", r.Render("plain text", ".txt"))
	assert.Contains(t, r.Render("# Title\n\nbody text\n", ".md"), "body text")
}

func newRoot(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	root := &cobra.Command{Use: "app"}
	root.AddCommand(&cobra.Command{Use: "install", Short: "Install things", Run: func(*cobra.Command, []string) {}})

	m, err := Load(testFS(), Options{})
	require.NoError(t, err)
	m.Install(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	return root, &out
}

func TestHelpCommand(t *testing.T) {
	t.Run("topic", func(t *testing.T) {
		root, out := newRoot(t)
		root.SetArgs([]string{"help", "hooks"})
		require.NoError(t, root.Execute())
		assert.Equal(t, "four hooks\n", out.String())
	})

	t.Run("list", func(t *testing.T) {
		root, out := newRoot(t)
		root.SetArgs([]string{"help", "topics"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "General topics:\n  formula\n  hooks\n")
		assert.Contains(t, out.String(), "Option topics:\n  --head\n")
		assert.Contains(t, out.String(), "'app help <topic>'")
	})

	t.Run("command", func(t *testing.T) {
		root, out := newRoot(t)
		root.SetArgs([]string{"help", "install"})
		require.NoError(t, root.Execute())
		assert.Contains(t, out.String(), "Install things")
	})
}
