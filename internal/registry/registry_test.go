package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestTemplate = `description: test model
task_type: detection
framework: dldt
license: https://example.org/LICENSE
files:
  - name: model.bin
    size: 16
    sha256: 1f1b73496ca4480680e288880a53d7b3cb577396791e2ec153483b123bbb979b
    source: https://example.org/model.bin
`

func makeZoo(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifestTemplate), 0644))
	}
	return root
}

func TestRegistry_List(t *testing.T) {
	root := makeZoo(t, "resnet-50", "mobilenet-v2", "face-detection-adas")

	// Directories without a manifest are not zoo entries.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-model"), 0755))

	entries, err := New(root).List()

	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "face-detection-adas", entries[0].Name)
	assert.Equal(t, "mobilenet-v2", entries[1].Name)
	assert.Equal(t, "resnet-50", entries[2].Name)
}

func TestRegistry_List_MissingRoot(t *testing.T) {
	_, err := New("/nonexistent/zoo").List()
	assert.ErrorIs(t, err, ErrZooNotFound)
}

func TestRegistry_Select_Glob(t *testing.T) {
	root := makeZoo(t, "resnet-50", "resnet-101", "mobilenet-v2")

	entries, err := New(root).Select("resnet-*")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "resnet-101", entries[0].Name)
	assert.Equal(t, "resnet-50", entries[1].Name)
}

func TestRegistry_Select_EmptyPatternSelectsAll(t *testing.T) {
	root := makeZoo(t, "a", "b")

	entries, err := New(root).Select("")

	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRegistry_Select_NoMatch(t *testing.T) {
	root := makeZoo(t, "resnet-50")

	_, err := New(root).Select("vgg-*")

	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestRegistry_Select_BadPattern(t *testing.T) {
	root := makeZoo(t, "resnet-50")

	_, err := New(root).Select("[unclosed")

	assert.ErrorIs(t, err, ErrBadPattern)
}

func TestRegistry_LoadByName(t *testing.T) {
	root := makeZoo(t, "resnet-50")

	model, err := New(root).LoadByName("resnet-50")

	require.NoError(t, err)
	assert.Equal(t, "resnet-50", model.Name)
	assert.Len(t, model.Files, 1)
}

func TestRegistry_LoadByName_Unknown(t *testing.T) {
	root := makeZoo(t, "resnet-50")

	_, err := New(root).LoadByName("unknown")

	assert.ErrorIs(t, err, ErrNoMatch)
}
