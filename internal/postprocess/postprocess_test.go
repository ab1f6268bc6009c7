package postprocess

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfetch/modelfetch/internal/domain"
	"github.com/modelfetch/modelfetch/internal/manifest"
)

type entry struct {
	name    string
	content string
}

func writeTar(t *testing.T, w *tar.Writer, entries []entry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, w.WriteHeader(&tar.Header{
			Name:     e.name,
			Mode:     0644,
			Size:     int64(len(e.content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := w.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func makeGztar(t *testing.T, dir string, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	writeTar(t, tar.NewWriter(gzw), entries)
	require.NoError(t, gzw.Close())

	path := filepath.Join(dir, "weights.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func makeZsttar(t *testing.T, dir string, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	writeTar(t, tar.NewWriter(zw), entries)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "weights.tar.zst")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func makeZip(t *testing.T, dir string, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = f.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "weights.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestUnpack_Gztar(t *testing.T) {
	dir := t.TempDir()
	archive := makeGztar(t, dir, []entry{
		{"model.caffemodel", "weights"},
		{"snapshot/solver.prototxt", "solver"},
	})

	require.NoError(t, Unpack("gztar", archive, dir))

	got, err := os.ReadFile(filepath.Join(dir, "model.caffemodel"))
	require.NoError(t, err)
	assert.Equal(t, "weights", string(got))

	got, err = os.ReadFile(filepath.Join(dir, "snapshot", "solver.prototxt"))
	require.NoError(t, err)
	assert.Equal(t, "solver", string(got))
}

func TestUnpack_Zip(t *testing.T) {
	dir := t.TempDir()
	archive := makeZip(t, dir, []entry{{"nested/model.pb", "frozen graph"}})

	require.NoError(t, Unpack("zip", archive, dir))

	got, err := os.ReadFile(filepath.Join(dir, "nested", "model.pb"))
	require.NoError(t, err)
	assert.Equal(t, "frozen graph", string(got))
}

func TestUnpack_Zsttar(t *testing.T) {
	dir := t.TempDir()
	archive := makeZsttar(t, dir, []entry{{"model.onnx", "onnx bytes"}})

	require.NoError(t, Unpack("zsttar", archive, dir))

	got, err := os.ReadFile(filepath.Join(dir, "model.onnx"))
	require.NoError(t, err)
	assert.Equal(t, "onnx bytes", string(got))
}

func TestUnpack_PathTraversalSkipped(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "outside")
	dest := filepath.Join(dir, "dest")
	require.NoError(t, os.MkdirAll(dest, 0755))

	archive := makeGztar(t, dir, []entry{
		{"../outside/evil.txt", "escape attempt"},
		{"safe.txt", "fine"},
	})

	require.NoError(t, Unpack("gztar", archive, dest))

	_, err := os.Stat(filepath.Join(outside, "evil.txt"))
	assert.True(t, os.IsNotExist(err), "traversal entry must not be written")

	got, err := os.ReadFile(filepath.Join(dest, "safe.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fine", string(got))
}

func TestUnpack_UnsupportedFormat(t *testing.T) {
	err := Unpack("rar", "/tmp/whatever.rar", t.TempDir())

	var extractErr *domain.ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestUnpack_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "corrupt.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("not a gzip stream"), 0644))

	err := Unpack("gztar", archive, dir)

	var extractErr *domain.ExtractError
	assert.True(t, errors.As(err, &extractErr))
}

func TestProcessor_Apply_OrderAndDispatch(t *testing.T) {
	dir := t.TempDir()
	makeGztar(t, dir, []entry{{"deploy.prototxt", "input_dim: 64\ninput_dim: 64\n"}})

	model := &manifest.Model{
		Postprocessing: []manifest.PostStep{
			{Type: manifest.StepUnpackArchive, Format: "gztar", File: "weights.tar.gz"},
			{Type: manifest.StepRegexReplace, File: "deploy.prototxt", Pattern: `input_dim: \d+`, Replacement: "input_dim: 1", Count: 1},
		},
	}

	require.NoError(t, NewProcessor(nil).Apply(model, dir))

	got, err := os.ReadFile(filepath.Join(dir, "deploy.prototxt"))
	require.NoError(t, err)
	assert.Equal(t, "input_dim: 1\ninput_dim: 64\n", string(got))
}

func TestProcessor_Apply_RegexReplaceAllWhenCountZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.pbtxt")
	require.NoError(t, os.WriteFile(path, []byte("a a a"), 0644))

	model := &manifest.Model{
		Postprocessing: []manifest.PostStep{
			{Type: manifest.StepRegexReplace, File: "config.pbtxt", Pattern: "a", Replacement: "b"},
		},
	}

	require.NoError(t, NewProcessor(nil).Apply(model, dir))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b b b", string(got))
}

func TestProcessor_Apply_StepFileEscapesDest(t *testing.T) {
	model := &manifest.Model{
		Postprocessing: []manifest.PostStep{
			{Type: manifest.StepUnpackArchive, Format: "gztar", File: "../../etc/passwd"},
		},
	}

	err := NewProcessor(nil).Apply(model, t.TempDir())
	assert.Error(t, err)
}
