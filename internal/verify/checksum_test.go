package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfetch/modelfetch/internal/domain"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func digestOf(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func TestFile_Valid(t *testing.T) {
	content := []byte("model weights payload")
	path := writeFile(t, content)

	result, err := File(path, int64(len(content)), digestOf(content))

	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), result.Size)
	assert.Equal(t, digestOf(content), result.Sha256)
}

func TestFile_UppercaseDigestAccepted(t *testing.T) {
	content := []byte("payload")
	path := writeFile(t, content)

	_, err := File(path, int64(len(content)), strings.ToUpper(digestOf(content)))

	assert.NoError(t, err)
}

func TestFile_SizeMismatch(t *testing.T) {
	content := []byte("short")
	path := writeFile(t, content)

	_, err := File(path, 999, digestOf(content))

	var sizeErr *domain.SizeMismatchError
	require.True(t, errors.As(err, &sizeErr))
	assert.Equal(t, int64(999), sizeErr.Expected)
	assert.Equal(t, int64(len(content)), sizeErr.Actual)
	assert.True(t, domain.IsIntegrityError(err))
}

func TestFile_ChecksumMismatch(t *testing.T) {
	content := []byte("tampered content")
	path := writeFile(t, content)
	wrong := digestOf([]byte("original content"))

	_, err := File(path, int64(len(content)), wrong)

	var sumErr *domain.ChecksumMismatchError
	require.True(t, errors.As(err, &sumErr))
	assert.Equal(t, wrong, sumErr.Expected)
	assert.Equal(t, digestOf(content), sumErr.Actual)
	assert.True(t, domain.IsIntegrityError(err))
}

func TestFile_SizeCheckedBeforeChecksum(t *testing.T) {
	// Wrong size and wrong digest: the size mismatch must win, so a
	// truncated download is not misreported as corruption.
	content := []byte("partial")
	path := writeFile(t, content)

	_, err := File(path, 100, digestOf([]byte("full content")))

	var sizeErr *domain.SizeMismatchError
	assert.True(t, errors.As(err, &sizeErr))
}

func TestFile_EmptyFile(t *testing.T) {
	path := writeFile(t, nil)

	result, err := File(path, 0, digestOf(nil))

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Size)
}

func TestFile_MissingFile(t *testing.T) {
	_, err := File("/nonexistent/file.bin", 0, digestOf(nil))
	assert.Error(t, err)
	assert.False(t, domain.IsIntegrityError(err))
}
