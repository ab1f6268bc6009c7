// Package verify checks downloaded files against their manifest-declared
// size and sha256 digest. Files are streamed through the hash, never held
// in memory, since model artifacts can run to hundreds of megabytes.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/modelfetch/modelfetch/internal/domain"
)

// Result carries the measured size and digest of a verified file
type Result struct {
	Size   int64
	Sha256 string
}

// File streams the file at path and checks it against the expected size and
// hex digest. Size is compared first so a truncated download is reported as
// a SizeMismatchError rather than a checksum failure.
func File(path string, expectedSize int64, expectedSha256 string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for verification: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file for verification: %w", err)
	}

	actual := hex.EncodeToString(h.Sum(nil))
	result := &Result{Size: size, Sha256: actual}

	if size != expectedSize {
		return result, &domain.SizeMismatchError{
			Path:     path,
			Expected: expectedSize,
			Actual:   size,
		}
	}

	if !strings.EqualFold(actual, expectedSha256) {
		return result, &domain.ChecksumMismatchError{
			Path:     path,
			Expected: strings.ToLower(expectedSha256),
			Actual:   actual,
		}
	}

	return result, nil
}
