package postprocess

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/modelfetch/modelfetch/internal/domain"
	"github.com/modelfetch/modelfetch/internal/utils"
)

// Unpack extracts the archive at archivePath into destDir using the declared
// format. Entries that would escape destDir are skipped.
func Unpack(format, archivePath, destDir string) error {
	switch format {
	case "zip":
		return unpackZip(archivePath, destDir)
	case "tar":
		return unpackTarReader(archivePath, destDir, func(r io.Reader) (io.Reader, func(), error) {
			return r, func() {}, nil
		})
	case "gztar":
		return unpackTarReader(archivePath, destDir, func(r io.Reader) (io.Reader, func(), error) {
			gzr, err := gzip.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return gzr, func() { gzr.Close() }, nil
		})
	case "zsttar":
		return unpackTarReader(archivePath, destDir, func(r io.Reader) (io.Reader, func(), error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, nil, err
			}
			return zr, zr.Close, nil
		})
	default:
		return domain.NewExtractError(archivePath, format, domain.ErrUnsupportedFormat)
	}
}

func unpackZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return domain.NewExtractError(archivePath, "zip", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		targetPath, err := utils.SafeJoin(destDir, f.Name)
		if err != nil {
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return domain.NewExtractError(archivePath, "zip", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
			return domain.NewExtractError(archivePath, "zip", err)
		}

		rc, err := f.Open()
		if err != nil {
			return domain.NewExtractError(archivePath, "zip", err)
		}
		if err := writeEntry(targetPath, rc, f.Mode()); err != nil {
			rc.Close()
			return domain.NewExtractError(archivePath, "zip", err)
		}
		rc.Close()
	}

	return nil
}

// decompressor wraps the raw archive stream for a given tar flavor
type decompressor func(io.Reader) (io.Reader, func(), error)

func unpackTarReader(archivePath, destDir string, wrap decompressor) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return domain.NewExtractError(archivePath, "tar", err)
	}
	defer f.Close()

	r, cleanup, err := wrap(f)
	if err != nil {
		return domain.NewExtractError(archivePath, "tar", err)
	}
	defer cleanup()

	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.NewExtractError(archivePath, "tar", fmt.Errorf("tar read failed: %w", err))
		}

		targetPath, err := utils.SafeJoin(destDir, header.Name)
		if err != nil {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return domain.NewExtractError(archivePath, "tar", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return domain.NewExtractError(archivePath, "tar", err)
			}
			if err := writeEntry(targetPath, tr, os.FileMode(header.Mode)); err != nil {
				return domain.NewExtractError(archivePath, "tar", err)
			}
		}
	}

	return nil
}

func writeEntry(targetPath string, src io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("copy failed: %w", err)
	}
	return out.Close()
}
