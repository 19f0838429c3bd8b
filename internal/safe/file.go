// Package safe provides file operations with size and file-type validation.
package safe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize is the default maximum file size for safe file operations (1MB).
const DefaultMaxFileSize = 1 << 20

// FileOptions configures the validations applied by ReadFile, CopyFile and WriteFile.
type FileOptions struct {
	// MaxSize is the maximum allowed file size in bytes. Zero means DefaultMaxFileSize.
	MaxSize int64
	// Perm is the permission mode for created files. Zero keeps the mode of
	// the file being replaced, or 0600 for new files.
	Perm os.FileMode
	// AllowSymlinks allows symlink sources. Default is false.
	AllowSymlinks bool
}

func (o *FileOptions) maxSize() int64 {
	if o == nil || o.MaxSize == 0 {
		return DefaultMaxFileSize
	}
	return o.MaxSize
}

// stat validates path and returns the info of the regular file behind it.
func stat(path string, opts *FileOptions) (os.FileInfo, error) {
	clean := filepath.Clean(path)

	info, err := os.Lstat(clean)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if opts == nil || !opts.AllowSymlinks {
			return nil, fmt.Errorf("file %q is a symlink, which is not allowed", path)
		}
		if info, err = os.Stat(clean); err != nil {
			return nil, err
		}
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}

	if info.Size() > opts.maxSize() {
		return nil, fmt.Errorf("file %q exceeds maximum allowed size of %d bytes", path, opts.maxSize())
	}

	return info, nil
}

// ReadFile reads a regular file after validating its type and size.
func ReadFile(path string, opts *FileOptions) ([]byte, error) {
	if _, err := stat(path, opts); err != nil {
		return nil, err
	}
	//nolint:gosec // G304: path validated above.
	return os.ReadFile(filepath.Clean(path))
}

// CopyFile copies a regular file from src to dst. The destination keeps the
// source mode unless opts.Perm is set.
func CopyFile(src, dst string, opts *FileOptions) error {
	info, err := stat(src, opts)
	if err != nil {
		return err
	}

	perm := info.Mode().Perm()
	if opts != nil && opts.Perm != 0 {
		perm = opts.Perm
	}

	//nolint:gosec // G304: src validated above.
	srcFile, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}
	return dstFile.Close()
}

// WriteFile replaces path with data. The content is written to a temporary
// file in the same directory and renamed over the target, so readers never
// observe a partially written file. An existing file keeps its mode.
func WriteFile(path string, data []byte, opts *FileOptions) error {
	if int64(len(data)) > opts.maxSize() {
		return fmt.Errorf("refusing to write %d bytes to %q: exceeds %d", len(data), path, opts.maxSize())
	}

	perm := os.FileMode(0o600)
	if info, err := stat(path, opts); err == nil {
		perm = info.Mode().Perm()
	} else if !os.IsNotExist(err) {
		return err
	}
	if opts != nil && opts.Perm != 0 {
		perm = opts.Perm
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
