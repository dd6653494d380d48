package storage

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
)

// rename is swapped out in tests to force the copy fallback.
var rename = os.Rename

// Permissions for bucket directories and object files.
var (
	DirMode  os.FileMode = 0o755
	FileMode os.FileMode = 0o644
)

func CopyFile(srcPath string, destPath string) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FileMode)
	if err != nil {
		return err
	}

	if _, err := destFile.ReadFrom(srcFile); err != nil {
		_ = destFile.Close()
		_ = os.Remove(destPath)
		return err
	}

	return destFile.Close()
}

// MoveFile renames srcPath to destPath. If the rename fails, typically
// because the source lives on a different filesystem, it falls back to
// copying the contents into place and discarding the source.
func MoveFile(srcPath string, destPath string) error {
	renameErr := rename(srcPath, destPath)
	if renameErr == nil {
		return nil
	}

	if copyErr := CopyFile(srcPath, destPath); copyErr != nil {
		return errors.Join(renameErr, copyErr)
	}

	// Best-effort cleanup of the source file; the object is already in place.
	if rmErr := os.Remove(srcPath); rmErr != nil && !os.IsNotExist(rmErr) {
		slog.Warn("Failed to discard source after copy", "source", srcPath, "error", rmErr)
	}

	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// isWritable probes dir by creating and removing a temporary file, which
// catches read-only mounts and ACLs that permission bits alone do not show.
func isWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// isEmptyDir reports whether dir contains no entries.
func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
