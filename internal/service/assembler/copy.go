package assembler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// errNotADirectory is returned when a bundle directory path is occupied by a file.
var errNotADirectory = errors.New("path exists and is not a directory")

// mkdirAll creates a directory tree and rejects paths occupied by regular files.
// os.MkdirAll already fails for occupied intermediate elements; this adds the
// same check for the leaf so the error message names the path.
func mkdirAll(path string, mode os.FileMode) error {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return fmt.Errorf("%s: %w", path, errNotADirectory)
	}

	return os.MkdirAll(path, mode)
}

// copyFile copies src to dst with a whole-file overwrite, preserving the
// source's permission bits. No partial or resumable copy semantics.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", src)
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", dst, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}

// copyTree recursively copies the contents of src into dst.
// Symlinks and special files inside the tree are skipped.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return mkdirAll(target, defaultDirMode)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			return nil
		}
	})
}
