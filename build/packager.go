package build

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonwraymond/templategen/cache"
)

// Package writes the whole tree under srcDir to w as a zip archive. Entry
// names are relative to srcDir with forward slashes; empty directories and
// symlinks are preserved.
func Package(ctx context.Context, srcDir string, w io.Writer) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			header.Name += "/"
			_, err = zw.CreateHeader(header)
			return err

		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry, err := zw.CreateHeader(header)
			if err != nil {
				return err
			}
			_, err = io.WriteString(entry, filepath.ToSlash(target))
			return err

		case info.Mode().IsRegular():
			header.Method = zip.Deflate
			entry, err := zw.CreateHeader(header)
			if err != nil {
				return err
			}
			return copyFile(entry, path)

		default:
			// Sockets, devices and pipes have no archive representation.
			return nil
		}
	})
	if err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// Publish packages srcDir into the store under key and returns the
// artifact path. Nothing becomes visible unless the whole archive was
// written.
func Publish(ctx context.Context, store cache.Store, key cache.Key, srcDir string) (string, error) {
	pending, err := store.Create(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPackagingFailed, err)
	}
	if err := Package(ctx, srcDir, pending); err != nil {
		_ = pending.Abort()
		return "", fmt.Errorf("%w: archiving %s: %w", ErrPackagingFailed, srcDir, err)
	}
	path, err := pending.Commit()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPackagingFailed, err)
	}
	return path, nil
}
