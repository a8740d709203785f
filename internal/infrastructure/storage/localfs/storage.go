package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/kirillkom/docsorter/internal/core/domain"
)

// Filer implements the filesystem side of the pipeline on the local disk.
// It never overwrites a file: WriteSidecar, Rename and Move fail when the
// target exists.
type Filer struct {
	dirMode  fs.FileMode
	fileMode fs.FileMode
}

func New() *Filer {
	return &Filer{dirMode: 0o755, fileMode: 0o644}
}

// WriteSidecar stores result as indented JSON at path. The file is written
// to a temporary name first so a crash never leaves half a sidecar.
func (f *Filer) WriteSidecar(_ context.Context, path string, result domain.Result) error {
	if err := ensureAbsent(path); err != nil {
		return fmt.Errorf("place sidecar: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".docsorter-*.tmp")
	if err != nil {
		return fmt.Errorf("create sidecar: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write sidecar: %w", err)
	}
	if err := tmp.Chmod(f.fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close sidecar: %w", err)
	}
	// Link refuses an existing target. Filesystems without hard links fall
	// back to rename after the check above.
	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("place sidecar: %w", err)
		}
		if err := os.Rename(tmpName, path); err != nil {
			return fmt.Errorf("place sidecar: %w", err)
		}
	}
	return nil
}

func (f *Filer) Rename(_ context.Context, from, to string) error {
	if from == to {
		return nil
	}
	if err := ensureAbsent(to); err != nil {
		return err
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(from), err)
	}
	return nil
}

// EnsureDir creates dir and its parents. Existing directories are fine.
func (f *Filer) EnsureDir(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, f.dirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// Move relocates from to the exact path to. Across filesystems it falls
// back to copy and delete.
func (f *Filer) Move(ctx context.Context, from, to string) error {
	if err := ensureAbsent(to); err != nil {
		return err
	}
	err := os.Rename(from, to)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move %s: %w", filepath.Base(from), err)
	}
	return f.copyAndRemove(ctx, from, to)
}

func (f *Filer) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (f *Filer) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *Filer) copyAndRemove(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(from), err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(from), err)
	}
	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(to), err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(to)
		return fmt.Errorf("copy %s: %w", filepath.Base(from), err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(to)
		return fmt.Errorf("sync %s: %w", filepath.Base(to), err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(to)
		return fmt.Errorf("close %s: %w", filepath.Base(to), err)
	}
	_ = os.Chtimes(to, info.ModTime(), info.ModTime())

	src.Close()
	if err := os.Remove(from); err != nil {
		return fmt.Errorf("remove %s after copy: %w", filepath.Base(from), err)
	}
	return nil
}

func ensureAbsent(path string) error {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", path, fs.ErrExist)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check %s: %w", path, err)
	}
}
