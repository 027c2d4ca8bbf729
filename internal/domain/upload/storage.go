package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Storage is the flat, per-directory file store under the resources root.
// The directory listing is the only index.
type Storage struct {
	fs afero.Fs
}

func NewStorage(fs afero.Fs) *Storage {
	return &Storage{fs: fs}
}

// NewDiskStorage roots a Storage at root on the local filesystem.
func NewDiskStorage(root string) (*Storage, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve resources root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create resources root: %w", err)
	}
	return NewStorage(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

// create opens dir/name for writing and fails with os.ErrExist instead of
// truncating an existing file.
func (s *Storage) create(dir, name string) (afero.File, error) {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return s.fs.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// Write streams r into dir/name, checking ctx between chunks. On any
// failure the partially written file is removed.
func (s *Storage) Write(ctx context.Context, dir, name string, r io.Reader) (int64, error) {
	f, err := s.create(dir, name)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, &contextReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.Remove(dir, name)
		return 0, err
	}
	return n, nil
}

func (s *Storage) Remove(dir, name string) error {
	err := s.fs.Remove(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Open returns the stored file and its metadata, or ErrFileNotFound.
func (s *Storage) Open(dir, name string) (afero.File, os.FileInfo, error) {
	if !validStoredName(name) {
		return nil, nil, ErrFileNotFound
	}

	f, err := s.fs.Open(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrFileNotFound
	}
	return f, info, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
