// Package files keeps uploaded demo files on disk: a per-user temp area for
// incoming uploads and a per-user final directory for accepted ones.
//
//	<base>/temp/<userID>/<uuid>-<name>   incoming
//	<base>/<userID>/<name>               accepted
package files

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Store reads and writes demo files under a base directory.
type Store struct {
	fs   afero.Fs
	base string
}

// New returns a Store rooted at base on fs.
func New(fs afero.Fs, base string) *Store {
	return &Store{fs: fs, base: filepath.Clean(base)}
}

// NewOS returns a Store on the real file system.
func NewOS(base string) *Store {
	return New(afero.NewOsFs(), base)
}

// TempDir is where uploads of userID wait for deduplication.
func (s *Store) TempDir(userID int64) string {
	return filepath.Join(s.base, "temp", strconv.FormatInt(userID, 10))
}

// FinalPath is where an accepted demo named name of userID is kept.
// Only the base name of name is used.
func (s *Store) FinalPath(userID int64, name string) string {
	return filepath.Join(s.base, strconv.FormatInt(userID, 10), filepath.Base(name))
}

// SaveTemp copies r into the temp dir of userID and returns the temp path.
// A random prefix keeps same-named files of one batch apart.
func (s *Store) SaveTemp(userID int64, name string, r io.Reader) (string, error) {
	dir := s.TempDir(userID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(name))
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(path)
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(path)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return path, nil
}

// Hash returns the hex MD5 of the file contents.
func (s *Store) Hash(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Move renames src to dst, creating the parent directory of dst.
// An existing dst is never replaced; the error then matches os.ErrExist.
// dst is first claimed with O_EXCL, so of two concurrent moves to the same
// path only one succeeds.
func (s *Store) Move(src, dst string) error {
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	claim, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := claim.Close(); err != nil {
		_ = s.fs.Remove(dst)
		return err
	}

	if err := s.fs.Rename(src, dst); err != nil {
		_ = s.fs.Remove(dst)
		return err
	}
	return nil
}

// Remove deletes a single file.
func (s *Store) Remove(path string) error {
	return s.fs.Remove(path)
}

// Discard removes every path that still exists and returns the first failure.
func (s *Store) Discard(paths ...string) error {
	var first error
	for _, p := range paths {
		if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) && first == nil {
			first = err
		}
	}
	return first
}
