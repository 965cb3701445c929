package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Disk stores files in a single local directory.
// Names are claimed with O_CREATE|O_EXCL, so two concurrent Create calls for
// the same name always end up with different files.
type Disk struct {
	dir string
}

var _ ContentStore = (*Disk)(nil)

// NewDisk returns a Disk rooted at dir. The directory is created lazily.
func NewDisk(dir string) *Disk {
	return &Disk{dir: dir}
}

// Dir returns the content directory.
func (d *Disk) Dir() string {
	return d.dir
}

// Path returns the location of name inside the content directory.
func (d *Disk) Path(name string) string {
	return filepath.Join(d.dir, name)
}

// Create claims the first free candidate for name and copies r into it.
func (d *Disk) Create(ctx context.Context, name string, r io.Reader) (ObjectInfo, error) {
	if err := validateName(name); err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("create content dir: %w", err)
	}

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return ObjectInfo{}, err
		}

		candidate := CandidateName(name, n)
		dst := d.Path(candidate)
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return ObjectInfo{}, fmt.Errorf("open %s: %w", candidate, err)
		}

		written, err := io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
			return ObjectInfo{}, fmt.Errorf("write %s: %w", candidate, err)
		}

		return ObjectInfo{
			Key:          candidate,
			Size:         written,
			LastModified: time.Now(),
		}, nil
	}
}

// Rename claims to with a hard link, so a taken name fails with fs.ErrExist
// instead of being overwritten, then drops from.
func (d *Disk) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, name := range []string{from, to} {
		if err := validateName(name); err != nil {
			return err
		}
	}
	if err := os.Link(d.Path(from), d.Path(to)); err != nil {
		return fmt.Errorf("claim %s: %w", to, err)
	}
	if err := os.Remove(d.Path(from)); err != nil {
		return fmt.Errorf("release %s: %w", from, err)
	}
	return nil
}

// Remove deletes name from the content directory.
func (d *Disk) Remove(_ context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// CandidateName returns name for n == 0 and "<stem>_<n><ext>" otherwise,
// splitting at the last dot.
func CandidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "_" + strconv.Itoa(n) + ext
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
