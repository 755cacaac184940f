package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thereayou/cipherchat/internal/models"
)

// DiskStore keeps blobs under root/<namespace>/<name>.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create upload dir: %v", models.ErrStorage, err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) Put(ctx context.Context, namespace, name string, r io.Reader) (string, int64, error) {
	locator := filepath.ToSlash(filepath.Join(namespace, name))
	path, err := d.resolve(locator)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: write blob: %v", models.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return locator, n, nil
}

func (d *DiskStore) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	path, err := d.resolve(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %s", models.ErrNotFound, locator)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return f, nil
}

func (d *DiskStore) Delete(_ context.Context, locator string) error {
	path, err := d.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: blob %s", models.ErrNotFound, locator)
		}
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

func (d *DiskStore) DeleteNamespace(_ context.Context, namespace string) error {
	path, err := d.resolve(namespace)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

// resolve maps a locator to a path and refuses anything escaping root.
func (d *DiskStore) resolve(locator string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(locator))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: bad locator %q", models.ErrValidation, locator)
	}
	return filepath.Join(d.root, clean), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
