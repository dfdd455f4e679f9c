// Package blobstore holds uploaded medical documents and evidence files.
// Disk serves them from the API itself; Cloudinary hands them to the
// hosted media service.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that would leave the store's root
var ErrInvalidKey = errors.New("invalid blob key")

// Disk stores blobs under a directory. URLs point at the /uploads/ route,
// which serves the same directory.
type Disk struct {
	root    string
	baseURL string
}

// NewDisk creates root if needed
func NewDisk(root, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root is the directory blobs are written to
func (d *Disk) Root() string {
	return d.root
}

func (d *Disk) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(d.root, filepath.FromSlash(key)), nil
}

// Put writes r to key, replacing any previous content
func (d *Disk) Put(ctx context.Context, key string, r io.Reader) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return f.Close()
}

// Delete removes key. Missing keys are not an error.
func (d *Disk) Delete(ctx context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the public address of key
func (d *Disk) URL(ctx context.Context, key string) (string, error) {
	p, err := d.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("lookup %s: %w", key, err)
	}
	return d.baseURL + "/uploads/" + key, nil
}
