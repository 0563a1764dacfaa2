package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/eringen/orgsite/backend"
)

// objectPath maps bucket/key to a file under the storage root, refusing
// anything that would escape it.
func (b *Backend) objectPath(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", &backend.Error{Op: "storage", Status: 400, Message: "Invalid bucket name"}
	}
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, `\`) || clean != "/"+key {
		return "", &backend.Error{Op: "storage", Status: 400, Message: "Invalid key: " + key}
	}
	return filepath.Join(b.cfg.StorageDir, bucket, filepath.FromSlash(clean[1:])), nil
}

// Upload writes a new object. Existing objects are never overwritten.
func (b *Backend) Upload(ctx context.Context, bucket, key, contentType string, data []byte) error {
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("local: create bucket dir: %w", err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &backend.Error{Op: "upload", Status: 409, Message: "The resource already exists"}
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return err
	}
	return f.Close()
}

// PublicURL returns where the site serves the object.
func (b *Backend) PublicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(b.cfg.PublicURL, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// Remove deletes an object. Removing a missing object is not an error.
func (b *Backend) Remove(ctx context.Context, bucket, key string) error {
	p, err := b.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
