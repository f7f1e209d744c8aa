// Package blobstore is a thin facade over object storage keyed by
// slash-separated paths. The backing scheme comes from the base URL:
// file:// for deployments, mem:// in tests.
package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Store provides get/put/delete/list/copy over a single base URL.
type Store struct {
	fs      afs.Service
	baseURL string
}

// New creates a Store rooted at baseURL, e.g. "file:///var/lib/careboard"
// or "mem://localhost/careboard".
func New(baseURL string) *Store {
	return &Store{
		fs:      afs.New(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// BaseURL returns the root the store was created with.
func (s *Store) BaseURL() string {
	return s.baseURL
}

func (s *Store) objectURL(path string) string {
	return url.Join(s.baseURL, path)
}

// Get downloads the object at path. Missing objects yield a KindNotFound
// error.
func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	objectURL := s.objectURL(path)
	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return nil, classify(path, err)
	}
	if !exists {
		return nil, &Error{Kind: KindNotFound, Path: path, Err: io.EOF}
	}
	data, err := s.fs.DownloadWithURL(ctx, objectURL)
	if err != nil {
		return nil, classify(path, err)
	}
	return data, nil
}

// Put uploads data to path, replacing any existing object.
func (s *Store) Put(ctx context.Context, path string, data []byte) error {
	if err := s.fs.Upload(ctx, s.objectURL(path), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return classify(path, err)
	}
	return nil
}

// Delete removes the object at path. Deleting a missing object is a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	objectURL := s.objectURL(path)
	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return classify(path, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, objectURL); err != nil {
		return classify(path, err)
	}
	return nil
}

// Exists reports whether an object is present at path.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	exists, err := s.fs.Exists(ctx, s.objectURL(path))
	if err != nil {
		return false, classify(path, err)
	}
	return exists, nil
}

// List returns the names of objects directly under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	objects, err := s.fs.List(ctx, s.objectURL(prefix))
	if err != nil {
		return nil, classify(prefix, err)
	}
	var names []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		names = append(names, object.Name())
	}
	return names, nil
}

// Copy duplicates the object at src to dst. Copying a missing source yields
// a KindNotFound error; repeating a completed copy is harmless.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	srcURL := s.objectURL(src)
	exists, err := s.fs.Exists(ctx, srcURL)
	if err != nil {
		return classify(src, err)
	}
	if !exists {
		return &Error{Kind: KindNotFound, Path: src, Err: io.EOF}
	}
	if err := s.fs.Copy(ctx, srcURL, s.objectURL(dst)); err != nil {
		return classify(src, err)
	}
	return nil
}
