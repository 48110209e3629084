package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// LocalStore keeps uploaded files in a directory tree.
type LocalStore struct {
	fs        afero.Fs
	root      string
	urlPrefix string
}

// NewLocalStore returns a store that keeps files below root on fs and serves them from urlPrefix.
func NewLocalStore(fs afero.Fs, root, urlPrefix string) *LocalStore {
	return &LocalStore{fs: fs, root: root, urlPrefix: urlPrefix}
}

// Save stores content under folder and returns the path it will be served from.
func (s *LocalStore) Save(_ context.Context, folder, filename string, content io.Reader, _ int64) (string, error) {
	wrapMsg := "unable to store uploaded file"

	folder = SecureFilename(folder)
	name := storedName(filename)
	dir := filepath.Join(s.root, folder)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, wrapMsg)
	}
	if err := afero.WriteReader(s.fs, filepath.Join(dir, name), content); err != nil {
		return "", errors.Wrap(err, wrapMsg)
	}

	storedPath := servedPath(s.urlPrefix, folder, name)
	log.Debugf("stored %s", storedPath)
	return storedPath, nil
}

// Delete removes a file previously returned by Save.
func (s *LocalStore) Delete(_ context.Context, storedPath string) error {
	wrapMsg := "unable to remove stored file"

	relative, err := relativePath(s.urlPrefix, storedPath)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if err = s.fs.Remove(filepath.Join(s.root, filepath.FromSlash(relative))); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// DeleteFolder removes a folder and everything in it.
func (s *LocalStore) DeleteFolder(_ context.Context, folder string) error {
	folder = path.Clean(SecureFilename(folder))
	if folder == "." || folder == "" {
		return errors.Wrap(ErrOutsideStore, "refusing to remove the store root")
	}
	if err := s.fs.RemoveAll(filepath.Join(s.root, folder)); err != nil {
		return errors.Wrap(err, "unable to remove stored folder")
	}
	return nil
}
