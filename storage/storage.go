// Package storage saves uploaded files and removes them again. Callers only ever see the path that a stored file
// is served from.
package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/cyverse-de/ticket-tracker/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = common.Log.WithFields(logrus.Fields{"package": "storage"})

// ErrOutsideStore is returned when asked to delete a path that the store didn't produce.
var ErrOutsideStore = errors.New("path is not managed by this file store")

// FileStore stores uploaded files in named folders.
type FileStore interface {
	// Save stores content under folder and returns the path it will be served from.
	Save(ctx context.Context, folder, filename string, content io.Reader, size int64) (string, error)

	// Delete removes a file previously returned by Save.
	Delete(ctx context.Context, storedPath string) error

	// DeleteFolder removes a folder and everything in it. Removing a missing folder is not an error.
	DeleteFolder(ctx context.Context, folder string) error
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a user supplied file name to a name that is safe to store, e.g. "../My Report.pdf" becomes
// "My_Report.pdf".
func SecureFilename(filename string) string {
	filename = strings.NewReplacer("/", " ", "\\", " ").Replace(filename)
	filename = strings.Join(strings.Fields(filename), "_")
	filename = unsafeFilenameChars.ReplaceAllString(filename, "")
	return strings.TrimLeft(filename, "._")
}

// storedName returns a unique name for an uploaded file so that uploads with the same name don't collide.
func storedName(filename string) string {
	return uuid.NewString() + SecureFilename(filename)
}

// relativePath converts a served path back into a path relative to the store.
func relativePath(urlPrefix, storedPath string) (string, error) {
	prefix := strings.TrimSuffix(urlPrefix, "/") + "/"
	if !strings.HasPrefix(storedPath, prefix) {
		return "", errors.Wrap(ErrOutsideStore, storedPath)
	}
	relative := path.Clean(strings.TrimPrefix(storedPath, prefix))
	if relative == "." || strings.HasPrefix(relative, "..") {
		return "", errors.Wrap(ErrOutsideStore, storedPath)
	}
	return relative, nil
}

// servedPath builds the path that a stored file is served from.
func servedPath(urlPrefix, folder, name string) string {
	return strings.TrimSuffix(urlPrefix, "/") + "/" + path.Join(folder, name)
}
