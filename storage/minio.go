package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioSettings represents the settings required to connect to an S3 compatible object store.
type MinioSettings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
	URLPrefix string
}

// MinioStore keeps uploaded files in an S3 compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	urlPrefix string
}

// NewMinioStore connects to the object store and verifies that the bucket exists.
func NewMinioStore(ctx context.Context, settings *MinioSettings) (*MinioStore, error) {
	wrapMsg := "unable to initialize the object store"

	client, err := minio.New(settings.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(settings.AccessKey, settings.SecretKey, ""),
		Secure: settings.Secure,
		Region: settings.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	exists, err := client.BucketExists(ctx, settings.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	if !exists {
		return nil, errors.Errorf("%s: bucket %s does not exist", wrapMsg, settings.Bucket)
	}

	return &MinioStore{client: client, bucket: settings.Bucket, urlPrefix: settings.URLPrefix}, nil
}

// Save stores content under folder and returns the path it will be served from.
func (s *MinioStore) Save(ctx context.Context, folder, filename string, content io.Reader, size int64) (string, error) {
	folder = SecureFilename(folder)
	name := storedName(filename)
	objectName := folder + "/" + name

	_, err := s.client.PutObject(ctx, s.bucket, objectName, content, size, minio.PutObjectOptions{})
	if err != nil {
		return "", errors.Wrap(err, "unable to store uploaded file")
	}

	return servedPath(s.urlPrefix, folder, name), nil
}

// Delete removes a file previously returned by Save.
func (s *MinioStore) Delete(ctx context.Context, storedPath string) error {
	wrapMsg := "unable to remove stored file"

	objectName, err := relativePath(s.urlPrefix, storedPath)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	if err = s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// DeleteFolder removes every object stored under folder.
func (s *MinioStore) DeleteFolder(ctx context.Context, folder string) error {
	wrapMsg := "unable to remove stored folder"

	folder = SecureFilename(folder)
	if folder == "" {
		return errors.Wrap(ErrOutsideStore, "refusing to remove the whole bucket")
	}

	// Cancelling the context stops the listing goroutine if an object can't be removed.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: folder + "/", Recursive: true})
	for object := range objects {
		if object.Err != nil {
			return errors.Wrap(object.Err, wrapMsg)
		}
		err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{})
		if err != nil {
			return errors.Wrap(err, wrapMsg)
		}
	}

	return nil
}
