/*
Copyright © 2021 the buoyingest authors.
This file is part of buoyingest.

buoyingest is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

buoyingest is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with buoyingest.  If not, see <http://www.gnu.org/licenses/>.
*/

package ingest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// Storage persists output files.
type Storage interface {
	// Save stores a copy of the local file at path.
	Save(path string) error
}

// BlobStorage is a Storage that uploads files to blob storage under
// "<prefix>/<datastream>/<file name>".
type BlobStorage struct {
	bucket *blob.Bucket
	prefix string

	Log logrus.FieldLogger
}

// NewBlobStorage returns a storage that writes into bucket below prefix.
func NewBlobStorage(bucket *blob.Bucket, prefix string) *BlobStorage {
	return &BlobStorage{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		Log:    logrus.StandardLogger(),
	}
}

// OpenStorage opens the storage location root, which must be in the
// format 'provider://name/prefix'. See OpenBucket for the accepted
// providers. For the "file" provider the whole path is the bucket
// directory, which is created if needed.
func OpenStorage(ctx context.Context, root string) (*BlobStorage, error) {
	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("ingest: parsing storage location: %w", err)
	}
	if u.Scheme == "file" {
		dir := filepath.FromSlash(u.Host + u.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ingest: creating storage directory: %w", err)
		}
		b, err := fileblob.OpenBucket(dir, nil)
		if err != nil {
			return nil, fmt.Errorf("ingest: opening storage directory: %w", err)
		}
		return NewBlobStorage(b, ""), nil
	}
	b, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return nil, err
	}
	return NewBlobStorage(b, u.Path), nil
}

// Key returns the blob key that the file at path is saved under.
func (s *BlobStorage) Key(p string) string {
	base := filepath.Base(p)
	return path.Join(s.prefix, Datastream(base), base)
}

// Save uploads the file at p.
func (s *BlobStorage) Save(p string) error {
	ctx := context.TODO()
	r, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("ingest: opening file '%s' for upload: %w", p, err)
	}
	defer r.Close()
	key := s.Key(p)
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("ingest: opening writer to upload file '%s': %w", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("ingest: uploading file '%s' to '%s': %w", p, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("ingest: uploading file '%s' to '%s': %w", p, key, err)
	}
	s.Log.WithFields(logrus.Fields{
		"file": filepath.Base(p),
		"key":  key,
	}).Info("saved file")
	return nil
}

// Close closes the underlying bucket.
func (s *BlobStorage) Close() error { return s.bucket.Close() }

// bucketOpeners maps each blob provider scheme to a function that opens
// the named bucket.
var bucketOpeners = map[string]func(ctx context.Context, name string) (*blob.Bucket, error){
	"file": func(_ context.Context, dir string) (*blob.Bucket, error) { return fileblob.OpenBucket(dir, nil) },
	"mem":  func(context.Context, string) (*blob.Bucket, error) { return memblob.OpenBucket(nil), nil },
	"gs":   gsBucket,
	"s3":   s3Bucket,
}

// IsBlob reports whether path names a location in one of the
// blob providers accepted by OpenBucket.
func IsBlob(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	_, ok := bucketOpeners[u.Scheme]
	return ok
}

// OpenBucket opens the bucket at location, a URL of the form
// "provider://bucket". Any path after the bucket name is ignored.
// Providers are file, mem, gs and s3.
func OpenBucket(ctx context.Context, location string) (*blob.Bucket, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("ingest: parsing bucket location: %w", err)
	}
	open, ok := bucketOpeners[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("ingest: unsupported blob provider %q", u.Scheme)
	}
	b, err := open(ctx, u.Hostname())
	if err != nil {
		return nil, fmt.Errorf("ingest: opening %s bucket %q: %w", u.Scheme, u.Hostname(), err)
	}
	return b, nil
}

// gsBucket uses the application default credentials.
func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, client, name, nil)
}

// defaultRegion is used for s3 when AWS_REGION is unset.
const defaultRegion = "us-west-2"

// s3Bucket reads its credentials from AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = defaultRegion
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	})
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, sess, name, nil)
}
