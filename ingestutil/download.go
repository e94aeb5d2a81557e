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

package ingestutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tsdat/ingest-template-aws/ingest"
	"gocloud.dev/blob"
)

// maybeDownload returns a local path to the file at p. If p is an
// http(s) URL or a blob location, the file is downloaded into dir.
// Otherwise p is returned unchanged.
func maybeDownload(ctx context.Context, p, dir string, log logrus.FieldLogger) (string, error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		log.WithField("url", p).Info("downloading input")
		return downloadHTTP(p, dir)
	}

	if ingest.IsBlob(p) {
		u, err := url.Parse(p)
		if err != nil {
			return "", fmt.Errorf("buoyingest: %v", err)
		}
		bucket, err := ingest.OpenBucket(ctx, u.Scheme+"://"+u.Host)
		if err != nil {
			return "", err
		}
		defer bucket.Close()
		log.WithField("blob", p).Info("downloading input")
		return downloadBlob(ctx, bucket, strings.TrimPrefix(u.Path, "/"), dir)
	}

	return p, nil
}

// downloadHTTP downloads the file at the specified URL into dir and
// returns the path to the downloaded file.
func downloadHTTP(p, dir string) (string, error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("buoyingest: %v", err)
	}
	resp, err := http.Get(p)
	if err != nil {
		return "", fmt.Errorf("buoyingest: downloading %s: %v", p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("buoyingest: downloading %s: %s", p, resp.Status)
	}
	return save(resp.Body, filepath.Join(dir, path.Base(u.Path)))
}

// downloadBlob copies the blob at key into dir and returns the path to
// the downloaded file.
func downloadBlob(ctx context.Context, bucket *blob.Bucket, key, dir string) (string, error) {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", fmt.Errorf("buoyingest: opening blob %s: %w", key, err)
	}
	defer r.Close()
	return save(r, filepath.Join(dir, path.Base(key)))
}

func save(r io.Reader, dst string) (string, error) {
	w, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("buoyingest: failed creating file for download: %v", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("buoyingest: downloading to %s: %v", dst, err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return dst, nil
}
