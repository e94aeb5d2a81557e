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
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tsdat/ingest-template-aws/dataset"
	"gocloud.dev/blob/memblob"
)

func TestWithTempPath(t *testing.T) {
	tmp, err := NewTempFiles(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tmp.Close()

	var used string
	err = tmp.WithTempPath("dir/plot.png", func(path string) error {
		used = path
		return os.WriteFile(path, []byte("x"), 0o644)
	})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(used) != "plot.png" || filepath.Dir(used) != tmp.Dir {
		t.Errorf("path = %s", used)
	}
	if _, err := os.Stat(used); !os.IsNotExist(err) {
		t.Error("temporary file was not removed")
	}

	failure := errors.New("fail")
	err = tmp.WithTempPath("plot.png", func(path string) error {
		os.WriteFile(path, []byte("x"), 0o644)
		return failure
	})
	if !errors.Is(err, failure) {
		t.Errorf("err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp.Dir, "plot.png")); !os.IsNotExist(err) {
		t.Error("temporary file was not removed after a failure")
	}

	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(tmp.Dir); !os.IsNotExist(err) {
		t.Error("temporary directory was not removed")
	}
}

func namedDataset(t *testing.T) *dataset.Dataset {
	d := dataset.New()
	d.Attrs["datastream_name"] = "morro.buoy_z05.b1"
	start := dataset.Seconds(time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC))
	if err := d.SetCoord(dataset.TimeDim, dataset.NewVector(dataset.TimeDim, []float64{start, start + 600})); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestFilenames(t *testing.T) {
	d := namedDataset(t)
	p, err := PlotFilename(d, "current_velocity", "png")
	if err != nil {
		t.Fatal(err)
	}
	if want := "morro.buoy_z05.b1.20201201.000000.current_velocity.png"; p != want {
		t.Errorf("%s != %s", p, want)
	}
	n, err := DatasetFilename(d, ".nc")
	if err != nil {
		t.Fatal(err)
	}
	if want := "morro.buoy_z05.b1.20201201.000000.nc"; n != want {
		t.Errorf("%s != %s", n, want)
	}
	if ds := Datastream(p); ds != "morro.buoy_z05.b1" {
		t.Errorf("datastream = %s", ds)
	}
	if ds := Datastream("/tmp/short.png"); ds != "short" {
		t.Errorf("datastream = %s", ds)
	}

	delete(d.Attrs, "datastream_name")
	if _, err := PlotFilename(d, "x", "png"); err == nil {
		t.Error("expected an error without a datastream name")
	}
}

func TestBlobStorageSave(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	s := NewBlobStorage(bucket, "/output/")
	defer s.Close()

	p := writeFile(t, t.TempDir(), "morro.buoy_z05.b1.20201201.000000.conductivity.png", "png data")
	if err := s.Save(p); err != nil {
		t.Fatal(err)
	}
	key := "output/morro.buoy_z05.b1/morro.buoy_z05.b1.20201201.000000.conductivity.png"
	if k := s.Key(p); k != key {
		t.Errorf("key = %s", k)
	}
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "png data" {
		t.Errorf("contents = %q", b)
	}
}

func TestOpenStorageFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := OpenStorage(context.Background(), "file://"+filepath.ToSlash(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	p := writeFile(t, t.TempDir(), "a.b.c.20201201.000000.nc", "nc")
	if err := s.Save(p); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.b.c", "a.b.c.20201201.000000.nc")); err != nil {
		t.Error(err)
	}
}

func TestIsBlob(t *testing.T) {
	for path, want := range map[string]bool{
		"s3://bucket/key":  true,
		"gs://bucket/key":  true,
		"file:///tmp/data": true,
		"mem://x":          true,
		"/tmp/data.csv":    false,
		"https://host/x":   false,
	} {
		if got := IsBlob(path); got != want {
			t.Errorf("IsBlob(%q) = %v", path, got)
		}
	}
}

func TestOpenBucket(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBucket(ctx, "mem://scratch/ignored/path")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.WriteAll(ctx, "k", []byte("v"), nil); err != nil {
		t.Fatal(err)
	}
	b.Close()

	if _, err := OpenBucket(ctx, "ftp://host"); err == nil {
		t.Error("expected an error for an unsupported provider")
	}
}
