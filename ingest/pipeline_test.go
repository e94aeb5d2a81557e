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
	"os"
	"path/filepath"
	"testing"

	"github.com/tsdat/ingest-template-aws/dataset"
	"gocloud.dev/blob/memblob"
)

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	met := writeFile(t, dir, "buoy.z05.00.20201201.000000.met.csv",
		"Timestamp,Air Temperature (C)\n2020-12-01 00:00:00,10\n2020-12-01 00:10:00,11\n")
	sst := writeFile(t, dir, "buoy.z05.00.20201201.000000.surfacetemp.csv",
		"Timestamp,Surface Temperature (C)\n2020-12-01 00:00:00,15\n2020-12-01 00:10:00,16\n")

	tmp, err := NewTempFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer tmp.Close()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	var plotted *dataset.Dataset
	p := &Pipeline{
		Definition: testDefinition(t),
		Storage:    NewBlobStorage(bucket, ""),
		Temp:       tmp,
		CustomizeRaw: func(raw dataset.Mapping) (dataset.Mapping, error) {
			k := "buoy.z05.00.20201201.000000.surfacetemp.csv"
			d, err := raw[k].RenameVars(map[string]string{
				"Surface Temperature (C)": "surfacetemp - Surface Temperature (C)",
			})
			if err != nil {
				return nil, err
			}
			raw[k] = d
			return raw, nil
		},
		GeneratePlots: func(d *dataset.Dataset) error {
			plotted = d
			return nil
		},
	}
	d, err := p.Run([]string{met, sst})
	if err != nil {
		t.Fatal(err)
	}
	if plotted != d {
		t.Error("plot hook did not receive the standardized dataset")
	}
	sstVals, err := d.Float64s("CTD_SST")
	if err != nil {
		t.Fatal(err)
	}
	if sstVals[1] != 16 {
		t.Errorf("CTD_SST = %v", sstVals)
	}
	ok, err := bucket.Exists(context.Background(), "morro.buoy_z05.b1/morro.buoy_z05.b1.20201201.000000.nc")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("dataset was not saved")
	}
	entries, err := os.ReadDir(tmp.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestPipelineHookError(t *testing.T) {
	dir := t.TempDir()
	met := writeFile(t, dir, "met.csv", "Timestamp,Air Temperature (C)\n2020-12-01 00:00:00,10\n")
	failure := errors.New("hook failed")
	p := &Pipeline{
		Definition:   testDefinition(t),
		CustomizeRaw: func(dataset.Mapping) (dataset.Mapping, error) { return nil, failure },
	}
	if _, err := p.Run([]string{met}); !errors.Is(err, failure) {
		t.Errorf("err = %v", err)
	}
}

func TestPipelineDuplicateInputs(t *testing.T) {
	a := writeFile(t, t.TempDir(), "met.csv", "Timestamp\n2020-12-01 00:00:00\n")
	b := writeFile(t, t.TempDir(), "met.csv", "Timestamp\n2020-12-01 00:00:00\n")
	p := &Pipeline{Definition: testDefinition(t)}
	if _, err := p.ReadInputs([]string{a, b}); err == nil {
		t.Error("expected an error for duplicate input names")
	}
	if filepath.Base(a) != filepath.Base(b) {
		t.Fatal("test setup")
	}
}
