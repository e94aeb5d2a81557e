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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tsdat/ingest-template-aws/dataset"
)

// filenamePrefix returns "<datastream>.<YYYYMMDD>.<HHMMSS>" for d, using
// its datastream_name attribute and its first time stamp.
func filenamePrefix(d *dataset.Dataset) (string, error) {
	ds := d.Attrs["datastream_name"]
	if ds == "" {
		return "", fmt.Errorf("ingest: dataset has no datastream_name attribute")
	}
	times, err := d.Times()
	if err != nil {
		return "", fmt.Errorf("ingest: deriving file name: %w", err)
	}
	if len(times) == 0 {
		return "", fmt.Errorf("ingest: deriving file name: dataset has no time stamps")
	}
	return ds + "." + times[0].Format("20060102.150405"), nil
}

// PlotFilename returns the file name for the plot of d identified by tag,
// e.g. "morro.buoy_z05.b1.20201201.000000.current_velocity.png".
func PlotFilename(d *dataset.Dataset, tag, ext string) (string, error) {
	p, err := filenamePrefix(d)
	if err != nil {
		return "", err
	}
	return p + "." + tag + "." + strings.TrimPrefix(ext, "."), nil
}

// DatasetFilename returns the file name that d is stored under.
func DatasetFilename(d *dataset.Dataset, ext string) (string, error) {
	p, err := filenamePrefix(d)
	if err != nil {
		return "", err
	}
	return p + "." + strings.TrimPrefix(ext, "."), nil
}

// Datastream returns the datastream part (the first three dot-separated
// fields) of a file name created by PlotFilename or DatasetFilename.
// Names with fewer fields yield their base name without extension.
func Datastream(filename string) string {
	base := filepath.Base(filename)
	parts := strings.Split(base, ".")
	if len(parts) < 4 {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return strings.Join(parts[:3], ".")
}
