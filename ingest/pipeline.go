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
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/tsdat/ingest-template-aws/dataset"
)

// Pipeline runs one ingest: raw files in, a standardized dataset and
// its plots out.
type Pipeline struct {
	Definition *Definition
	Storage    Storage
	Temp       *TempFiles

	// CustomizeRaw, if not nil, is called with the raw datasets before
	// they are merged. Its result replaces the raw datasets.
	CustomizeRaw func(dataset.Mapping) (dataset.Mapping, error)

	// GeneratePlots, if not nil, is called with the standardized
	// dataset before it is saved.
	GeneratePlots func(*dataset.Dataset) error

	Log logrus.FieldLogger
}

func (p *Pipeline) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

// ReadInputs parses each input file. Datasets are keyed by file name.
func (p *Pipeline) ReadInputs(inputs []string) (dataset.Mapping, error) {
	raw := make(dataset.Mapping)
	for _, in := range inputs {
		key := filepath.Base(in)
		if _, ok := raw[key]; ok {
			return nil, fmt.Errorf("ingest: more than one input file is named %s", key)
		}
		d, err := ReadRaw(in, p.Definition)
		if err != nil {
			return nil, err
		}
		p.log().WithFields(logrus.Fields{
			"file":      key,
			"variables": len(d.Names()),
		}).Debug("read raw file")
		raw[key] = d
	}
	return raw, nil
}

// Run ingests the given raw files and returns the standardized dataset
// after it has been saved.
func (p *Pipeline) Run(inputs []string) (*dataset.Dataset, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("ingest: no input files")
	}
	raw, err := p.ReadInputs(inputs)
	if err != nil {
		return nil, err
	}
	if p.CustomizeRaw != nil {
		raw, err = p.CustomizeRaw(raw)
		if err != nil {
			return nil, err
		}
	}
	d, err := Standardize(p.Definition, raw)
	if err != nil {
		return nil, err
	}
	p.log().WithFields(logrus.Fields{
		"variables": len(d.Names()),
		"times":     d.Dims()[dataset.TimeDim],
	}).Info("standardized dataset")
	if p.GeneratePlots != nil {
		if err := p.GeneratePlots(d); err != nil {
			return nil, err
		}
	}
	if err := p.SaveDataset(d); err != nil {
		return nil, err
	}
	return d, nil
}

// SaveDataset writes d as a NetCDF file to a temporary location and
// saves it to storage.
func (p *Pipeline) SaveDataset(d *dataset.Dataset) error {
	name, err := DatasetFilename(d, "nc")
	if err != nil {
		return err
	}
	return p.Temp.WithTempPath(name, func(path string) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("ingest: creating dataset file: %w", err)
		}
		if err := dataset.WriteNetCDF(f, d); err != nil {
			f.Close()
			return fmt.Errorf("ingest: writing dataset: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		return p.Storage.Save(path)
	})
}
