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
	"os"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/tsdat/ingest-template-aws/buoy"
	"github.com/tsdat/ingest-template-aws/dataset"
	"github.com/tsdat/ingest-template-aws/ingest"
)

// setup loads the dataset definition and makes the inputs of c
// available locally. The returned TempFiles must be closed by the
// caller.
func setup(ctx context.Context, c *Config, log logrus.FieldLogger) (*ingest.Definition, []string, *ingest.TempFiles, error) {
	temp, err := ingest.NewTempFiles(c.TempDir)
	if err != nil {
		return nil, nil, nil, err
	}
	downloads, err := os.MkdirTemp(temp.Dir, "inputs")
	if err != nil {
		temp.Close()
		return nil, nil, nil, fmt.Errorf("buoyingest: failed creating temporary download directory: %v", err)
	}
	defPath, err := maybeDownload(ctx, c.Definition, downloads, log)
	if err != nil {
		temp.Close()
		return nil, nil, nil, err
	}
	def, err := ingest.LoadDefinition(defPath)
	if err != nil {
		temp.Close()
		return nil, nil, nil, err
	}
	for k, v := range c.Attributes {
		def.Attributes[k] = v
	}
	inputs := make([]string, len(c.Inputs))
	for i, in := range c.Inputs {
		if inputs[i], err = maybeDownload(ctx, in, downloads, log); err != nil {
			temp.Close()
			return nil, nil, nil, err
		}
	}
	return def, inputs, temp, nil
}

// Run ingests the inputs of c and returns the standardized dataset
// after saving it and its plots to the configured storage.
func Run(ctx context.Context, c *Config, log logrus.FieldLogger) (*dataset.Dataset, error) {
	def, inputs, temp, err := setup(ctx, c, log)
	if err != nil {
		return nil, err
	}
	defer temp.Close()

	storage, err := ingest.OpenStorage(ctx, c.Storage)
	if err != nil {
		return nil, err
	}
	defer storage.Close()
	storage.Log = log

	reconciler, err := buoy.NewReconciler(def)
	if err != nil {
		return nil, err
	}
	reconciler.Log = log

	p := &ingest.Pipeline{
		Definition:   def,
		Storage:      storage,
		Temp:         temp,
		CustomizeRaw: reconciler.CustomizeRawDatasets,
		Log:          log,
	}
	if c.Plots {
		r := buoy.NewRenderer(storage, temp)
		r.DPI = c.DPI
		r.Log = log
		p.GeneratePlots = r.GenerateAndPersistPlots
	}
	log.WithFields(logrus.Fields{
		"datastream": def.Attributes["datastream_name"],
		"inputs":     len(inputs),
		"storage":    c.Storage,
	}).Info("starting ingest")
	return p.Run(inputs)
}

// summary describes one raw dataset.
type summary struct {
	File      string
	Dims      map[string]int
	Coords    []string
	Variables []string
}

// Inspect reads and reconciles the inputs of c and writes a summary of
// each to w.
func Inspect(ctx context.Context, c *Config, w io.Writer) error {
	log := logrus.StandardLogger()
	def, inputs, temp, err := setup(ctx, c, log)
	if err != nil {
		return err
	}
	defer temp.Close()

	reconciler, err := buoy.NewReconciler(def)
	if err != nil {
		return err
	}
	p := &ingest.Pipeline{Definition: def, Log: log}
	raw, err := p.ReadInputs(inputs)
	if err != nil {
		return err
	}
	if raw, err = reconciler.CustomizeRawDatasets(raw); err != nil {
		return err
	}
	for _, key := range raw.Keys() {
		d := raw[key]
		s := summary{
			File:   key,
			Dims:   d.Dims(),
			Coords: d.Coords(),
		}
		for _, name := range d.Names() {
			if !d.IsCoord(name) {
				s.Variables = append(s.Variables, name)
			}
		}
		if _, err := pretty.Fprintf(w, "%# v\n", s); err != nil {
			return err
		}
	}
	return nil
}
