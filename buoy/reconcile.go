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

// Package buoy holds the customizations of the buoy ingest: reconciling
// the raw instrument files before they are merged, and the diagnostic
// plots of the standardized dataset.
package buoy

import (
	"fmt"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/tsdat/ingest-template-aws/dataset"
	"github.com/tsdat/ingest-template-aws/ingest"
	"gonum.org/v1/gonum/mat"
)

// File-type tags found in raw file names.
const (
	SurfaceTempTag = "surfacetemp"
	GillTag        = "gill"
	CurrentsTag    = "currents"
)

// Names of the variables created from the current profiler bins.
const (
	DepthName            = "depth"
	CurrentSpeedName     = "current_speed"
	CurrentDirectionName = "current_direction"
)

var surfaceTempNames = map[string]string{
	"Surface Temperature (C)": "surfacetemp - Surface Temperature (C)",
}

var gillNames = map[string]string{
	"Horizontal Speed (m/s)":     "gill_horizontal_wind_speed",
	"Horizontal Direction (deg)": "gill_horizontal_wind_direction",
}

// AmbiguousTagError is returned when a raw file name contains more
// than one file-type tag.
type AmbiguousTagError struct {
	Key  string
	Tags []string
}

func (e *AmbiguousTagError) Error() string {
	return fmt.Sprintf("buoy: raw file %s matches more than one file type: %s",
		e.Key, strings.Join(e.Tags, ", "))
}

// A transform reshapes one raw dataset.
type transform func(*dataset.Dataset) (*dataset.Dataset, error)

type handler struct {
	tag   string
	apply transform
}

// Reconciler renames and reshapes raw datasets so that variables from
// different instruments can be merged. Which transform applies to a
// raw dataset is determined by the file-type tag in its key.
type Reconciler struct {
	// TimeInput is the raw name of the time variable.
	TimeInput string

	Log logrus.FieldLogger

	handlers []handler
}

// NewReconciler returns a reconciler for raw files described by def.
func NewReconciler(def *ingest.Definition) (*Reconciler, error) {
	tv, err := def.GetVariable("time")
	if err != nil {
		return nil, fmt.Errorf("buoy: %w", err)
	}
	r := &Reconciler{
		TimeInput: tv.InputName(),
		Log:       logrus.StandardLogger(),
	}
	r.handlers = []handler{
		{tag: SurfaceTempTag, apply: renamer(surfaceTempNames)},
		{tag: GillTag, apply: renamer(gillNames)},
		{tag: CurrentsTag, apply: r.mergeCurrents},
	}
	return r, nil
}

// handlerFor returns the handler for key, or nil if key has no tag.
func (r *Reconciler) handlerFor(key string) (*handler, error) {
	var found *handler
	var tags []string
	for i, h := range r.handlers {
		if strings.Contains(key, h.tag) {
			found = &r.handlers[i]
			tags = append(tags, h.tag)
		}
	}
	if len(tags) > 1 {
		return nil, &AmbiguousTagError{Key: key, Tags: tags}
	}
	return found, nil
}

// CustomizeRawDatasets applies the matching transform to each raw dataset and
// stores the result under the same key. Raw datasets without a tag are
// left alone. raw is only modified if every transform succeeds.
func (r *Reconciler) CustomizeRawDatasets(raw dataset.Mapping) (dataset.Mapping, error) {
	handlers := make(map[string]*handler)
	for _, key := range raw.Keys() {
		h, err := r.handlerFor(key)
		if err != nil {
			return nil, err
		}
		if h != nil {
			handlers[key] = h
		}
	}
	results := make(dataset.Mapping, len(handlers))
	for _, key := range raw.Keys() {
		h, ok := handlers[key]
		if !ok {
			continue
		}
		d, err := h.apply(raw[key])
		if err != nil {
			return nil, fmt.Errorf("buoy: %s: %w", key, err)
		}
		r.Log.WithFields(logrus.Fields{
			"file": key,
			"tag":  h.tag,
		}).Debug("reconciled raw dataset")
		results[key] = d
	}
	for key, d := range results {
		raw[key] = d
	}
	return raw, nil
}

// renamer returns a transform that renames variables according to
// names. A rename whose source is gone but whose target exists has
// already been applied and is skipped.
func renamer(names map[string]string) transform {
	return func(d *dataset.Dataset) (*dataset.Dataset, error) {
		pending := make(map[string]string)
		for from, to := range names {
			if !d.Has(from) && d.Has(to) {
				continue
			}
			pending[from] = to
		}
		if len(pending) == 0 {
			return d, nil
		}
		return d.RenameVars(pending)
	}
}

// mergeCurrents collects the per-bin velocity and direction columns of
// a current profiler into time × depth variables, with a depth
// coordinate holding the bin depths.
func (r *Reconciler) mergeCurrents(d *dataset.Dataset) (*dataset.Dataset, error) {
	bins := Bins(d)

	tv, err := d.Var(r.TimeInput)
	if err != nil {
		return nil, err
	}
	nt := tv.Len(dataset.TimeDim)
	if nt < 0 {
		return nil, fmt.Errorf("time variable %q is not along the %s dimension", r.TimeInput, dataset.TimeDim)
	}

	depth := make([]float64, len(bins))
	for i, b := range bins {
		depth[i] = b.Depth
	}
	speed, err := stack(d, bins, nt, func(b Bin) string { return b.Velocity })
	if err != nil {
		return nil, err
	}
	direction, err := stack(d, bins, nt, func(b Bin) string { return b.Direction })
	if err != nil {
		return nil, err
	}
	if len(bins) == 0 {
		r.Log.Warn("buoy: current profiler data has no complete velocity and direction bins")
	}

	o := d.Copy()
	o.Delete(CurrentSpeedName)
	o.Delete(CurrentDirectionName)
	if err := o.SetCoords(r.TimeInput); err != nil {
		return nil, err
	}
	if err := o.SetCoord(DepthName, dataset.NewVector(DepthName, depth)); err != nil {
		return nil, err
	}
	dims := []string{dataset.TimeDim, DepthName}
	if err := o.Set(CurrentSpeedName, dataset.NewVariable(dims, speed)); err != nil {
		return nil, err
	}
	if err := o.Set(CurrentDirectionName, dataset.NewVariable(dims, direction)); err != nil {
		return nil, err
	}
	return o, nil
}

// stack arranges the named column of every bin as the columns of an
// nt × len(bins) array.
func stack(d *dataset.Dataset, bins []Bin, nt int, column func(Bin) string) (*sparse.DenseArray, error) {
	if len(bins) == 0 || nt == 0 {
		return sparse.ZerosDense(nt, len(bins)), nil
	}
	m := mat.NewDense(len(bins), nt, nil)
	for i, b := range bins {
		v, err := d.Var(column(b))
		if err != nil {
			return nil, err
		}
		if len(v.Dims) != 1 || v.Len(dataset.TimeDim) != nt {
			return nil, fmt.Errorf("column %q has shape %v along %v; expected %d values along %s",
				column(b), v.Data.Shape, v.Dims, nt, dataset.TimeDim)
		}
		m.SetRow(i, v.Data.Elements)
	}
	var t mat.Dense
	t.CloneFrom(m.T())
	o := sparse.ZerosDense(nt, len(bins))
	copy(o.Elements, t.RawMatrix().Data)
	return o, nil
}
