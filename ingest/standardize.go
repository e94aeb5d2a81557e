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
	"math"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/tsdat/ingest-template-aws/dataset"
)

// Standardize merges the raw datasets into one dataset holding the
// variables of def under their canonical names. The time axis is the
// sorted union of the time stamps of every raw dataset; variables are
// re-indexed onto it, with NaN where a raw dataset has no data.
// Each variable is taken from the first raw dataset, in sorted key
// order, that holds its input name.
func Standardize(def *Definition, raw dataset.Mapping) (*dataset.Dataset, error) {
	timeDef, err := def.GetVariable("time")
	if err != nil {
		return nil, err
	}
	timeName := timeDef.InputName()

	keys := raw.Keys()
	seen := make(map[float64]bool)
	var times []float64
	for _, k := range keys {
		if !raw[k].Has(timeName) {
			continue
		}
		vals, err := raw[k].Float64s(timeName)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s: %w", k, err)
		}
		for _, t := range vals {
			if !seen[t] && !math.IsNaN(t) {
				seen[t] = true
				times = append(times, t)
			}
		}
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("ingest: none of the raw datasets has any %q values", timeName)
	}
	sort.Float64s(times)
	index := make(map[float64]int, len(times))
	for i, t := range times {
		index[t] = i
	}

	o := dataset.New()
	for k, v := range def.Attributes {
		o.Attrs[k] = v
	}
	tv := dataset.NewVector(dataset.TimeDim, times)
	for k, a := range timeDef.Attrs {
		tv.Attrs[k] = a
	}
	if err := o.SetCoord(timeDef.Name, tv); err != nil {
		return nil, err
	}

	for _, vd := range def.Variables() {
		if vd == timeDef {
			continue
		}
		key, src := find(raw, keys, vd.InputName())
		if src == nil {
			return nil, fmt.Errorf("ingest: no raw dataset holds the input for %q: %w",
				vd.Name, &dataset.MissingVariableError{Name: vd.InputName()})
		}
		rv, _ := src.Var(vd.InputName())
		var v *dataset.Variable
		if len(rv.Dims) > 0 && rv.Dims[0] == dataset.TimeDim {
			srcTimes, err := src.Float64s(timeName)
			if err != nil {
				return nil, fmt.Errorf("ingest: %s: time-dependent variable %q: %w", key, vd.InputName(), err)
			}
			v = reindex(rv, srcTimes, index)
		} else {
			v = rv.Copy()
		}
		if len(vd.Dims) == len(v.Dims) {
			copy(v.Dims, vd.Dims)
		}
		for k, a := range vd.Attrs {
			v.Attrs[k] = a
		}
		if def.IsCoord(vd.Name) {
			err = o.SetCoord(vd.Name, v)
		} else {
			err = o.Set(vd.Name, v)
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: %s: %w", key, err)
		}
	}
	return o, nil
}

func find(raw dataset.Mapping, keys []string, name string) (string, *dataset.Dataset) {
	for _, k := range keys {
		if raw[k].Has(name) {
			return k, raw[k]
		}
	}
	return "", nil
}

// reindex places the rows of v, which are at srcTimes, at their
// positions along the merged time axis.
func reindex(v *dataset.Variable, srcTimes []float64, index map[float64]int) *dataset.Variable {
	shape := append([]int{len(index)}, v.Data.Shape[1:]...)
	rowLen := 1
	for _, n := range shape[1:] {
		rowLen *= n
	}
	data := sparse.ZerosDense(shape...)
	for i := range data.Elements {
		data.Elements[i] = math.NaN()
	}
	for i, t := range srcTimes {
		j, ok := index[t]
		if !ok || i >= v.Data.Shape[0] {
			continue
		}
		copy(data.Elements[j*rowLen:(j+1)*rowLen], v.Data.Elements[i*rowLen:(i+1)*rowLen])
	}
	o := dataset.NewVariable(v.Dims, data)
	for k, a := range v.Attrs {
		o.Attrs[k] = a
	}
	return o
}
