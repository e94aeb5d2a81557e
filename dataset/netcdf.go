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

package dataset

import (
	"fmt"
	"os"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// ReadNetCDF reads every numeric variable in the NetCDF (classic or
// HDF5-based) file at path. Variables that are indexed only by a
// dimension of their own name are marked as coordinates.
func ReadNetCDF(path string) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", path, err)
	}
	defer nc.Close()

	d := New()
	copyAttributes(d.Attrs, nc.Attributes())
	for _, name := range nc.ListVariables() {
		v, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading variable %s from %s: %w", name, path, err)
		}
		if len(v.Dimensions) == 0 {
			continue
		}
		data, ok := flatten(v.Values)
		if !ok {
			continue // strings and other non-numeric data
		}
		if len(data.Shape) != len(v.Dimensions) {
			return nil, fmt.Errorf("dataset: variable %s in %s has %d dimensions but %d-dimensional data",
				name, path, len(v.Dimensions), len(data.Shape))
		}
		vv := NewVariable(v.Dimensions, data)
		copyAttributes(vv.Attrs, v.Attributes)
		if err := d.Set(name, vv); err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		if len(v.Dimensions) == 1 && v.Dimensions[0] == name {
			d.coords[name] = true
		}
	}
	return d, nil
}

func copyAttributes(dst map[string]string, src api.AttributeMap) {
	if src == nil {
		return
	}
	for _, k := range src.Keys() {
		val, ok := src.Get(k)
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			dst[k] = v
		default:
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Slice && rv.Len() == 1 {
				dst[k] = fmt.Sprint(rv.Index(0).Interface())
			} else {
				dst[k] = fmt.Sprint(v)
			}
		}
	}
}

// flatten converts the possibly nested slices returned by the NetCDF
// reader into a dense array. It returns false for non-numeric values.
func flatten(values interface{}) (*sparse.DenseArray, bool) {
	rv := reflect.ValueOf(values)
	var shape []int
	for t := rv; ; {
		if t.Kind() != reflect.Slice {
			break
		}
		shape = append(shape, t.Len())
		if t.Len() == 0 {
			break
		}
		t = t.Index(0)
	}
	if len(shape) == 0 {
		return nil, false
	}
	a := sparse.ZerosDense(shape...)
	i := 0
	var walk func(v reflect.Value) bool
	walk = func(v reflect.Value) bool {
		if v.Kind() == reflect.Slice {
			for j := 0; j < v.Len(); j++ {
				if !walk(v.Index(j)) {
					return false
				}
			}
			return true
		}
		f, ok := toFloat(v)
		if !ok || i >= len(a.Elements) {
			return false
		}
		a.Elements[i] = f
		i++
		return true
	}
	if !walk(rv) || i != len(a.Elements) {
		return nil, false
	}
	return a, true
}

func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	}
	return 0, false
}

// WriteNetCDF writes d to w in NetCDF classic format. Variables along a
// zero-length dimension are left out because the classic format
// reserves length zero for the record dimension.
func WriteNetCDF(w *os.File, d *Dataset) error {
	dimLens := d.Dims()
	var dimNames []string
	var lengths []int
	for _, name := range d.Names() {
		for _, dim := range d.vars[name].Dims {
			if n := dimLens[dim]; n > 0 && !contains(dimNames, dim) {
				dimNames = append(dimNames, dim)
				lengths = append(lengths, n)
			}
		}
	}

	h := cdf.NewHeader(dimNames, lengths)
	for k, v := range d.Attrs {
		h.AddAttribute("", k, v)
	}

	var names []string
	for _, name := range d.Names() {
		v := d.vars[name]
		if len(v.Dims) == 0 || len(v.Data.Elements) == 0 {
			continue
		}
		names = append(names, name)
		h.AddVariable(name, v.Dims, []float64{0})
		for k, a := range v.Attrs {
			h.AddAttribute(name, k, a)
		}
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("dataset: creating netcdf file: %w", err)
	}
	for _, name := range names {
		end := f.Header.Lengths(name)
		start := make([]int, len(end))
		wr := f.Writer(name, start, end)
		if _, err := wr.Write(d.vars[name].Data.Elements); err != nil {
			return fmt.Errorf("dataset: writing variable %s to netcdf file: %w", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
