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

// Package dataset holds labeled, multi-dimensional sensor data: named
// variables over named dimensions, some of which are marked as coordinates.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ctessum/sparse"
)

// TimeDim is the dimension that the rows of a raw file are indexed along.
const TimeDim = "time"

// MissingVariableError is returned when a dataset is asked for a variable
// that it doesn't hold.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("dataset: variable %q does not exist", e.Name)
}

// Variable is an array together with the names of its dimensions
// and any descriptive attributes.
type Variable struct {
	Dims  []string
	Attrs map[string]string
	Data  *sparse.DenseArray
}

// NewVariable returns a variable holding data along dims.
// It panics if the number of dimensions doesn't match the shape
// of data.
func NewVariable(dims []string, data *sparse.DenseArray) *Variable {
	if len(dims) != len(data.Shape) {
		panic(fmt.Errorf("dataset: %d dimension names for a %d-dimensional array", len(dims), len(data.Shape)))
	}
	return &Variable{
		Dims:  append([]string(nil), dims...),
		Attrs: make(map[string]string),
		Data:  data,
	}
}

// NewVector returns a one-dimensional variable along dim holding vals.
func NewVector(dim string, vals []float64) *Variable {
	a := sparse.ZerosDense(len(vals))
	copy(a.Elements, vals)
	return NewVariable([]string{dim}, a)
}

// Len returns the length of v along dimension dim, or -1 if v
// doesn't have that dimension.
func (v *Variable) Len(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return v.Data.Shape[i]
		}
	}
	return -1
}

// Copy returns a deep copy of v.
func (v *Variable) Copy() *Variable {
	o := &Variable{
		Dims:  append([]string(nil), v.Dims...),
		Attrs: make(map[string]string, len(v.Attrs)),
		Data:  sparse.ZerosDense(append([]int(nil), v.Data.Shape...)...),
	}
	copy(o.Data.Elements, v.Data.Elements)
	for k, a := range v.Attrs {
		o.Attrs[k] = a
	}
	return o
}

// Dataset is a collection of variables keyed by name.
type Dataset struct {
	// Attrs are the global attributes.
	Attrs map[string]string

	vars   map[string]*Variable
	coords map[string]bool
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		Attrs:  make(map[string]string),
		vars:   make(map[string]*Variable),
		coords: make(map[string]bool),
	}
}

// Copy returns a copy of d that can be restructured (variables added,
// removed or renamed) without affecting d. Variables are shared
// with d, not copied.
func (d *Dataset) Copy() *Dataset {
	o := New()
	for k, v := range d.Attrs {
		o.Attrs[k] = v
	}
	for k, v := range d.vars {
		o.vars[k] = v
	}
	for k := range d.coords {
		o.coords[k] = true
	}
	return o
}

// Has returns whether d holds a variable called name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.vars[name]
	return ok
}

// Var returns the named variable or a *MissingVariableError.
func (d *Dataset) Var(name string) (*Variable, error) {
	v, ok := d.vars[name]
	if !ok {
		return nil, &MissingVariableError{Name: name}
	}
	return v, nil
}

// IsCoord returns whether name is a coordinate variable of d.
func (d *Dataset) IsCoord(name string) bool { return d.coords[name] }

// Names returns the names of all variables in d in sorted order.
func (d *Dataset) Names() []string {
	names := make([]string, 0, len(d.vars))
	for n := range d.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Coords returns the names of the coordinate variables in sorted order.
func (d *Dataset) Coords() []string {
	var names []string
	for n := range d.coords {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dims returns the length of every dimension used by the variables in d.
func (d *Dataset) Dims() map[string]int {
	o := make(map[string]int)
	for _, v := range d.vars {
		for i, dim := range v.Dims {
			o[dim] = v.Data.Shape[i]
		}
	}
	return o
}

// Set adds v to d under name, replacing any existing variable
// with that name. The dimensions of v must agree in length with
// dimensions of the same name already present in d.
func (d *Dataset) Set(name string, v *Variable) error {
	existing := d.vars[name]
	delete(d.vars, name)
	dims := d.Dims()
	for i, dim := range v.Dims {
		if n, ok := dims[dim]; ok && n != v.Data.Shape[i] {
			if existing != nil {
				d.vars[name] = existing
			}
			return fmt.Errorf("dataset: variable %q has length %d along dimension %q but the dataset has length %d",
				name, v.Data.Shape[i], dim, n)
		}
	}
	d.vars[name] = v
	return nil
}

// SetCoord adds v to d and marks it as a coordinate.
func (d *Dataset) SetCoord(name string, v *Variable) error {
	if err := d.Set(name, v); err != nil {
		return err
	}
	d.coords[name] = true
	return nil
}

// SetCoords marks existing variables as coordinates.
func (d *Dataset) SetCoords(names ...string) error {
	for _, n := range names {
		if !d.Has(n) {
			return &MissingVariableError{Name: n}
		}
	}
	for _, n := range names {
		d.coords[n] = true
	}
	return nil
}

// Delete removes the named variable from d, if present.
func (d *Dataset) Delete(name string) {
	delete(d.vars, name)
	delete(d.coords, name)
}

// RenameVars returns a copy of d where each variable named by a key
// of names has been renamed to the corresponding value. d is
// not modified. Every key must name an existing variable, and no value
// may collide with a variable that isn't itself being renamed.
func (d *Dataset) RenameVars(names map[string]string) (*Dataset, error) {
	o := d.Copy()
	for from := range names {
		if !d.Has(from) {
			return nil, &MissingVariableError{Name: from}
		}
		o.Delete(from)
	}
	for from, to := range names {
		if o.Has(to) {
			return nil, fmt.Errorf("dataset: cannot rename %q to %q: variable %q already exists", from, to, to)
		}
		o.vars[to] = d.vars[from]
		if d.coords[from] {
			o.coords[to] = true
		}
	}
	return o, nil
}

// Float64s returns the values of a one-dimensional variable.
func (d *Dataset) Float64s(name string) ([]float64, error) {
	v, err := d.Var(name)
	if err != nil {
		return nil, err
	}
	if len(v.Dims) != 1 {
		return nil, fmt.Errorf("dataset: variable %q has %d dimensions; expected 1", name, len(v.Dims))
	}
	return v.Data.Elements, nil
}

// Times returns the time coordinate of d.
func (d *Dataset) Times() ([]time.Time, error) {
	vals, err := d.Float64s(TimeDim)
	if err != nil {
		return nil, err
	}
	o := make([]time.Time, len(vals))
	for i, v := range vals {
		o[i] = ToTime(v)
	}
	return o, nil
}

// Seconds converts t to the representation used for time
// variables: seconds since the Unix epoch.
func Seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// ToTime is the inverse of Seconds. The result is in UTC.
func ToTime(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

// Mapping holds the raw datasets of one pipeline run,
// keyed by input file identifier.
type Mapping map[string]*Dataset

// Keys returns the identifiers in m in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
