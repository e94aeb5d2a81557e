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

package buoy

import (
	"math"
	"sort"

	"github.com/ctessum/sparse"
	"gonum.org/v1/plot/plotter"
)

// speedGrid presents a time × depth array as a plotter.GridXYZ with time
// along x and depth along y.
type speedGrid struct {
	times, depths []float64
	data          *sparse.DenseArray
}

func (g speedGrid) Dims() (c, r int)   { return len(g.times), len(g.depths) }
func (g speedGrid) Z(c, r int) float64 { return g.data.Get(c, r) }
func (g speedGrid) X(c int) float64    { return g.times[c] }
func (g speedGrid) Y(r int) float64    { return g.depths[r] }

// finiteRange returns the smallest and largest finite values in vals.
// Both are NaN if there are none.
func finiteRange(vals []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min > max {
		return math.NaN(), math.NaN()
	}
	return min, max
}

// directionField holds unit vectors pointing along current directions
// on a reduced time × depth grid. It implements plotter.FieldXY.
type directionField struct {
	times, depths []float64
	u, v          [][]float64 // [time][depth]
}

func (f *directionField) Dims() (c, r int) { return len(f.times), len(f.depths) }
func (f *directionField) X(c int) float64  { return f.times[c] }
func (f *directionField) Y(r int) float64  { return f.depths[r] }
func (f *directionField) Vector(c, r int) plotter.XY {
	return plotter.XY{X: f.u[c][r], Y: f.v[c][r]}
}

// newDirectionField resamples direction (time × depth, compass degrees)
// to the nearest sample of each whole hour and to every second depth,
// drops the first hour and the first remaining depth, and converts the
// bearings to vectors. Missing directions become zero vectors.
func newDirectionField(times, depths []float64, direction *sparse.DenseArray) *directionField {
	hours, ti := nearestHourly(times)
	var di []int
	for i := 0; i < len(depths); i += 2 {
		di = append(di, i)
	}
	f := new(directionField)
	if len(ti) < 2 || len(di) < 2 {
		return f
	}
	hours, ti, di = hours[1:], ti[1:], di[1:]

	f.times = hours
	for _, j := range di {
		f.depths = append(f.depths, depths[j])
	}
	f.u = make([][]float64, len(ti))
	f.v = make([][]float64, len(ti))
	for c, i := range ti {
		f.u[c] = make([]float64, len(di))
		f.v[c] = make([]float64, len(di))
		for r, j := range di {
			f.u[c][r], f.v[c][r] = bearingVector(direction.Get(i, j))
		}
	}
	return f
}

// empty reports whether the field has nothing to draw.
func (f *directionField) empty() bool {
	if len(f.times) < 2 || len(f.depths) < 2 {
		return true
	}
	for c := range f.u {
		for r := range f.u[c] {
			if f.u[c][r] != 0 || f.v[c][r] != 0 {
				return false
			}
		}
	}
	return true
}

// bearingVector returns the arrow components for a compass bearing in
// degrees.
func bearingVector(deg float64) (u, v float64) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, 0
	}
	theta := (deg + 90) * math.Pi / 180
	return math.Cos(-theta), math.Sin(-theta)
}

// nearestHourly returns every whole hour from the hour containing the
// first time through the last time, with the index of the sample in
// times nearest to each. times must be sorted.
func nearestHourly(times []float64) (hours []float64, index []int) {
	if len(times) == 0 {
		return nil, nil
	}
	const hour = 3600.
	last := times[len(times)-1]
	for t := math.Floor(times[0]/hour) * hour; t <= last; t += hour {
		i := sort.SearchFloat64s(times, t)
		switch {
		case i == len(times):
			i--
		case i > 0 && t-times[i-1] <= times[i]-t:
			i--
		}
		hours = append(hours, t)
		index = append(index, i)
	}
	return hours, index
}
