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
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/tsdat/ingest-template-aws/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestNearestHourly(t *testing.T) {
	times := []float64{
		start + 600,  // 00:10
		start + 2400, // 00:40
		start + 4000, // 01:06:40
		start + 9000, // 02:30
	}
	hours, index := nearestHourly(times)
	wantHours := []float64{start, start + 3600, start + 7200}
	if !floats.Equal(hours, wantHours) {
		t.Errorf("hours = %v; want %v", hours, wantHours)
	}
	if want := []int{0, 2, 3}; !reflect.DeepEqual(index, want) {
		t.Errorf("index = %v; want %v", index, want)
	}
	if h, i := nearestHourly(nil); h != nil || i != nil {
		t.Errorf("nearestHourly(nil) = %v, %v", h, i)
	}
}

func TestDirectionField(t *testing.T) {
	// Half-hourly from 00:00 to 03:00 at six depths.
	times := make([]float64, 7)
	for i := range times {
		times[i] = start + 1800*float64(i)
	}
	depths := []float64{4, 8, 12, 16, 20, 24}
	direction := sparse.ZerosDense(len(times), len(depths))
	for i := range times {
		for j := range depths {
			direction.Set(90, i, j)
		}
	}
	f := newDirectionField(times, depths, direction)
	c, r := f.Dims()
	if c != 3 || r != 2 {
		t.Fatalf("dims = (%d, %d); want (3, 2)", c, r)
	}
	if want := []float64{start + 3600, start + 7200, start + 10800}; !floats.Equal(f.times, want) {
		t.Errorf("times = %v; want %v", f.times, want)
	}
	if want := []float64{12, 20}; !floats.Equal(f.depths, want) {
		t.Errorf("depths = %v; want %v", f.depths, want)
	}
	v := f.Vector(1, 1)
	if !scalar.EqualWithinAbs(v.X, -1, 1e-12) || !scalar.EqualWithinAbs(v.Y, 0, 1e-12) {
		t.Errorf("vector = %+v; want (-1, 0)", v)
	}
	if f.empty() {
		t.Error("field reported empty")
	}

	short := newDirectionField(times[:2], depths, direction)
	if !short.empty() {
		t.Error("a field spanning one hour should be empty")
	}
}

func TestHourTicks(t *testing.T) {
	ticks := timeTicks.Ticks(start, start+35*3600)
	var labels []string
	for _, tk := range ticks {
		labels = append(labels, tk.Label)
	}
	want := []string{"04-00", "08-00", "12-00", "16-00", "20-00", "04-00", "08-00"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %v; want %v", labels, want)
	}
	if got := dataset.ToTime(ticks[5].Value).Format("2006-01-02 15:04"); got != "2020-12-02 04:00" {
		t.Errorf("sixth tick at %s", got)
	}
}
