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
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

func testDataset(t *testing.T) *Dataset {
	d := New()
	if err := d.SetCoord(TimeDim, NewVector(TimeDim, []float64{0, 60, 120})); err != nil {
		t.Fatal(err)
	}
	if err := d.Set("a", NewVector(TimeDim, []float64{1, 2, 3})); err != nil {
		t.Fatal(err)
	}
	if err := d.Set("b", NewVector(TimeDim, []float64{4, 5, 6})); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRenameVars(t *testing.T) {
	d := testDataset(t)

	t.Run("rename", func(t *testing.T) {
		o, err := d.RenameVars(map[string]string{"a": "c", TimeDim: "t"})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"b", "c", "t"}
		if !reflect.DeepEqual(o.Names(), want) {
			t.Errorf("names: %v != %v", o.Names(), want)
		}
		if !o.IsCoord("t") {
			t.Error("renamed coordinate lost its coordinate status")
		}
		av, _ := d.Var("a")
		cv, _ := o.Var("c")
		if av != cv {
			t.Error("renamed variable should hold the original data")
		}
		if !d.Has("a") {
			t.Error("original dataset was modified")
		}
	})
	t.Run("swap", func(t *testing.T) {
		o, err := d.RenameVars(map[string]string{"a": "b", "b": "a"})
		if err != nil {
			t.Fatal(err)
		}
		a, _ := o.Float64s("a")
		if !reflect.DeepEqual(a, []float64{4, 5, 6}) {
			t.Errorf("a = %v", a)
		}
	})
	t.Run("missing", func(t *testing.T) {
		_, err := d.RenameVars(map[string]string{"x": "y"})
		var mv *MissingVariableError
		if !errors.As(err, &mv) {
			t.Fatalf("expected a missing variable error, got %v", err)
		}
		if mv.Name != "x" {
			t.Errorf("missing name = %q", mv.Name)
		}
	})
	t.Run("collision", func(t *testing.T) {
		if _, err := d.RenameVars(map[string]string{"a": "b"}); err == nil {
			t.Error("expected an error renaming onto an existing variable")
		}
	})
}

func TestSetDimensionMismatch(t *testing.T) {
	d := testDataset(t)
	if err := d.Set("short", NewVector(TimeDim, []float64{1, 2})); err == nil {
		t.Fatal("expected an error for a mismatched dimension length")
	}
	if d.Has("short") {
		t.Error("rejected variable was stored")
	}
	// Replacing a variable with one of the same shape is fine.
	if err := d.Set("a", NewVector(TimeDim, []float64{7, 8, 9})); err != nil {
		t.Fatal(err)
	}
	if dims := d.Dims(); dims[TimeDim] != 3 {
		t.Errorf("time length = %d", dims[TimeDim])
	}
}

func TestSetCoords(t *testing.T) {
	d := testDataset(t)
	if err := d.SetCoords("a"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Coords(), []string{"a", TimeDim}) {
		t.Errorf("coords = %v", d.Coords())
	}
	var mv *MissingVariableError
	if err := d.SetCoords("nope"); !errors.As(err, &mv) {
		t.Errorf("expected a missing variable error, got %v", err)
	}
}

func TestCopy(t *testing.T) {
	d := testDataset(t)
	d.Attrs["location_meaning"] = "Morro Bay"
	o := d.Copy()
	o.Delete("a")
	o.Attrs["location_meaning"] = "Humboldt"
	if !d.Has("a") || d.Attrs["location_meaning"] != "Morro Bay" {
		t.Error("copy is not independent of the original")
	}

	v, _ := d.Var("b")
	vc := v.Copy()
	vc.Data.Elements[0] = 100
	if v.Data.Elements[0] != 4 {
		t.Error("variable copy shares data with the original")
	}
}

func TestVariableLen(t *testing.T) {
	v := NewVariable([]string{TimeDim, "depth"}, sparse.ZerosDense(5, 0))
	if n := v.Len("depth"); n != 0 {
		t.Errorf("depth length = %d", n)
	}
	if n := v.Len("x"); n != -1 {
		t.Errorf("x length = %d", n)
	}
}

func TestTimes(t *testing.T) {
	d := testDataset(t)
	times, err := d.Times()
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(1970, 1, 1, 0, 2, 0, 0, time.UTC)
	if !times[2].Equal(want) {
		t.Errorf("%v != %v", times[2], want)
	}
	ts := time.Date(2020, 12, 1, 4, 30, 0, 500000000, time.UTC)
	if got := ToTime(Seconds(ts)); !got.Equal(ts) {
		t.Errorf("round trip: %v != %v", got, ts)
	}
}

func TestMappingKeys(t *testing.T) {
	m := Mapping{"b.gill.csv": New(), "a.currents.csv": New()}
	if !reflect.DeepEqual(m.Keys(), []string{"a.currents.csv", "b.gill.csv"}) {
		t.Errorf("keys = %v", m.Keys())
	}
}
