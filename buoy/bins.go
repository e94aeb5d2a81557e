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
	"fmt"

	"github.com/tsdat/ingest-template-aws/dataset"
)

// Bin is one depth level of a current profiler: a velocity column and a
// direction column.
type Bin struct {
	Index     int     // 0-based bin number
	Depth     float64 // m
	Velocity  string  // name of the velocity magnitude column
	Direction string  // name of the velocity direction column
}

// BinDepth returns the depth of bin i. Bins are 4 m apart, starting 4 m
// below the surface.
func BinDepth(i int) float64 { return 4 * float64(i+1) }

func velocityColumn(i int) string  { return fmt.Sprintf("Vel%d (mm/s)", i+1) }
func directionColumn(i int) string { return fmt.Sprintf("Dir%d (deg)", i+1) }

// BinScanner retrieves the bins of a current profiler dataset one at a
// time, in order, stopping at the first bin that lacks either its
// velocity or its direction column. Bins after a gap are never
// returned.
type BinScanner struct {
	d   *dataset.Dataset
	pos int
	bin Bin
}

// NewBinScanner creates a new scanner over the bins of d.
func NewBinScanner(d *dataset.Dataset) *BinScanner {
	return &BinScanner{d: d}
}

// Scan advances to the next bin. It returns false when there are no
// more bins.
func (s *BinScanner) Scan() bool {
	if s.d == nil {
		return false
	}
	vel, dir := velocityColumn(s.pos), directionColumn(s.pos)
	if !s.d.Has(vel) || !s.d.Has(dir) {
		s.d = nil
		return false
	}
	s.bin = Bin{
		Index:     s.pos,
		Depth:     BinDepth(s.pos),
		Velocity:  vel,
		Direction: dir,
	}
	s.pos++
	return true
}

// Bin returns the bin found by the last call to Scan.
func (s *BinScanner) Bin() Bin { return s.bin }

// Bins returns all bins of d.
func Bins(d *dataset.Dataset) []Bin {
	var bins []Bin
	s := NewBinScanner(d)
	for s.Scan() {
		bins = append(bins, s.Bin())
	}
	return bins
}
