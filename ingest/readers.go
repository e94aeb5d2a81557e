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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx"
	"github.com/tsdat/ingest-template-aws/dataset"
)

// ReadRaw parses the raw file at path into a dataset. The reader is
// chosen by file extension: .csv, .xlsx or .nc. Rows of tabular files
// become the time dimension and the time column, named by the input
// name of the time variable in def, is converted to seconds since the
// Unix epoch.
func ReadRaw(path string, def *Definition) (*dataset.Dataset, error) {
	timeDef, err := def.GetVariable("time")
	if err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ingest: opening raw file: %w", err)
		}
		defer f.Close()
		d, err := readCSV(f, timeDef)
		if err != nil {
			return nil, fmt.Errorf("ingest: reading %s: %w", path, err)
		}
		return d, nil
	case ".xlsx":
		d, err := readXLSX(path, timeDef)
		if err != nil {
			return nil, fmt.Errorf("ingest: reading %s: %w", path, err)
		}
		return d, nil
	case ".nc", ".cdf":
		return dataset.ReadNetCDF(path)
	default:
		return nil, fmt.Errorf("ingest: unsupported raw file type %q for %s", ext, path)
	}
}

func readCSV(r io.Reader, timeDef *VariableDefinition) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	return fromTable(records[0], records[1:], timeDef, nil)
}

func readXLSX(path string, timeDef *VariableDefinition) (*dataset.Dataset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	var table [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		r := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			if c != nil {
				r[i] = c.Value
			}
		}
		table = append(table, r)
	}
	excelTime := func(v float64) time.Time { return xlsx.TimeFromExcelTime(v, f.Date1904) }
	return fromTable(table[0], table[1:], timeDef, excelTime)
}

// fromTable builds a raw dataset from a header row and data rows.
// excelTime, if not nil, converts numeric time cells.
func fromTable(header []string, rows [][]string, timeDef *VariableDefinition, excelTime func(float64) time.Time) (*dataset.Dataset, error) {
	timeName := timeDef.InputName()
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	iTime := -1
	for i, h := range header {
		if h == timeName {
			iTime = i
		}
	}
	if iTime < 0 {
		return nil, &dataset.MissingVariableError{Name: timeName}
	}

	// Skip trailing blank rows.
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}

	cols := make([][]float64, len(header))
	for i := range cols {
		cols[i] = make([]float64, len(rows))
	}
	for j, row := range rows {
		for i := range header {
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if i == iTime {
				t, err := parseTime(cell, timeDef.TimeFormat(), excelTime)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", j+2, err)
				}
				cols[i][j] = dataset.Seconds(t)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = math.NaN()
			}
			cols[i][j] = v
		}
	}

	d := dataset.New()
	for i, h := range header {
		if h == "" {
			continue
		}
		if d.Has(h) {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		if err := d.Set(h, dataset.NewVector(dataset.TimeDim, cols[i])); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func parseTime(s, layout string, excelTime func(float64) time.Time) (time.Time, error) {
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err == nil {
		return t, nil
	}
	if excelTime != nil {
		if v, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return excelTime(v).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
