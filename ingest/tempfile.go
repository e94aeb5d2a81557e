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
	"os"
	"path/filepath"
)

// TempFiles hands out temporary file paths inside one directory.
type TempFiles struct {
	Dir string
}

// NewTempFiles creates a new temporary directory inside parent
// (or the default temporary directory if parent is empty).
func NewTempFiles(parent string) (*TempFiles, error) {
	dir, err := os.MkdirTemp(parent, "buoyingest")
	if err != nil {
		return nil, fmt.Errorf("ingest: creating temporary directory: %w", err)
	}
	return &TempFiles{Dir: dir}, nil
}

// WithTempPath calls fn with a temporary path ending in the base name of
// filename. Whatever fn leaves at that path is removed before
// WithTempPath returns, whether or not fn succeeds.
func (t *TempFiles) WithTempPath(filename string, fn func(path string) error) (err error) {
	path := filepath.Join(t.Dir, filepath.Base(filename))
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) && err == nil {
			err = fmt.Errorf("ingest: removing temporary file: %w", rerr)
		}
	}()
	return fn(path)
}

// Close removes the temporary directory and anything left in it.
func (t *TempFiles) Close() error {
	return os.RemoveAll(t.Dir)
}
