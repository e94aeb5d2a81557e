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

// Package ingest is a small ingest framework: it reads raw instrument
// files, lets hooks customize the raw datasets, merges them into one
// standardized dataset as described by a dataset definition, lets hooks
// render plots, and hands every output file to a storage sink.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultTimeFormat is the layout used to parse raw time stamps when
// the definition of the time variable doesn't specify one.
const DefaultTimeFormat = "2006-01-02 15:04:05"

// InputDefinition describes where a variable comes from in the raw data.
type InputDefinition struct {
	// Name is the name of the variable (or column) in the raw data.
	Name string `yaml:"name" toml:"name"`

	// Format is the time layout (in Go reference time form) of raw time
	// stamps. It is only used for the time variable.
	Format string `yaml:"format,omitempty" toml:"format"`
}

// VariableDefinition describes one variable of the standardized dataset.
type VariableDefinition struct {
	// Name is the canonical name of the variable. It is filled in
	// from the key the variable is listed under.
	Name string `yaml:"-" toml:"-"`

	Input *InputDefinition  `yaml:"input,omitempty" toml:"input"`
	Dims  []string          `yaml:"dims,omitempty" toml:"dims"`
	Attrs map[string]string `yaml:"attrs,omitempty" toml:"attrs"`
}

// InputName returns the raw name of the variable, which is the
// canonical name unless an input name is specified.
func (v *VariableDefinition) InputName() string {
	if v.Input != nil && v.Input.Name != "" {
		return v.Input.Name
	}
	return v.Name
}

// TimeFormat returns the layout used to parse raw values of v.
func (v *VariableDefinition) TimeFormat() string {
	if v.Input != nil && v.Input.Format != "" {
		return v.Input.Format
	}
	return DefaultTimeFormat
}

// Definition specifies the structure of the standardized dataset.
type Definition struct {
	Attributes  map[string]string              `yaml:"attributes" toml:"attributes"`
	Coordinates map[string]*VariableDefinition `yaml:"coordinates" toml:"coordinates"`
	DataVars    map[string]*VariableDefinition `yaml:"data_vars" toml:"data_vars"`
}

// LoadDefinition reads a dataset definition from a YAML (.yaml, .yml)
// or TOML (.toml) file.
func LoadDefinition(path string) (*Definition, error) {
	d := new(Definition)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ingest: reading dataset definition: %w", err)
		}
		if err := yaml.Unmarshal(b, d); err != nil {
			return nil, fmt.Errorf("ingest: parsing dataset definition %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, d); err != nil {
			return nil, fmt.Errorf("ingest: parsing dataset definition %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("ingest: unsupported dataset definition format %q", ext)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("ingest: dataset definition %s: %w", path, err)
	}
	return d, nil
}

// Validate fills in variable names and default dimensions and checks
// that the definition is usable. LoadDefinition calls it; definitions
// built in code need to call it themselves.
func (d *Definition) Validate() error {
	if d.Attributes == nil {
		d.Attributes = make(map[string]string)
	}
	if d.Attributes["datastream_name"] == "" {
		return fmt.Errorf("the datastream_name attribute is required")
	}
	if _, ok := d.Coordinates["time"]; !ok {
		return fmt.Errorf("a time coordinate is required")
	}
	for _, vars := range []map[string]*VariableDefinition{d.Coordinates, d.DataVars} {
		for name, v := range vars {
			if v == nil {
				v = new(VariableDefinition)
				vars[name] = v
			}
			v.Name = name
			if len(v.Dims) == 0 {
				v.Dims = []string{"time"}
			}
		}
	}
	for name := range d.DataVars {
		if _, ok := d.Coordinates[name]; ok {
			return fmt.Errorf("variable %q is both a coordinate and a data variable", name)
		}
	}
	return nil
}

// GetVariable returns the definition of the named variable.
func (d *Definition) GetVariable(name string) (*VariableDefinition, error) {
	if v, ok := d.Coordinates[name]; ok {
		return v, nil
	}
	if v, ok := d.DataVars[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("ingest: variable %q is not in the dataset definition", name)
}

// IsCoord returns whether name is defined as a coordinate.
func (d *Definition) IsCoord(name string) bool {
	_, ok := d.Coordinates[name]
	return ok
}

// Variables returns all variable definitions, coordinates first,
// each group sorted by name.
func (d *Definition) Variables() []*VariableDefinition {
	var o []*VariableDefinition
	for _, vars := range []map[string]*VariableDefinition{d.Coordinates, d.DataVars} {
		names := make([]string, 0, len(vars))
		for n := range vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			o = append(o, vars[n])
		}
	}
	return o
}
