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

package ingestutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// Config holds the settings of one ingest run.
type Config struct {
	// Definition is the path to the dataset definition.
	Definition string

	// Inputs are the raw files to ingest.
	Inputs []string

	// Storage is the location the outputs are saved to.
	Storage string

	// TempDir is the parent of the temporary directory. Empty means
	// the system default.
	TempDir string

	// Plots is whether to make the diagnostic plots, at resolution DPI.
	Plots bool
	DPI   int

	// Attributes are added to the global attributes of the definition.
	Attributes map[string]string
}

// ConfigFromViper reads the run settings from cfg. args are added to
// the configured inputs. Environment variables in paths are expanded.
func ConfigFromViper(cfg *viper.Viper, args []string) (*Config, error) {
	attrs, err := getStringMapString("Attributes", cfg)
	if err != nil {
		return nil, err
	}
	inputs := append(expandStringSlice(cfg.GetStringSlice("Inputs")), expandStringSlice(args)...)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("buoyingest: no input files were specified")
	}
	c := &Config{
		Definition: os.ExpandEnv(cfg.GetString("Definition")),
		Inputs:     inputs,
		Storage:    os.ExpandEnv(cfg.GetString("Storage")),
		TempDir:    os.ExpandEnv(cfg.GetString("TempDir")),
		Plots:      cfg.GetBool("Plots"),
		DPI:        cfg.GetInt("DPI"),
		Attributes: attrs,
	}
	if c.Definition == "" {
		return nil, fmt.Errorf("buoyingest: the dataset definition must be specified")
	}
	if c.Plots && c.DPI <= 0 {
		return nil, fmt.Errorf("buoyingest: invalid plot DPI %d", c.DPI)
	}
	return c, nil
}

// expandStringSlice replaces environment variables in each element of s.
func expandStringSlice(s []string) []string {
	o := make([]string, 0, len(s))
	for _, v := range s {
		if v == "" {
			continue
		}
		o = append(o, os.ExpandEnv(v))
	}
	return o
}

// getStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func getStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return make(map[string]string), nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if v == "" {
			return o, nil
		}
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, fmt.Errorf("buoyingest: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("buoyingest: invalid type for %s: %#v", varName, i)
	}
}
