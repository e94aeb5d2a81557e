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
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lnashier/viper"
)

func TestGetStringMapString(t *testing.T) {
	for _, tt := range []struct {
		name string
		val  interface{}
		want map[string]string
	}{
		{name: "map", val: map[string]string{"a": "b"}, want: map[string]string{"a": "b"}},
		{name: "interface map", val: map[string]interface{}{"a": "b", "n": 1}, want: map[string]string{"a": "b", "n": "1"}},
		{name: "json", val: `{"institution":"PNNL"}`, want: map[string]string{"institution": "PNNL"}},
		{name: "empty", val: "", want: map[string]string{}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := viper.New()
			cfg.Set("Attributes", tt.val)
			got, err := getStringMapString("Attributes", cfg)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%v != %v", got, tt.want)
			}
		})
	}
	cfg := viper.New()
	cfg.Set("Attributes", "{not json")
	if _, err := getStringMapString("Attributes", cfg); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestConfigFromViper(t *testing.T) {
	os.Setenv("BUOY_TEST_DATA", "/data")
	defer os.Unsetenv("BUOY_TEST_DATA")

	cfg := viper.New()
	cfg.Set("Definition", "${BUOY_TEST_DATA}/pipeline.yaml")
	cfg.Set("Inputs", []string{"${BUOY_TEST_DATA}/a.csv", ""})
	cfg.Set("Storage", "s3://bucket/prefix")
	cfg.Set("Plots", true)
	cfg.Set("DPI", 72)
	cfg.Set("Attributes", map[string]interface{}{"institution": "PNNL"})

	c, err := ConfigFromViper(cfg, []string{"b.csv"})
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Definition: "/data/pipeline.yaml",
		Inputs:     []string{"/data/a.csv", "b.csv"},
		Storage:    "s3://bucket/prefix",
		Plots:      true,
		DPI:        72,
		Attributes: map[string]string{"institution": "PNNL"},
	}
	if !reflect.DeepEqual(c, want) {
		t.Errorf("%+v != %+v", c, want)
	}

	if _, err := ConfigFromViper(cfg, nil); err != nil {
		t.Errorf("configured inputs only: %v", err)
	}
	cfg.Set("Inputs", []string{})
	if _, err := ConfigFromViper(cfg, nil); err == nil {
		t.Error("expected an error with no inputs")
	}
	cfg.Set("DPI", 0)
	if _, err := ConfigFromViper(cfg, []string{"b.csv"}); err == nil {
		t.Error("expected an error for DPI 0")
	}
}

func TestVersionCommand(t *testing.T) {
	b := new(bytes.Buffer)
	Root.SetOut(b)
	Root.SetArgs([]string{"version"})
	defer Root.SetOut(nil)
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := b.String(); got != "buoyingest v"+Version+"\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir)
	storage := filepath.Join(dir, "storage")
	cfgFile := filepath.Join(dir, "config.toml")
	cfgText := strings.Join([]string{
		`Definition = "../config/pipeline.yaml"`,
		`Storage = "file://` + filepath.ToSlash(storage) + `"`,
		`TempDir = "` + filepath.ToSlash(dir) + `"`,
		`Plots = false`,
		`LogLevel = "warn"`,
		`[Attributes]`,
		`project = "test"`,
	}, "\n")
	if err := os.WriteFile(cfgFile, []byte(cfgText), 0o644); err != nil {
		t.Fatal(err)
	}

	b := new(bytes.Buffer)
	Root.SetOut(b)
	defer Root.SetOut(nil)
	Root.SetArgs(append([]string{"run", "--config=" + cfgFile}, inputs...))
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "at 24 times") {
		t.Errorf("output = %q", b.String())
	}
	if _, err := os.Stat(filepath.Join(storage, "morro.buoy_z05.b1", "morro.buoy_z05.b1.20201201.000000.nc")); err != nil {
		t.Error(err)
	}
	pngs, err := filepath.Glob(filepath.Join(storage, "morro.buoy_z05.b1", "*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pngs) != 0 {
		t.Errorf("plots were made with Plots = false: %v", pngs)
	}
}
