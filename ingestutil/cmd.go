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

// Package ingestutil provides the command-line interface and the
// configuration handling of the buoy ingest.
package ingestutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is the version of the buoy ingest.
const Version = "0.3.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to buoyingest.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum severity of log messages:
              one of panic, fatal, error, warn, info, debug or trace.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Definition",
			usage: `
              Definition specifies the path to the dataset definition, a
              YAML or TOML file listing the attributes, coordinates and
              data variables of the standardized dataset and the raw names
              they are read from. It can contain environment variables.`,
			shorthand:  "d",
			defaultVal: "config/pipeline.yaml",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), inspectCmd.Flags()},
		},
		{
			name: "Inputs",
			usage: `
              Inputs specifies the raw files to ingest. Each can be a local
              path, an http(s) URL or a blob location (gs://, s3:// or file://)
              and can contain environment variables. Files given as arguments
              are added to these.`,
			shorthand:  "i",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), inspectCmd.Flags()},
		},
		{
			name: "Storage",
			usage: `
              Storage specifies where the standardized dataset and the plots
              are saved, in the format provider://bucket/prefix. Providers are
              file, gs, s3 and mem.`,
			shorthand:  "o",
			defaultVal: "file://storage/root",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TempDir",
			usage: `
              TempDir specifies the directory that scoped temporary files and
              downloaded inputs are placed in. If empty, the system temporary
              directory is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), inspectCmd.Flags()},
		},
		{
			name: "Plots",
			usage: `
              Plots specifies whether the diagnostic plots are made.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "DPI",
			usage: `
              DPI specifies the resolution of the diagnostic plots.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Attributes",
			usage: `
              Attributes specifies global attributes to add to (or replace in)
              the standardized dataset, in addition to the ones in the dataset
              definition. When given as a command-line argument it is a JSON
              object, e.g. '{"institution":"PNNL"}'.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("BUOY")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := b.String()
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(inspectCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("buoyingest: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("buoyingest: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "buoyingest",
	Short: "Ingest buoy met and ocean data.",
	Long: `buoyingest reads raw files from the instruments of a buoy, reconciles
and merges them into one standardized dataset, saves diagnostic plots of it
and saves the dataset as NetCDF.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'BUOY_var' where 'var' is the
name of the variable to be set. Paths are allowed to contain environment variables.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of buoyingest.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("buoyingest v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

// runCmd ingests a set of raw files.
var runCmd = &cobra.Command{
	Use:   "run [input files]",
	Short: "Run the ingest.",
	Long: `run reads the raw input files, reconciles and merges them according to
the dataset definition, saves the diagnostic plots and saves the standardized
dataset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ConfigFromViper(Cfg, args)
		if err != nil {
			return err
		}
		d, err := Run(context.Background(), c, logrus.StandardLogger())
		if err != nil {
			return err
		}
		cmd.Printf("ingested %d variables at %d times\n", len(d.Names()), d.Dims()["time"])
		return nil
	},
	DisableAutoGenTag: true,
}

// inspectCmd prints the reconciled raw datasets.
var inspectCmd = &cobra.Command{
	Use:   "inspect [input files]",
	Short: "Print a summary of the reconciled raw datasets.",
	Long: `inspect reads and reconciles the raw input files, as run does before
merging them, and prints the dimensions and variables of each.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ConfigFromViper(Cfg, args)
		if err != nil {
			return err
		}
		return Inspect(context.Background(), c, cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}
