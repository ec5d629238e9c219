// Package conf loads run options. The four legacy scripts differed only in
// these values; they are one configuration object now, with defaults
// overridable through an optional config file, DSMSHED_* environment
// variables, and command-line flags.
package conf

import (
	"errors"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options configures a single viewshed run.
type Options struct {
	EquipmentHeightFt float64 `mapstructure:"equipment_height_ft"`
	MaxDistanceFt     float64 `mapstructure:"max_distance_ft"`
	Curvature         float64 `mapstructure:"curvature"`
	EmitRangeCircle   bool    `mapstructure:"emit_range_circle"`
	EmitCentroid      bool    `mapstructure:"emit_centroid"`
	Tool              string  `mapstructure:"tool"`
	MaskPNG           string  `mapstructure:"mask_png"`
	LogLevel          string  `mapstructure:"log_level"`
}

// flagKeys maps viper keys to the flags that override them.
var flagKeys = map[string]string{
	"curvature":         "curvature",
	"emit_range_circle": "range-circle",
	"emit_centroid":     "centroid",
	"tool":              "tool",
	"mask_png":          "mask-png",
	"log_level":         "log-level",
}

// Load resolves options from defaults, dsmshed.yaml (if present),
// environment, and flags, in that order of precedence.
func Load(flags *pflag.FlagSet) (*Options, error) {
	v := viper.New()

	v.SetDefault("equipment_height_ft", 0.0)
	v.SetDefault("max_distance_ft", 0.0)
	v.SetDefault("curvature", 0.0)
	v.SetDefault("emit_range_circle", false)
	v.SetDefault("emit_centroid", false)
	v.SetDefault("tool", "gdal_viewshed")
	v.SetDefault("mask_png", "")
	v.SetDefault("log_level", "info")

	v.SetConfigName("dsmshed")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	v.SetEnvPrefix("DSMSHED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var opt Options
	if err := v.Unmarshal(&opt); err != nil {
		return nil, err
	}
	return &opt, nil
}

// Validate rejects option combinations no variant ever supported.
func (o *Options) Validate() error {
	if o.EquipmentHeightFt < 0 {
		return errors.New("equipment height must not be negative")
	}
	if o.MaxDistanceFt < 0 {
		return errors.New("max distance must not be negative")
	}
	if o.Curvature < 0 {
		return errors.New("curvature coefficient must not be negative")
	}
	if o.EmitRangeCircle && o.MaxDistanceFt <= 0 {
		return errors.New("range circle requires a max distance")
	}
	if o.Tool == "" {
		return errors.New("viewshed tool name must not be empty")
	}
	return nil
}
