// Command dsmshed computes a line-of-sight viewshed from an observer point
// over a Digital Surface Model and writes a GeoJSON FeatureCollection to
// stdout. The ray casting is delegated to an external engine
// (gdal_viewshed by default); diagnostics go to stderr.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dsmtools/dsmshed/conf"
	"github.com/dsmtools/dsmshed/gdal"
	"github.com/dsmtools/dsmshed/latlon"
	"github.com/dsmtools/dsmshed/logging"
	"github.com/dsmtools/dsmshed/pipeline"
	"github.com/dsmtools/dsmshed/viewshed"
)

var rootCmd = &cobra.Command{
	Use:          "dsmshed <dsm> <lon> <lat> [equipment_height_ft [max_distance_ft]]",
	Short:        "compute an observer viewshed over a DSM and emit GeoJSON",
	Args:         cobra.RangeArgs(3, 5),
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.Flags()
	// flags come before the positionals so that negative longitudes
	// are not mistaken for flags
	f.SetInterspersed(false)
	f.Float64("curvature", 0, "curvature coefficient passed to the engine (0.75 approximates RF refraction)")
	f.Bool("range-circle", false, "emit the analysis-range circle feature (needs a max distance)")
	f.Bool("centroid", false, "emit vertex-mean centroid properties on visibility polygons")
	f.String("mask-png", "", "also write the visibility mask to this path as a 1-bit PNG")
	f.String("tool", "gdal_viewshed", "name or path of the external viewshed binary")
	f.String("log-level", "info", "stderr diagnostics level (debug, info, warn, error)")
}

func run(cmd *cobra.Command, args []string) error {
	opt, err := conf.Load(cmd.Flags())
	if err != nil {
		return &pipeline.Error{Kind: pipeline.KindInput, Op: "config", Err: err}
	}
	logging.Setup(opt.LogLevel)

	lon, err := parseFloat("longitude", args[1])
	if err != nil {
		return err
	}
	lat, err := parseFloat("latitude", args[2])
	if err != nil {
		return err
	}
	if len(args) > 3 {
		if opt.EquipmentHeightFt, err = parseFloat("equipment height", args[3]); err != nil {
			return err
		}
	}
	if len(args) > 4 {
		if opt.MaxDistanceFt, err = parseFloat("max distance", args[4]); err != nil {
			return err
		}
	}

	p := pipeline.New(gdal.Opener{}, viewshed.Run)
	fc, err := p.Execute(cmd.Context(), args[0], latlon.LL{Lon: lon, Lat: lat}, *opt)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(os.Stdout).Encode(fc); err != nil {
		return &pipeline.Error{Kind: pipeline.KindPost, Op: "write geojson", Err: err}
	}
	return nil
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &pipeline.Error{Kind: pipeline.KindInput, Op: name, Err: fmt.Errorf("not a number: %q", s)}
	}
	return v, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(pipeline.ExitCode(err))
	}
}
