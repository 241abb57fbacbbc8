// Command buildweights builds the demand-weight grid artifact consumed by
// the signal service. It places a Gaussian demand kernel at each region,
// scales it by the region's heating intensity, and normalizes the result to
// sum to one over the analysis grid.
//
// Usage:
//
//	go run ./cmd/buildweights \
//	  -regions config/regions.yaml \
//	  -out data/weights.json
//
// Omitting -regions uses the built-in CONUS state table.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/weatherdesk/degreeday/internal/demand"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	regionsPath := flag.String("regions", "", "region table YAML (default: built-in CONUS table)")
	out := flag.String("out", "", "output path for the weight grid artifact")
	resolution := flag.Float64("resolution", 0, "grid resolution in degrees (default from grid spec)")
	sigmaLat := flag.Float64("sigma-lat", 0, "latitudinal kernel width in degrees (default from grid spec)")
	sigmaLon := flag.Float64("sigma-lon", 0, "longitudinal kernel width in degrees (default from grid spec)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	regions := demand.DefaultRegions()
	if *regionsPath != "" {
		var err error
		if regions, err = demand.LoadRegions(*regionsPath); err != nil {
			return err
		}
	}

	spec := demand.DefaultGridSpec()
	if *resolution > 0 {
		spec.Resolution = *resolution
	}
	if *sigmaLat > 0 {
		spec.SigmaLat = *sigmaLat
	}
	if *sigmaLon > 0 {
		spec.SigmaLon = *sigmaLon
	}

	artifact, err := demand.BuildArtifact(regions, spec)
	if err != nil {
		return err
	}
	if err := artifact.Save(*out); err != nil {
		return err
	}

	// Reload to prove the artifact round-trips with its invariants intact.
	reloaded, err := demand.LoadArtifact(*out)
	if err != nil {
		return fmt.Errorf("verify artifact: %w", err)
	}
	if _, err := reloaded.Grid(); err != nil {
		return fmt.Errorf("verify artifact: %w", err)
	}

	lats, lons := spec.Axes()
	fmt.Printf("wrote %s: %d regions on a %dx%d grid, built at %s\n",
		*out, len(regions), len(lats), len(lons), artifact.BuiltAt.Format("2006-01-02T15:04:05Z"))
	return nil
}
