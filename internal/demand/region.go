// Package demand builds and serves the normalized demand-weight raster: a
// regular lat/lon grid encoding where gas-heating demand is concentrated.
// Each region contributes its consumption volume scaled by its heating
// sensitivity, spread spatially with an anisotropic Gaussian kernel, and the
// resulting grid is normalized to sum to one so a weighted mean temperature
// is a plain dot product.
package demand

import (
	"fmt"
	"os"

	"github.com/golang/geo/s2"
	"gopkg.in/yaml.v3"
)

// Region is one row of the demand reference table: a named area with a
// representative centroid and the two factors that make up its demand
// intensity. Static reference data, never mutated at runtime.
type Region struct {
	ID string `yaml:"id"`
	// Centroid latitude in degrees and longitude in the 0-360 convention
	// (the loader also accepts -180..180).
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
	// GasBcf is annual residential+commercial gas consumption in Bcf.
	GasBcf float64 `yaml:"gas_bcf"`
	// HDD30yr is the 30-year normal heating degree-day total, which
	// downweights warm regions that burn gas for non-heating reasons.
	HDD30yr float64 `yaml:"hdd_30yr"`
}

// Intensity is the demand scalar spread onto the grid: volume x sensitivity.
func (r Region) Intensity() float64 { return r.GasBcf * r.HDD30yr }

// LatLng returns the centroid as an s2 coordinate.
func (r Region) LatLng() s2.LatLng {
	lon := r.Lon
	if lon > 180 {
		lon -= 360
	}
	return s2.LatLngFromDegrees(r.Lat, lon)
}

// LoadRegions reads a region table from a YAML file. The file is a list of
// Region entries; see DefaultRegions for the expected fields.
func LoadRegions(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region table: %w", err)
	}
	var regions []Region
	if err := yaml.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("parse region table %s: %w", path, err)
	}
	for i, r := range regions {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: region %d has no id", ErrConfig, i)
		}
		if r.GasBcf < 0 || r.HDD30yr < 0 {
			return nil, fmt.Errorf("%w: region %s has negative intensity inputs", ErrConfig, r.ID)
		}
	}
	return regions, nil
}

// DefaultRegions is the built-in CONUS table: state centroids with EIA
// residential+commercial gas consumption (~2022 Natural Gas Annual, Bcf) and
// NOAA 1991-2020 heating degree-day normals. The product amplifies
// cold high-consumption states (MN, MI, NY, IL, OH, PA) and suppresses warm
// or producing states (FL, CA, LA, TX) that consume gas without being
// heating-sensitive.
func DefaultRegions() []Region {
	return []Region{
		// Northeast: cold, dense, gas-heated.
		{ID: "ME", Lat: 45.3, Lon: 289.0, GasBcf: 65, HDD30yr: 7500},
		{ID: "NH", Lat: 43.7, Lon: 288.2, GasBcf: 50, HDD30yr: 7300},
		{ID: "VT", Lat: 44.0, Lon: 287.7, GasBcf: 30, HDD30yr: 8000},
		{ID: "MA", Lat: 42.4, Lon: 288.7, GasBcf: 210, HDD30yr: 5800},
		{ID: "RI", Lat: 41.7, Lon: 288.5, GasBcf: 50, HDD30yr: 5700},
		{ID: "CT", Lat: 41.6, Lon: 287.5, GasBcf: 110, HDD30yr: 5500},
		{ID: "NY", Lat: 42.9, Lon: 284.5, GasBcf: 435, HDD30yr: 5800},
		{ID: "NJ", Lat: 40.2, Lon: 285.7, GasBcf: 245, HDD30yr: 5000},
		{ID: "PA", Lat: 41.2, Lon: 282.2, GasBcf: 330, HDD30yr: 5600},
		{ID: "DE", Lat: 38.9, Lon: 284.5, GasBcf: 40, HDD30yr: 4500},
		// Mid-Atlantic / Appalachian.
		{ID: "MD", Lat: 39.0, Lon: 283.2, GasBcf: 130, HDD30yr: 4200},
		{ID: "VA", Lat: 37.8, Lon: 281.5, GasBcf: 165, HDD30yr: 3900},
		{ID: "WV", Lat: 38.6, Lon: 279.5, GasBcf: 70, HDD30yr: 5000},
		{ID: "KY", Lat: 37.4, Lon: 277.5, GasBcf: 115, HDD30yr: 4400},
		// Southeast: low heating sensitivity.
		{ID: "NC", Lat: 35.8, Lon: 280.8, GasBcf: 130, HDD30yr: 3400},
		{ID: "SC", Lat: 33.8, Lon: 279.2, GasBcf: 70, HDD30yr: 2500},
		{ID: "GA", Lat: 32.7, Lon: 276.1, GasBcf: 110, HDD30yr: 2600},
		{ID: "TN", Lat: 35.8, Lon: 273.5, GasBcf: 130, HDD30yr: 4000},
		{ID: "AL", Lat: 32.8, Lon: 273.5, GasBcf: 80, HDD30yr: 2700},
		{ID: "MS", Lat: 32.7, Lon: 270.2, GasBcf: 55, HDD30yr: 2500},
		{ID: "FL", Lat: 28.5, Lon: 278.6, GasBcf: 80, HDD30yr: 600},
		// Great Lakes / Midwest: very high weight.
		{ID: "OH", Lat: 40.4, Lon: 277.5, GasBcf: 290, HDD30yr: 5500},
		{ID: "MI", Lat: 44.3, Lon: 275.5, GasBcf: 325, HDD30yr: 6800},
		{ID: "IN", Lat: 40.3, Lon: 274.4, GasBcf: 175, HDD30yr: 5600},
		{ID: "IL", Lat: 40.6, Lon: 272.0, GasBcf: 345, HDD30yr: 6100},
		{ID: "WI", Lat: 44.5, Lon: 270.2, GasBcf: 175, HDD30yr: 7500},
		{ID: "MN", Lat: 46.4, Lon: 266.7, GasBcf: 180, HDD30yr: 8500},
		{ID: "IA", Lat: 42.0, Lon: 267.6, GasBcf: 100, HDD30yr: 6800},
		{ID: "MO", Lat: 38.4, Lon: 267.5, GasBcf: 190, HDD30yr: 5000},
		{ID: "AR", Lat: 34.8, Lon: 268.2, GasBcf: 75, HDD30yr: 3200},
		// Upper plains.
		{ID: "ND", Lat: 47.5, Lon: 259.5, GasBcf: 45, HDD30yr: 9000},
		{ID: "SD", Lat: 44.5, Lon: 260.1, GasBcf: 35, HDD30yr: 7900},
		{ID: "NE", Lat: 41.5, Lon: 261.5, GasBcf: 75, HDD30yr: 6600},
		{ID: "KS", Lat: 38.7, Lon: 261.7, GasBcf: 85, HDD30yr: 5000},
		// South central: large volume, warm climate, downweighted by HDD.
		{ID: "OK", Lat: 35.5, Lon: 262.7, GasBcf: 105, HDD30yr: 3700},
		{ID: "TX", Lat: 31.1, Lon: 260.5, GasBcf: 395, HDD30yr: 1800},
		{ID: "LA", Lat: 31.2, Lon: 268.6, GasBcf: 155, HDD30yr: 1500},
		// Mountain west.
		{ID: "MT", Lat: 47.0, Lon: 249.5, GasBcf: 50, HDD30yr: 7800},
		{ID: "WY", Lat: 43.0, Lon: 252.0, GasBcf: 45, HDD30yr: 7400},
		{ID: "CO", Lat: 39.0, Lon: 255.5, GasBcf: 145, HDD30yr: 6000},
		{ID: "NM", Lat: 34.5, Lon: 253.7, GasBcf: 80, HDD30yr: 4000},
		{ID: "AZ", Lat: 34.3, Lon: 248.6, GasBcf: 105, HDD30yr: 1200},
		{ID: "UT", Lat: 39.5, Lon: 248.8, GasBcf: 85, HDD30yr: 5800},
		{ID: "ID", Lat: 44.5, Lon: 245.8, GasBcf: 55, HDD30yr: 6500},
		{ID: "NV", Lat: 39.0, Lon: 243.0, GasBcf: 85, HDD30yr: 3000},
		// Pacific: partially disconnected from the benchmark hub basis.
		{ID: "WA", Lat: 47.5, Lon: 239.7, GasBcf: 80, HDD30yr: 4800},
		{ID: "OR", Lat: 44.0, Lon: 237.5, GasBcf: 55, HDD30yr: 4500},
		{ID: "CA", Lat: 37.0, Lon: 240.0, GasBcf: 280, HDD30yr: 2000},
	}
}
