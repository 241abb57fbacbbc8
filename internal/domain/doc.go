// Package domain models temperature-based energy demand signals: degree-day
// records derived from gridded weather-model forecasts, their comparison to
// seasonal normals, and run-to-run forecast changes.
//
// # Data Source
//
// Temperature fields originate from global and regional weather models (GFS,
// ECMWF IFS/AIFS and similar). An upstream fetch/decode collaborator pulls
// the raw GRIB output, extracts the 2 m temperature surface for each
// forecast day, and publishes it as JSON: model name, run identifier, valid
// date, unit, lat/lon axes, and the 2-D value array. This package never
// touches raw meteorological binary formats.
//
// # Conventions
//
// Run identifiers:
//
//	"<YYYYMMDD>_<HH>z", e.g. "20260301_00z": issuance date plus cycle hour.
//	The encoding sorts lexicographically in chronological order, which is
//	the total order used to pick the latest and previous run of a model.
//
// Units:
//
//	Fields arrive in kelvin ("K"), celsius ("C"), or fahrenheit ("F") and
//	are converted to fahrenheit at parse time. All degree-day math runs in
//	fahrenheit against a 65 °F base by convention of the US gas market.
//
// Degree days:
//
//	HDD = max(base − T, 0), CDD = max(T − base, 0) for daily mean
//	temperature T. The two are mutually exclusive: at most one is positive
//	for any T.
//
// Weighted means:
//
//	A demand-weight grid (internal/demand) resampled onto the field's axes
//	turns the spatial mean into a consumption-weighted mean. When the
//	weight grid is missing or carries no mass over the field, the weighted
//	values are explicitly absent (nil), never silently copied from the
//	unweighted ones; downstream consumers must be able to tell "weighted
//	signal" from "fallback unweighted signal".
//
// Dominance rule:
//
//	Cooling demand governs the anomaly signal in the warm-season months
//	(June–August by default); heating demand governs otherwise. This is a
//	policy constant, configured rather than inferred from data.
//
// # Determinism
//
// Identical inputs produce identical outputs bit for bit: region tables and
// normals are ordered slices, accumulation loops run in axis order, and no
// map iteration feeds a floating-point sum. Replay of the same model run is
// deduplicated by the record store on (model, run_id, date).
package domain
