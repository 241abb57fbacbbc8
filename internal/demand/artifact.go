package demand

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/weatherdesk/degreeday/internal/grid"
)

// clock is a package-level time source so tests can freeze artifact
// timestamps. Production code uses the real clock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Artifact is the persisted form of a built weight grid: cell values plus
// the coordinate metadata needed to rebuild the axes without recomputation.
// Written once per region-table or resolution change, read on every run.
type Artifact struct {
	Spec    GridSpec    `json:"spec"`
	BuiltAt time.Time   `json:"built_at"`
	Values  [][]float64 `json:"values"`
}

// sumTolerance is the relative tolerance on the sum-to-one invariant. JSON
// round-trips float64 exactly, so a loaded artifact only drifts by the
// summation rounding itself.
const sumTolerance = 1e-9

// BuildArtifact builds the weight grid for the region set and wraps it with
// its metadata, ready to persist.
func BuildArtifact(regions []Region, spec GridSpec) (*Artifact, error) {
	g, err := Build(regions, spec)
	if err != nil {
		return nil, err
	}
	return &Artifact{Spec: spec, BuiltAt: clock.Now().UTC(), Values: g.Values}, nil
}

// Grid reconstructs the weight raster from the artifact, re-deriving the
// axes from the grid spec and re-checking the normalization invariant.
func (a *Artifact) Grid() (*grid.Grid, error) {
	if err := a.Spec.validate(); err != nil {
		return nil, err
	}
	lats, lons := a.Spec.Axes()
	g, err := grid.New(lats, lons, a.Values)
	if err != nil {
		return nil, fmt.Errorf("weight artifact: %w", err)
	}
	if sum := g.Sum(); math.Abs(sum-1) > sumTolerance {
		return nil, fmt.Errorf("%w: weight grid sums to %.12f, want 1", ErrConfig, sum)
	}
	return g, nil
}

// Save writes the artifact as indented JSON.
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode weight artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write weight artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a persisted artifact. The caller distinguishes a
// missing file (weighting unavailable, non-fatal) from a corrupt one (fatal)
// via errors.Is(err, fs.ErrNotExist).
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse weight artifact %s: %w", path, err)
	}
	return &a, nil
}
