package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Normal is the historical baseline for one calendar day: 30-year average
// heating and cooling degree days and mean temperature. Static reference
// data, loaded once and never mutated.
type Normal struct {
	Month    int     `yaml:"month"`
	Day      int     `yaml:"day"`
	HDD      float64 `yaml:"hdd"`
	CDD      float64 `yaml:"cdd"`
	MeanTemp float64 `yaml:"mean_temp"`
}

// NormalSet joins daily baselines with the per-month factors that scale the
// unweighted baseline into its demand-weighted variant.
type NormalSet struct {
	entries map[int]Normal // keyed month*100+day
	scale   map[int]float64
}

// normalsFile is the on-disk YAML shape.
type normalsFile struct {
	Entries []Normal        `yaml:"entries"`
	Scale   map[int]float64 `yaml:"monthly_scale"`
}

// NewNormalSet builds a set from explicit entries and monthly scale factors.
// A nil scale map defaults every month to 1.0 (weighted baseline equals the
// unweighted one).
func NewNormalSet(entries []Normal, scale map[int]float64) (*NormalSet, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty normals")
	}
	set := &NormalSet{entries: make(map[int]Normal, len(entries)), scale: scale}
	for _, n := range entries {
		if n.Month < 1 || n.Month > 12 || n.Day < 1 || n.Day > 31 {
			return nil, fmt.Errorf("normal entry with invalid calendar day %02d-%02d", n.Month, n.Day)
		}
		key := n.Month*100 + n.Day
		if _, dup := set.entries[key]; dup {
			return nil, fmt.Errorf("duplicate normal entry for %02d-%02d", n.Month, n.Day)
		}
		set.entries[key] = n
	}
	return set, nil
}

// LoadNormals reads a normals file: a list of daily entries plus an optional
// monthly_scale map.
func LoadNormals(path string) (*NormalSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read normals: %w", err)
	}
	var f normalsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse normals %s: %w", path, err)
	}
	return NewNormalSet(f.Entries, f.Scale)
}

// Lookup returns the baseline for the record's calendar day. February 29
// falls back to February 28 so leap days are never unmatched.
func (s *NormalSet) Lookup(d Date) (Normal, bool) {
	month, day := int(d.Month()), d.Day()
	if month == 2 && day == 29 {
		day = 28
	}
	n, ok := s.entries[month*100+day]
	return n, ok
}

// ScaleFor returns the month's demand-weighting scale factor, 1.0 when none
// is configured. The factor is the ratio of weighted to unweighted aggregate
// demand for that month in the reference dataset: larger in deep winter
// when the Northeast and Midwest dominate national demand, near 1 in summer.
func (s *NormalSet) ScaleFor(month int) float64 {
	if s.scale == nil {
		return 1.0
	}
	if f, ok := s.scale[month]; ok {
		return f
	}
	return 1.0
}

// WeightedHDDNormal derives the demand-weighted baseline for a date by
// scaling the unweighted baseline with the month's factor.
func (s *NormalSet) WeightedHDDNormal(d Date) (float64, bool) {
	n, ok := s.Lookup(d)
	if !ok {
		return 0, false
	}
	return n.HDD * s.ScaleFor(int(d.Month())), true
}

// DefaultMonthlyScale is the reference monthly correction (weighted mean
// over simple national mean). The values come from EIA monthly residential
// consumption patterns; treat them as configuration to recalibrate, not
// constants to trust.
func DefaultMonthlyScale() map[int]float64 {
	return map[int]float64{
		1:  1.18, // peak heating, NE+Midwest dominate national demand
		2:  1.16,
		3:  1.10,
		4:  1.06,
		5:  1.03,
		6:  1.00,
		7:  1.00,
		8:  1.00,
		9:  1.02, // first cold snaps in the north
		10: 1.06,
		11: 1.12,
		12: 1.16,
	}
}
