package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNormals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entries:
  - {month: 1, day: 15, hdd: 30, cdd: 0, mean_temp: 35}
  - {month: 7, day: 10, hdd: 0, cdd: 12, mean_temp: 77}
monthly_scale:
  1: 1.18
  7: 1.00
`), 0o644))

	set, err := LoadNormals(path)
	require.NoError(t, err)

	n, ok := set.Lookup(NewDate(2026, time.January, 15))
	require.True(t, ok)
	assert.Equal(t, 30.0, n.HDD)
	assert.Equal(t, 1.18, set.ScaleFor(1))
	assert.Equal(t, 1.0, set.ScaleFor(4), "unconfigured months default to 1")

	w, ok := set.WeightedHDDNormal(NewDate(2026, time.January, 15))
	require.True(t, ok)
	assert.InDelta(t, 35.4, w, 1e-9)

	_, ok = set.Lookup(NewDate(2026, time.May, 1))
	assert.False(t, ok)
}

func TestNewNormalSet_Validation(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := NewNormalSet(nil, nil)
		require.Error(t, err)
	})

	t.Run("invalid calendar day", func(t *testing.T) {
		_, err := NewNormalSet([]Normal{{Month: 13, Day: 1}}, nil)
		require.Error(t, err)
	})

	t.Run("duplicate day", func(t *testing.T) {
		_, err := NewNormalSet([]Normal{{Month: 1, Day: 1}, {Month: 1, Day: 1}}, nil)
		require.Error(t, err)
	})
}

func TestDefaultMonthlyScale(t *testing.T) {
	scale := DefaultMonthlyScale()
	require.Len(t, scale, 12)
	// Deep winter corrections exceed shoulder-season ones.
	assert.Greater(t, scale[1], scale[10])
	assert.Equal(t, 1.0, scale[7])
}
