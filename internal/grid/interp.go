package grid

// Resample interpolates the source grid onto the target axes using bilinear
// interpolation over the four surrounding source cells. Target points
// outside the source domain are clamped to the nearest edge value instead of
// failing; weight grids and temperature fields rarely overlap exactly at
// their boundaries and a hard error there would reject every real field.
//
// Resample is a pure resampling primitive: it preserves values, not totals.
// A caller that needs the result to sum to 1 over a new domain must
// re-normalize explicitly.
func (g *Grid) Resample(lats, lons []float64) (*Grid, error) {
	latIdx, latFrac := bracket(g.Lats, lats)
	lonIdx, lonFrac := bracket(g.Lons, lons)

	values := make([][]float64, len(lats))
	for i := range lats {
		row := make([]float64, len(lons))
		li, lf := latIdx[i], latFrac[i]
		li1 := min(li+1, len(g.Lats)-1)
		for j := range lons {
			ci, cf := lonIdx[j], lonFrac[j]
			ci1 := min(ci+1, len(g.Lons)-1)
			v00 := g.Values[li][ci]
			v01 := g.Values[li][ci1]
			v10 := g.Values[li1][ci]
			v11 := g.Values[li1][ci1]
			top := v00 + (v01-v00)*cf
			bot := v10 + (v11-v10)*cf
			row[j] = top + (bot-top)*lf
		}
		values[i] = row
	}
	return New(lats, lons, values)
}

// bracket locates, for each target coordinate, the lower index of the source
// interval containing it and the fractional position within that interval.
// Coordinates beyond the source range clamp to frac 0 or 1 at the edge
// interval, which reduces the bilinear blend to the nearest edge value.
// A single-point source axis degenerates to interval [0,0] with frac 0.
func bracket(src, targets []float64) (idx []int, frac []float64) {
	idx = make([]int, len(targets))
	frac = make([]float64, len(targets))
	for k, t := range targets {
		switch {
		case len(src) == 1 || t <= src[0]:
			idx[k], frac[k] = 0, 0
		case t >= src[len(src)-1]:
			idx[k], frac[k] = len(src)-2, 1
		default:
			lo := searchInterval(src, t)
			idx[k] = lo
			frac[k] = (t - src[lo]) / (src[lo+1] - src[lo])
		}
	}
	return idx, frac
}

// searchInterval returns i such that src[i] <= t < src[i+1]. The caller
// guarantees src is ascending with at least two points and t in range.
func searchInterval(src []float64, t float64) int {
	lo, hi := 0, len(src)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if src[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
