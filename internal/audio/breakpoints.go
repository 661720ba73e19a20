package audio

// SelectBreakpoints reduces candidate cut timestamps to a few cut points that
// split the timeline into roughly target equal-length chunks.
//
// The last candidate is the timeline sentinel: it sets the ideal chunk length
// and is never returned. Whenever the running gap since the last cut reaches
// the ideal length, the cut goes to whichever of the previous or current
// candidate lands closer to it; the previous one wins only when strictly
// closer. Both the last cut and the previous candidate start at 0, so a first
// candidate far past the ideal length selects 0 itself. Callers skip the
// resulting empty interval.
//
// The result may hold fewer than target-1 points when candidates are sparse.
func SelectBreakpoints(candidates []float64, target int) []float64 {
	if len(candidates) == 0 {
		return nil
	}
	if target < 1 {
		target = 1
	}

	ideal := candidates[len(candidates)-1] / float64(target)

	var cuts []float64
	lastCut, prev := 0.0, 0.0
	for _, c := range candidates[:len(candidates)-1] {
		if c-lastCut >= ideal {
			deficit := ideal - (prev - lastCut)
			surplus := (c - lastCut) - ideal
			choice := c
			if deficit < surplus {
				choice = prev
			}
			cuts = append(cuts, choice)
			lastCut = choice
		}
		prev = c
	}
	return cuts
}

// Interval is one [Start, End) range of the source timeline, in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Empty reports whether the interval has no length.
func (iv Interval) Empty() bool {
	return iv.End <= iv.Start
}

// intervals expands a cut point set into contiguous intervals starting at 0.
// Empty intervals are kept so callers can report their position.
func intervals(cuts []float64) []Interval {
	out := make([]Interval, 0, len(cuts))
	start := 0.0
	for _, end := range cuts {
		out = append(out, Interval{Start: start, End: end})
		if end > start {
			start = end
		}
	}
	return out
}
