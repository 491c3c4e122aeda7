package pipeline

import (
	"fmt"
	"slices"
)

// StageOrder is the fixed reduction sequence. Ordinals start at 2:
// stage 1 is the download, which is not a per-observation stage.
var StageOrder = []string{
	"prepare",     // 02
	"organize",    // 03
	"bitmask",     // 04
	"filter",      // 05
	"extract",     // 06
	"lightcurves", // 07
	"spectra",     // 08
	"pds",         // 09
}

// Ordinal returns a stage's position in the sequence (2-based), or 0
// for an unknown stage.
func Ordinal(name string) int {
	i := slices.Index(StageOrder, name)
	if i < 0 {
		return 0
	}
	return i + 2
}

// Range returns the contiguous run of stage names from `from` to `to`
// inclusive. Empty bounds default to the ends of the sequence.
func Range(from, to string) ([]string, error) {
	lo, hi := 0, len(StageOrder)-1
	if from != "" {
		if lo = slices.Index(StageOrder, from); lo < 0 {
			return nil, fmt.Errorf("unknown stage %q", from)
		}
	}
	if to != "" {
		if hi = slices.Index(StageOrder, to); hi < 0 {
			return nil, fmt.Errorf("unknown stage %q", to)
		}
	}
	if lo > hi {
		return nil, fmt.Errorf("stage %q comes after %q", from, to)
	}
	return StageOrder[lo : hi+1], nil
}
