package config

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeUnit tags an energy range with its scale. Detector channels and
// physical energy (keV) use the same "lo-hi" notation on the wire, and
// the external toolchain accepts either without complaint: passing a
// channel range where a keV range is expected silently selects the
// wrong events and empties result sets downstream. Every range
// therefore carries an explicit unit, fixed at resolution time.
type RangeUnit string

const (
	UnitChannel RangeUnit = "channel"
	UnitKeV     RangeUnit = "keV"
)

// ChannelRange is a closed integer interval with a unit tag, parsed
// from the "0-13" string form used in configuration documents.
type ChannelRange struct {
	Lo   int
	Hi   int
	Unit RangeUnit
}

// String renders the interval in the toolchain's "lo-hi" notation
// (the unit tag is a resolution-time contract, not wire syntax).
func (r ChannelRange) String() string {
	return fmt.Sprintf("%d-%d", r.Lo, r.Hi)
}

// ParseChannelRange parses "lo-hi" into a ChannelRange with the given
// unit. Lo must not exceed Hi and neither bound may be negative.
func ParseChannelRange(s string, unit RangeUnit) (ChannelRange, error) {
	var r ChannelRange
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return r, fmt.Errorf("range %q: want lo-hi", s)
	}
	loN, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return r, fmt.Errorf("range %q: bad lower bound: %w", s, err)
	}
	hiN, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return r, fmt.Errorf("range %q: bad upper bound: %w", s, err)
	}
	if loN < 0 || hiN < 0 || loN > hiN {
		return r, fmt.Errorf("range %q: bounds out of order", s)
	}
	return ChannelRange{Lo: loN, Hi: hiN, Unit: unit}, nil
}

// ColorRanges returns the color-analysis bands in declaration order of
// color_analysis.color_names, each validated and tagged with the
// configured unit (color_analysis.range_unit, default channel). A name
// without a matching range entry is an error: a silently invented band
// would not fail at runtime, it would just produce empty curves.
func (c *Config) ColorRanges() ([]ChannelRange, []string, error) {
	unit := RangeUnit(c.GetString("color_analysis.range_unit", string(UnitChannel)))
	if unit != UnitChannel && unit != UnitKeV {
		return nil, nil, fmt.Errorf("color_analysis.range_unit %q: want channel or keV", unit)
	}

	namesVal, ok := c.Get("color_analysis.color_names", nil).([]any)
	if !ok {
		return nil, nil, fmt.Errorf("color_analysis.color_names is not a sequence")
	}
	rangesMap := c.Section("color_analysis")["ranges"]
	rm, _ := rangesMap.(map[string]any)

	ranges := make([]ChannelRange, 0, len(namesVal))
	names := make([]string, 0, len(namesVal))
	for _, nv := range namesVal {
		name := asString(nv)
		raw, ok := rm[name]
		if !ok {
			return nil, nil, fmt.Errorf("color %q has no range in color_analysis.ranges", name)
		}
		r, err := ParseChannelRange(asString(raw), unit)
		if err != nil {
			return nil, nil, fmt.Errorf("color %q: %w", name, err)
		}
		ranges = append(ranges, r)
		names = append(names, name)
	}
	return ranges, names, nil
}
