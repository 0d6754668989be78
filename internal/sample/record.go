package sample

import (
	"fmt"
	"strings"
)

// Horizon is the soil layer an ingrowth core was sampled from.
type Horizon int

const (
	HorizonUnknown Horizon = iota
	Organic
	Mineral
)

// Horizons lists the sampled layers in reporting order.
var Horizons = []Horizon{Organic, Mineral}

func (h Horizon) String() string {
	switch h {
	case Organic:
		return "organic"
	case Mineral:
		return "mineral"
	default:
		return "unknown"
	}
}

// Code is the single letter used in sample identifiers.
func (h Horizon) Code() string {
	switch h {
	case Organic:
		return "O"
	case Mineral:
		return "M"
	default:
		return "?"
	}
}

// ParseHorizon accepts the spellings found in field sheets ("O", "Oa", "org",
// "forest floor", "M", "min", ...).
func ParseHorizon(s string) (Horizon, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "o", "oa", "oe", "org", "organic", "forest floor":
		return Organic, nil
	case "m", "min", "mineral":
		return Mineral, nil
	}
	return HorizonUnknown, fmt.Errorf("%w: horizon %q", ErrBadValue, s)
}

// Record is one fine-root sample.
type Record struct {
	Treatment string
	Horizon   Horizon
	Plot      int
	Replicate int

	// Raw Δ14C values from the two measurement sources; nil when missing.
	Primary   *float64
	Secondary *float64

	D14C     float64
	Measured bool
	ID       string
}

// Coalesce prefers the primary measurement and falls back to the secondary.
// ok is false when both are missing.
func Coalesce(primary, secondary *float64) (v float64, ok bool) {
	if primary != nil {
		return *primary, true
	}
	if secondary != nil {
		return *secondary, true
	}
	return 0, false
}

// SampleID concatenates treatment, horizon code and replicate.
func SampleID(treatment string, h Horizon, replicate int, sep string) string {
	return strings.Join([]string{treatment, h.Code(), fmt.Sprint(replicate)}, sep)
}

// Dataset is a loaded CSV with its derived columns and load diagnostics.
type Dataset struct {
	Source  string
	Records []Record
	// Levels holds treatment labels in analysis order; Levels[0] is the control
	// when it is present.
	Levels  []string
	Control string

	BothPresent int
	BothMissing int
	Warnings    []string
}

// Measured returns the records with a unified measurement.
func (d *Dataset) Measured() []Record {
	out := make([]Record, 0, len(d.Records))
	for _, r := range d.Records {
		if r.Measured {
			out = append(out, r)
		}
	}
	return out
}

// ByHorizon returns the measured records of one horizon.
func (d *Dataset) ByHorizon(h Horizon) []Record {
	var out []Record
	for _, r := range d.Records {
		if r.Measured && r.Horizon == h {
			out = append(out, r)
		}
	}
	return out
}

// Horizons returns the horizons that have at least one measured record.
func (d *Dataset) Horizons() []Horizon {
	var out []Horizon
	for _, h := range Horizons {
		if len(d.ByHorizon(h)) > 0 {
			out = append(out, h)
		}
	}
	return out
}

// LevelIndex maps treatment labels to their position in Levels.
func (d *Dataset) LevelIndex() map[string]int {
	return LevelIndex(d.Levels)
}

func LevelIndex(levels []string) map[string]int {
	idx := make(map[string]int, len(levels))
	for i, l := range levels {
		idx[l] = i
	}
	return idx
}
