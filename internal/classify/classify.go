// Package classify turns index rasters into a binary mining-candidate mask
// using quorum voting over per-index threshold conditions, then denoises the
// mask with morphological operations.
package classify

import (
	"fmt"

	"minewatch/internal/raster"
	"minewatch/internal/spectral"
)

// Direction states which side of a threshold satisfies a condition.
type Direction string

const (
	Below Direction = "below"
	Above Direction = "above"
)

// Condition is one entry of the fixed-size boolean vector evaluated per
// pixel: an index, a direction and a threshold.
type Condition struct {
	Index     spectral.Index `toml:"index"`
	Direction Direction      `toml:"direction"`
	Threshold float64        `toml:"threshold"`
}

// Satisfied evaluates the condition for a single index value.
func (c Condition) Satisfied(v float64) bool {
	switch c.Direction {
	case Below:
		return v < c.Threshold
	case Above:
		return v > c.Threshold
	default:
		return false
	}
}

// Margin returns how far the value sits on the satisfying side of the
// threshold; negative when the condition does not hold. The reconciler uses
// this to score detection strength.
func (c Condition) Margin(v float64) float64 {
	switch c.Direction {
	case Below:
		return c.Threshold - v
	case Above:
		return v - c.Threshold
	default:
		return 0
	}
}

// Options configures voting and cleanup.
type Options struct {
	// Conditions is the vector of per-index tests. The set is configurable
	// rather than hardwired; the default carries seven entries.
	Conditions []Condition
	// Quorum is how many conditions must hold for a pixel to be a
	// candidate.
	Quorum int
	// Signature, when enabled, force-detects pixels matching a strict
	// bare-surface spectral signature regardless of the quorum count.
	// Every signature condition must hold on valid data.
	SignatureEnabled bool
	Signature        []Condition
	// KernelSize is the width of the square structuring element used for
	// morphological opening and closing. Must be odd.
	KernelSize int
}

// DefaultOptions returns the default condition set, quorum and cleanup
// parameters. Mining areas read as: no vegetation, bare dry soil, no
// surface water, disturbed ground.
func DefaultOptions() Options {
	return Options{
		Conditions: []Condition{
			{Index: spectral.NDVI, Direction: Below, Threshold: 0.2},
			{Index: spectral.BSI, Direction: Above, Threshold: 0.3},
			{Index: spectral.NDBI, Direction: Above, Threshold: 0.1},
			{Index: spectral.NDWI, Direction: Below, Threshold: 0.2},
			{Index: spectral.SAVI, Direction: Below, Threshold: 0.1},
			{Index: spectral.EVI, Direction: Below, Threshold: 0.1},
			{Index: spectral.NBR, Direction: Below, Threshold: 0.1},
		},
		Quorum:           4,
		SignatureEnabled: true,
		Signature: []Condition{
			{Index: spectral.NDVI, Direction: Below, Threshold: 0.15},
			{Index: spectral.BSI, Direction: Above, Threshold: 0.4},
			{Index: spectral.NDBI, Direction: Above, Threshold: 0.2},
		},
		KernelSize: 3,
	}
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if len(o.Conditions) == 0 {
		return fmt.Errorf("classify: condition set is empty")
	}
	if o.Quorum < 1 || o.Quorum > len(o.Conditions) {
		return fmt.Errorf("classify: quorum %d out of range for %d conditions", o.Quorum, len(o.Conditions))
	}
	if o.KernelSize < 1 || o.KernelSize%2 == 0 {
		return fmt.Errorf("classify: kernel size %d must be odd and positive", o.KernelSize)
	}
	return nil
}

// Detect runs voting and morphological cleanup, producing the final
// candidate mask.
func Detect(indices *spectral.Set, opts Options) (*raster.Mask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	for _, c := range append(append([]Condition{}, opts.Conditions...), opts.Signature...) {
		if indices.Grid(c.Index) == nil {
			return nil, fmt.Errorf("classify: condition references index %s which was not computed", c.Index)
		}
	}

	mask := Vote(indices, opts)
	mask = Open(mask, opts.KernelSize)
	mask = Close(mask, opts.KernelSize)
	return mask, nil
}

// Vote evaluates the condition vector at every pixel and marks cells where
// at least Quorum conditions hold. A no-data index value counts its
// condition as not satisfied, so missing data biases toward non-detection.
func Vote(indices *spectral.Set, opts Options) *raster.Mask {
	ref := indices.Grid(opts.Conditions[0].Index)
	mask := raster.MaskLike(ref)

	for i := range mask.Bits {
		count := 0
		for _, c := range opts.Conditions {
			g := indices.Grid(c.Index)
			v := g.Data[i]
			if g.IsValid(v) && c.Satisfied(v) {
				count++
			}
		}
		if count >= opts.Quorum {
			mask.Bits[i] = true
			continue
		}

		if opts.SignatureEnabled && len(opts.Signature) > 0 {
			match := true
			for _, c := range opts.Signature {
				g := indices.Grid(c.Index)
				v := g.Data[i]
				if !g.IsValid(v) || !c.Satisfied(v) {
					match = false
					break
				}
			}
			if match {
				mask.Bits[i] = true
			}
		}
	}

	return mask
}
