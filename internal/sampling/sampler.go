// Package sampling selects which extracted frames end up in the animation
// and computes the frame rate that keeps the perceived playback speed.
package sampling

import (
	"errors"
	"fmt"
)

// Static errors for sampling.
var (
	// ErrInvalidSkipRatio is returned for malformed or degenerate skip ratios.
	ErrInvalidSkipRatio = errors.New("invalid skip ratio")
	// ErrDegenerateRate is returned when the output frame rate rounds to zero.
	ErrDegenerateRate = errors.New("degenerate output frame rate")
	// ErrInvalidRange is returned when the frame range does not fit the sequence.
	ErrInvalidRange = errors.New("invalid frame range")
)

// Plan is the outcome of sampling a frame sequence.
type Plan struct {
	// Retained holds the sequence positions to keep, in ascending order.
	Retained []int
	// OutputFPS is the display rate for the retained frames.
	OutputFPS int
}

type options struct {
	start    int
	end      int
	hasRange bool
	ratio    SkipRatio
}

// Option configures Sample.
type Option func(*options)

// WithRange restricts sampling to the half-open position range [start, end).
func WithRange(start, end int) Option {
	return func(o *options) {
		o.start = start
		o.end = end
		o.hasRange = true
	}
}

// WithSkipRatio drops frames at the given ratio.
func WithSkipRatio(r SkipRatio) Option {
	return func(o *options) {
		o.ratio = r
	}
}

// Sample computes the retained positions and output frame rate for a
// sequence of totalFrames frames recorded at sourceFPS.
//
// Consecutive retained frames are on average every/(every-skipped) positions
// apart. The cursor is kept as the exact rational start + k*every/kept, so
// the retained density never drifts from kept/every however long the range.
// The output rate is sourceFPS scaled by kept/every, rounded half away from
// zero.
func Sample(sourceFPS, totalFrames int, opts ...Option) (Plan, error) {
	o := options{ratio: NoSkip}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasRange {
		o.start, o.end = 0, totalFrames
	}

	ratio := o.ratio.normalize()
	if err := ratio.Validate(); err != nil {
		return Plan{}, err
	}
	if totalFrames < 0 || o.start < 0 || o.start > o.end || o.end > totalFrames {
		return Plan{}, fmt.Errorf("%w: [%d, %d) of %d frames", ErrInvalidRange, o.start, o.end, totalFrames)
	}

	every := ratio.Every
	kept := ratio.Kept()

	outputFPS := roundDiv(sourceFPS*kept, every)
	if outputFPS < 1 {
		return Plan{}, fmt.Errorf("%w: %d fps with ratio %s", ErrDegenerateRate, sourceFPS, ratio)
	}

	retained := make([]int, 0, (o.end-o.start)*kept/every+1)
	for k := 0; ; k++ {
		idx := o.start + k*every/kept
		if idx >= o.end {
			break
		}
		retained = append(retained, idx)
	}

	return Plan{Retained: retained, OutputFPS: outputFPS}, nil
}

// roundDiv returns num/den rounded half away from zero for num >= 0, den > 0.
func roundDiv(num, den int) int {
	if num < 0 {
		return -roundDiv(-num, den)
	}
	return (2*num + den) / (2 * den)
}

// Select returns the items at the retained positions of the plan.
func Select[T any](items []T, plan Plan) []T {
	out := make([]T, 0, len(plan.Retained))
	for _, i := range plan.Retained {
		if i >= 0 && i < len(items) {
			out = append(out, items[i])
		}
	}
	return out
}
