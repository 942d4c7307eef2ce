package sampling

import (
	"fmt"
	"strconv"
	"strings"
)

// SkipRatio describes how many source frames are dropped out of a fixed
// window: out of every Every frames, Skipped are dropped.
// The zero value means no skipping and behaves like {0, 1}.
type SkipRatio struct {
	Skipped int
	Every   int
}

// NoSkip is the ratio that retains every source frame.
var NoSkip = SkipRatio{Skipped: 0, Every: 1}

// MaxEvery bounds the window size so that the sampler's integer products
// cannot overflow.
const MaxEvery = 1 << 20

// normalize maps the zero value onto NoSkip.
func (r SkipRatio) normalize() SkipRatio {
	if r == (SkipRatio{}) {
		return NoSkip
	}
	return r
}

// Validate reports whether the ratio keeps at least one frame per window.
func (r SkipRatio) Validate() error {
	r = r.normalize()
	if r.Every <= 0 || r.Skipped < 0 {
		return fmt.Errorf("%w: %d/%d", ErrInvalidSkipRatio, r.Skipped, r.Every)
	}
	if r.Every > MaxEvery {
		return fmt.Errorf("%w: window size %d exceeds %d", ErrInvalidSkipRatio, r.Every, MaxEvery)
	}
	if r.Every-r.Skipped <= 0 {
		return fmt.Errorf("%w: %d/%d keeps no frames", ErrInvalidSkipRatio, r.Skipped, r.Every)
	}
	return nil
}

// Kept returns how many frames are retained out of every Every.
func (r SkipRatio) Kept() int {
	r = r.normalize()
	return r.Every - r.Skipped
}

// String renders the ratio in its "A/B" text form.
func (r SkipRatio) String() string {
	r = r.normalize()
	return strconv.Itoa(r.Skipped) + "/" + strconv.Itoa(r.Every)
}

// ParseSkipRatio parses the "A/B" form used on the command line and in
// HTTP requests. An empty string yields NoSkip; an explicit window size
// must be positive, so "0/0" is rejected.
func ParseSkipRatio(s string) (SkipRatio, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoSkip, nil
	}

	skipped, every, ok := strings.Cut(s, "/")
	if !ok {
		return SkipRatio{}, fmt.Errorf("%w: %q is not of the form A/B", ErrInvalidSkipRatio, s)
	}

	a, err := strconv.Atoi(strings.TrimSpace(skipped))
	if err != nil {
		return SkipRatio{}, fmt.Errorf("%w: skipped count %q: %w", ErrInvalidSkipRatio, skipped, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(every))
	if err != nil {
		return SkipRatio{}, fmt.Errorf("%w: window size %q: %w", ErrInvalidSkipRatio, every, err)
	}

	if b <= 0 {
		return SkipRatio{}, fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidSkipRatio, b)
	}

	r := SkipRatio{Skipped: a, Every: b}
	if err := r.Validate(); err != nil {
		return SkipRatio{}, err
	}
	return r, nil
}
