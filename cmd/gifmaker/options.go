package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/gifmaker/internal/gif"
	"github.com/maauso/gifmaker/internal/sampling"
)

// errUsage marks command line errors. They exit with status 2.
var errUsage = errors.New("usage error")

const usage = `usage: gifmaker [flags] input output

Converts a video into an animated GIF.

flags:
`

// options is the parsed command line.
type options struct {
	Input     string   `validate:"required"`
	Output    string   `validate:"required,nefield=Input"`
	Start     *float64 `validate:"omitempty,gte=0"`
	Duration  *float64 `validate:"omitempty,gt=0"`
	Loop      bool
	Scale     float64 `validate:"gt=0"`
	SkipRatio sampling.SkipRatio
	Upload    bool
}

// optionalFloat is a float flag that records whether it was set.
type optionalFloat struct {
	v **float64
}

func (f optionalFloat) String() string {
	if f.v == nil || *f.v == nil {
		return ""
	}
	return strconv.FormatFloat(**f.v, 'g', -1, 64)
}

func (f optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f.v = &v
	return nil
}

// parseOptions parses args. Flags may appear before, between or after the
// two positional arguments.
func parseOptions(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	var frameSkip string

	fs := flag.NewFlagSet("gifmaker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	start := optionalFloat{&opts.Start}
	duration := optionalFloat{&opts.Duration}
	fs.Var(start, "s", "start time in seconds")
	fs.Var(start, "start", "start time in seconds")
	fs.Var(duration, "d", "duration in seconds")
	fs.Var(duration, "duration", "duration in seconds")
	fs.BoolVar(&opts.Loop, "l", false, "loop the animation forever")
	fs.BoolVar(&opts.Loop, "loop", false, "loop the animation forever")
	fs.Float64Var(&opts.Scale, "scale", 1.0, "scale factor applied to width and height")
	fs.StringVar(&frameSkip, "frameskip", "", `skip A of every B frames, written "A/B"`)
	fs.BoolVar(&opts.Upload, "upload", false, "publish the GIF to S3")

	var positional []string
	for len(args) > 0 {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", errUsage, err)
		}
		rest := fs.Args()
		if terminated(args, rest) {
			// Everything after "--" is positional, even if it looks like a flag.
			positional = append(positional, rest...)
			break
		}
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	if len(positional) != 2 {
		fs.Usage()
		return nil, fmt.Errorf("%w: expected input and output, got %d arguments", errUsage, len(positional))
	}
	opts.Input, opts.Output = positional[0], positional[1]

	ratio, err := sampling.ParseSkipRatio(frameSkip)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	opts.SkipRatio = ratio

	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	return opts, nil
}

// terminated reports whether the parse of args stopped at a "--" terminator,
// which flag consumes right before the returned rest.
func terminated(args, rest []string) bool {
	i := len(args) - len(rest) - 1
	return i >= 0 && args[i] == "--"
}

// request converts the options into a pipeline request.
func (o *options) request() gif.Request {
	return gif.Request{
		Input:  o.Input,
		Output: o.Output,
		Window: gif.Window{
			Start:    o.Start,
			Duration: o.Duration,
			Scale:    o.Scale,
		},
		Loop:      o.Loop,
		SkipRatio: o.SkipRatio,
	}
}
