package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Static errors for media operations.
var (
	// ErrProbe is returned when video metadata cannot be read.
	ErrProbe = errors.New("probe failed")
	// ErrExtraction is returned when frames cannot be extracted.
	ErrExtraction = errors.New("frame extraction failed")
	// ErrAssembly is returned when the animation cannot be written.
	ErrAssembly = errors.New("assembly failed")
	// ErrInvalidDimensions is returned when scaled dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
)

// ToolError represents a failed run of an external tool, including its stderr output.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s error: %v\nargs: %v\nstderr: %s", e.Tool, e.Err, e.Args, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// runTool executes the binary at path and returns its stderr output.
// A non-zero exit is reported as a *ToolError; the stderr output is
// returned in both cases since some tools report through it.
func runTool(ctx context.Context, path string, args []string) (string, error) {
	// #nosec G204 - tool paths come from configuration, not user input
	cmd := exec.CommandContext(ctx, path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stderr.String(), fmt.Errorf("%s cancelled: %w", path, ctx.Err())
		}
		return stderr.String(), &ToolError{
			Tool:   path,
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return stderr.String(), nil
}
