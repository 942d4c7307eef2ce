package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ConvertAssembler implements Assembler using ImageMagick's convert.
type ConvertAssembler struct {
	convertPath string
}

// NewConvertAssembler creates a new ConvertAssembler.
// If convertPath is empty, it defaults to "convert" (found via PATH).
func NewConvertAssembler(convertPath string) *ConvertAssembler {
	if convertPath == "" {
		convertPath = "convert"
	}
	return &ConvertAssembler{convertPath: convertPath}
}

// Delay converts a frame rate into a display delay in hundredths of a
// second, rounded half away from zero. fps must be positive.
func Delay(fps int) int {
	return (200 + fps) / (2 * fps)
}

// Assemble encodes frames into outputPath. The animation is written to a
// temporary file next to outputPath and renamed over it on success.
func (a *ConvertAssembler) Assemble(ctx context.Context, frames []string, fps int, loop bool, outputPath string) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames to assemble", ErrAssembly)
	}
	if fps < 1 {
		return fmt.Errorf("%w: frame rate must be positive, got %d", ErrAssembly, fps)
	}

	tmp, err := reserveSibling(outputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssembly, err)
	}

	if _, err := runTool(ctx, a.convertPath, assembleArgs(frames, Delay(fps), loop, tmp)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrAssembly, err)
	}

	if err := os.Rename(tmp, outputPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: move output into place: %w", ErrAssembly, err)
	}

	return nil
}

func assembleArgs(frames []string, delay int, loop bool, output string) []string {
	args := make([]string, 0, len(frames)+5)
	args = append(args, "-delay", strconv.Itoa(delay))
	if loop {
		args = append(args, "-loop", "0")
	}
	args = append(args, frames...)
	return append(args, output)
}

// reserveSibling creates an empty temporary file in the directory of path,
// keeping its extension so the tool picks the same output format.
func reserveSibling(path string) (string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)

	f, err := os.CreateTemp(filepath.Dir(path), "."+base+".*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp output: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close temp output: %w", err)
	}
	return name, nil
}

// Verify interface implementation at compile time.
var _ Assembler = (*ConvertAssembler)(nil)
