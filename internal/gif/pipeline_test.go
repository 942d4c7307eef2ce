package gif

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/gifmaker/internal/media"
	"github.com/maauso/gifmaker/internal/sampling"
	"github.com/maauso/gifmaker/internal/storage"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, path string) (media.VideoMetadata, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(media.VideoMetadata), args.Error(1)
}

// fakeExtractor writes n empty frame files into the scratch directory.
type fakeExtractor struct {
	n      int
	err    error
	dir    string
	window media.ExtractionWindow
}

func (f *fakeExtractor) Extract(_ context.Context, _ media.VideoMetadata, window media.ExtractionWindow, outputDir string) ([]string, error) {
	f.dir = outputDir
	f.window = window
	if f.err != nil {
		return nil, f.err
	}
	frames := make([]string, 0, f.n)
	for i := 1; i <= f.n; i++ {
		path := filepath.Join(outputDir, fmt.Sprintf("frame%05d.png", i))
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, err
		}
		frames = append(frames, path)
	}
	return frames, nil
}

type mockAssembler struct {
	mock.Mock
}

func (m *mockAssembler) Assemble(ctx context.Context, frames []string, fps int, loop bool, outputPath string) error {
	args := m.Called(ctx, frames, fps, loop, outputPath)
	return args.Error(0)
}

// mockStorage wraps a real LocalStorage and lets tests stub Publish.
type mockStorage struct {
	*storage.LocalStorage
	mock.Mock
}

func (m *mockStorage) Publish(ctx context.Context, key string, data io.Reader) (string, error) {
	body, _ := io.ReadAll(data)
	args := m.Called(ctx, key, string(body))
	return args.String(0), args.Error(1)
}

type fixture struct {
	resolver  *mockResolver
	extractor *fakeExtractor
	assembler *mockAssembler
	store     *mockStorage
	pipeline  *Pipeline
}

func newFixture(t *testing.T, frames int) *fixture {
	t.Helper()
	local, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, err)

	f := &fixture{
		resolver:  &mockResolver{},
		extractor: &fakeExtractor{n: frames},
		assembler: &mockAssembler{},
		store:     &mockStorage{LocalStorage: local},
	}
	f.pipeline = NewPipeline(f.resolver, f.extractor, f.assembler, f.store, nil)
	return f
}

func (f *fixture) scratchEntries(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.store.TempDir())
	require.NoError(t, err)
	return entries
}

func framePaths(dir string, positions ...int) []string {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		out = append(out, filepath.Join(dir, fmt.Sprintf("frame%05d.png", p+1)))
	}
	return out
}

func TestPipeline_Run_SkipRatio(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	meta := media.VideoMetadata{Path: "in.mp4", Width: 320, Height: 240, FPS: 30}
	f.resolver.On("Resolve", ctx, "in.mp4").Return(meta, nil)
	f.assembler.On("Assemble", ctx, mock.Anything, 15, true, "out.gif").Return(nil)

	start := 1.5
	res, err := f.pipeline.Run(ctx, Request{
		Input:     "in.mp4",
		Output:    "out.gif",
		Window:    Window{Start: &start, Scale: 0.5},
		Loop:      true,
		SkipRatio: sampling.SkipRatio{Skipped: 1, Every: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, meta, res.Metadata)
	assert.Equal(t, 10, res.FramesExtracted)
	assert.Equal(t, []int{0, 2, 4, 6, 8}, res.Plan.Retained)
	assert.Equal(t, 15, res.Plan.OutputFPS)
	assert.Equal(t, 7, res.Delay)
	assert.Empty(t, res.URL)

	f.assembler.AssertCalled(t, "Assemble", ctx, framePaths(f.extractor.dir, 0, 2, 4, 6, 8), 15, true, "out.gif")
	assert.Equal(t, &start, f.extractor.window.Start)
	assert.Equal(t, 0.5, f.extractor.window.Scale)
	assert.Empty(t, f.scratchEntries(t), "scratch directory must be removed")
}

func TestPipeline_Run_NoSkipKeepsEveryFrame(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	f.resolver.On("Resolve", ctx, "in.mp4").Return(media.VideoMetadata{Path: "in.mp4", Width: 8, Height: 8, FPS: 24}, nil)
	f.assembler.On("Assemble", ctx, mock.Anything, 24, false, "out.gif").Return(nil)

	res, err := f.pipeline.Run(ctx, Request{Input: "in.mp4", Output: "out.gif"})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3}, res.Plan.Retained)
	f.assembler.AssertCalled(t, "Assemble", ctx, framePaths(f.extractor.dir, 0, 1, 2, 3), 24, false, "out.gif")
}

func TestPipeline_Run_Publish(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	output := filepath.Join(t.TempDir(), "out.gif")
	f.resolver.On("Resolve", ctx, "in.mp4").Return(media.VideoMetadata{Path: "in.mp4", Width: 8, Height: 8, FPS: 10}, nil)
	f.assembler.On("Assemble", ctx, mock.Anything, 10, false, output).
		Run(func(args mock.Arguments) {
			_ = os.WriteFile(output, []byte("GIF89a"), 0o600)
		}).
		Return(nil)
	f.store.On("Publish", ctx, "gifs/out.gif", "GIF89a").Return("https://bucket/gifs/out.gif", nil)

	res, err := f.pipeline.Run(ctx, Request{Input: "in.mp4", Output: output, PublishKey: "gifs/out.gif"})
	require.NoError(t, err)

	assert.Equal(t, "https://bucket/gifs/out.gif", res.URL)
	f.store.AssertExpectations(t)
}

func TestPipeline_Run_StageFailures(t *testing.T) {
	ctx := context.Background()
	meta := media.VideoMetadata{Path: "in.mp4", Width: 8, Height: 8, FPS: 10}

	t.Run("probe", func(t *testing.T) {
		f := newFixture(t, 3)
		f.resolver.On("Resolve", ctx, "in.mp4").Return(media.VideoMetadata{}, media.ErrProbe)

		_, err := f.pipeline.Run(ctx, Request{Input: "in.mp4", Output: "out.gif"})
		require.Error(t, err)
		assert.ErrorIs(t, err, media.ErrProbe)
		assert.Equal(t, StageProbe, FailedStage(err))
		assert.Empty(t, f.extractor.dir, "extraction must not run")
		assert.Empty(t, f.scratchEntries(t))
	})

	t.Run("extract", func(t *testing.T) {
		f := newFixture(t, 0)
		f.extractor.err = fmt.Errorf("%w: no frames", media.ErrExtraction)
		f.resolver.On("Resolve", ctx, "in.mp4").Return(meta, nil)

		_, err := f.pipeline.Run(ctx, Request{Input: "in.mp4", Output: "out.gif"})
		assert.ErrorIs(t, err, media.ErrExtraction)
		assert.Equal(t, StageExtract, FailedStage(err))
		assert.Empty(t, f.scratchEntries(t), "scratch directory must be removed after failure")
		f.assembler.AssertNotCalled(t, "Assemble", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("degenerate rate", func(t *testing.T) {
		f := newFixture(t, 20)
		f.resolver.On("Resolve", ctx, "in.mp4").Return(media.VideoMetadata{Path: "in.mp4", Width: 8, Height: 8, FPS: 4}, nil)

		_, err := f.pipeline.Run(ctx, Request{
			Input:     "in.mp4",
			Output:    "out.gif",
			SkipRatio: sampling.SkipRatio{Skipped: 9, Every: 10},
		})
		assert.ErrorIs(t, err, sampling.ErrDegenerateRate)
		assert.Equal(t, StageSample, FailedStage(err))
		assert.Empty(t, f.scratchEntries(t))
	})

	t.Run("assemble", func(t *testing.T) {
		f := newFixture(t, 3)
		f.resolver.On("Resolve", ctx, "in.mp4").Return(meta, nil)
		f.assembler.On("Assemble", ctx, mock.Anything, 10, false, "out.gif").Return(media.ErrAssembly)

		_, err := f.pipeline.Run(ctx, Request{Input: "in.mp4", Output: "out.gif"})
		assert.ErrorIs(t, err, media.ErrAssembly)
		assert.Equal(t, StageAssemble, FailedStage(err))
		assert.Empty(t, f.scratchEntries(t))
	})

	t.Run("publish without S3", func(t *testing.T) {
		f := newFixture(t, 3)
		output := filepath.Join(t.TempDir(), "out.gif")
		f.resolver.On("Resolve", ctx, "in.mp4").Return(meta, nil)
		f.assembler.On("Assemble", ctx, mock.Anything, 10, false, output).
			Run(func(mock.Arguments) { _ = os.WriteFile(output, []byte("GIF89a"), 0o600) }).
			Return(nil)
		f.store.On("Publish", ctx, "k", "GIF89a").Return("", storage.ErrS3NotConfigured)

		_, err := f.pipeline.Run(ctx, Request{Input: "in.mp4", Output: output, PublishKey: "k"})
		assert.ErrorIs(t, err, storage.ErrS3NotConfigured)
		assert.Equal(t, StagePublish, FailedStage(err))
	})
}

func TestPipeline_Validate(t *testing.T) {
	f := newFixture(t, 1)
	negative := -1.0
	zero := 0.0

	tests := []struct {
		name string
		req  Request
	}{
		{"missing input", Request{Output: "out.gif"}},
		{"missing output", Request{Input: "in.mp4"}},
		{"output equals input", Request{Input: "same", Output: "same"}},
		{"negative start", Request{Input: "in.mp4", Output: "out.gif", Window: Window{Start: &negative}}},
		{"zero duration", Request{Input: "in.mp4", Output: "out.gif", Window: Window{Duration: &zero}}},
		{"negative scale", Request{Input: "in.mp4", Output: "out.gif", Window: Window{Scale: -0.5}}},
		{"degenerate skip ratio", Request{Input: "in.mp4", Output: "out.gif", SkipRatio: sampling.SkipRatio{Skipped: 2, Every: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pipeline.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, StageValidate, FailedStage(err))
		})
	}
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StageExtract, Err: media.ErrExtraction}

	assert.Equal(t, "extract stage: frame extraction failed", err.Error())
	assert.True(t, errors.Is(err, media.ErrExtraction))
	assert.Equal(t, Stage(""), FailedStage(errors.New("plain")))
}
