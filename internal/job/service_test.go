package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/gifmaker/internal/gif"
	"github.com/maauso/gifmaker/internal/media"
	"github.com/maauso/gifmaker/internal/metrics"
	"github.com/maauso/gifmaker/internal/sampling"
	"github.com/maauso/gifmaker/internal/storage"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req gif.Request) (*gif.Result, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, gif.Request) (*gif.Result, error)); ok {
		return fn(ctx, req)
	}
	res, _ := args.Get(0).(*gif.Result)
	return res, args.Error(1)
}

func newTestService(t *testing.T, runner Runner, opts ...ServiceOption) (*GifService, *MemoryRepository, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	repo := NewMemoryRepository()
	return NewGifService(repo, runner, store, nil, opts...), repo, dir
}

func TestNewGifService(t *testing.T) {
	svc := NewGifService(NewMemoryRepository(), &mockRunner{}, nil, nil, WithTimeout(time.Minute))

	assert.NotNil(t, svc.logger)
	assert.Equal(t, time.Minute, svc.timeout)

	svc = NewGifService(NewMemoryRepository(), &mockRunner{}, nil, nil, WithTimeout(-time.Second))
	assert.Zero(t, svc.timeout)
}

func TestGifService_CreateJob(t *testing.T) {
	svc, repo, dir := newTestService(t, &mockRunner{})
	ctx := context.Background()

	created, err := svc.CreateJob(ctx, CreateInput{
		Video:    strings.NewReader("video-bytes"),
		Options:  Options{FrameSkip: "1/2", Loop: true, Scale: 0.5},
		PushToS3: true,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusInQueue, created.Status)
	assert.True(t, created.PushToS3)
	assert.Equal(t, "1/2", created.Options.FrameSkip)
	assert.Equal(t, dir, filepath.Dir(created.InputVideoPath))

	content, err := os.ReadFile(created.InputVideoPath)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(content))

	saved, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, saved.ID)
}

func TestGifService_CreateJob_InvalidFrameSkip(t *testing.T) {
	svc, repo, dir := newTestService(t, &mockRunner{})

	_, err := svc.CreateJob(context.Background(), CreateInput{
		Video:   strings.NewReader("video-bytes"),
		Options: Options{FrameSkip: "2/2"},
	})
	assert.ErrorIs(t, err, sampling.ErrInvalidSkipRatio)

	jobs, _ := repo.List(context.Background())
	assert.Empty(t, jobs)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "nothing should be stored for a rejected job")
}

func TestGifService_GetJob_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t, &mockRunner{})

	_, err := svc.GetJob(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestGifService_ProcessExistingJob_Success(t *testing.T) {
	runner := &mockRunner{}
	svc, _, _ := newTestService(t, runner)
	ctx := context.Background()

	start := 2.0
	created, err := svc.CreateJob(ctx, CreateInput{
		Video:    strings.NewReader("video-bytes"),
		Options:  Options{Start: &start, FrameSkip: "1/3", Loop: true},
		PushToS3: true,
	})
	require.NoError(t, err)

	runner.On("Run", mock.Anything, mock.MatchedBy(func(req gif.Request) bool {
		return req.Input == created.InputVideoPath &&
			strings.HasSuffix(req.Output, ".gif") &&
			req.Loop &&
			req.SkipRatio == sampling.SkipRatio{Skipped: 1, Every: 3} &&
			req.Window.Start != nil && *req.Window.Start == 2 &&
			req.PublishKey == "gifs/"+created.ID+".gif"
	})).Return(func(_ context.Context, req gif.Request) (*gif.Result, error) {
		return &gif.Result{
			Metadata:        media.VideoMetadata{Width: 640, Height: 480, FPS: 30},
			FramesExtracted: 9,
			Plan:            sampling.Plan{Retained: []int{0, 1, 3, 4, 6, 7}, OutputFPS: 20},
			Delay:           5,
			Output:          req.Output,
			URL:             "https://bucket.s3.amazonaws.com/gifs/x.gif",
		}, nil
	}, nil)

	done, err := svc.ProcessExistingJob(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 9, done.FramesExtracted)
	assert.Equal(t, 6, done.FramesRetained)
	assert.Equal(t, 20, done.OutputFPS)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/gifs/x.gif", done.GifURL)
	assert.FileExists(t, done.OutputPath)
	assert.NoFileExists(t, created.InputVideoPath, "input video should be removed")
	runner.AssertExpectations(t)
}

func TestGifService_ProcessExistingJob_StageFailure(t *testing.T) {
	runner := &mockRunner{}
	svc, repo, dir := newTestService(t, runner)
	ctx := context.Background()

	created, err := svc.CreateJob(ctx, CreateInput{Video: strings.NewReader("video-bytes")})
	require.NoError(t, err)

	stageErr := &gif.StageError{Stage: gif.StageExtract, Err: fmt.Errorf("%w: no frames", media.ErrExtraction)}
	runner.On("Run", mock.Anything, mock.Anything).Return(nil, stageErr)
	failedBefore := testutil.ToFloat64(metrics.JobsFinishedTotal.WithLabelValues(string(StatusFailed)))

	failed, err := svc.ProcessExistingJob(ctx, created.ID)
	require.ErrorIs(t, err, media.ErrExtraction)
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.JobsFinishedTotal.WithLabelValues(string(StatusFailed))))

	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "extract")

	saved, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, saved.Status)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "input and reserved output should be removed")
}

func TestGifService_ProcessExistingJob_Timeout(t *testing.T) {
	runner := &mockRunner{}
	svc, _, _ := newTestService(t, runner, WithTimeout(10*time.Millisecond))
	ctx := context.Background()

	created, err := svc.CreateJob(ctx, CreateInput{Video: strings.NewReader("video-bytes")})
	require.NoError(t, err)

	runner.On("Run", mock.Anything, mock.Anything).Return(func(ctx context.Context, _ gif.Request) (*gif.Result, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		<-ctx.Done()
		return nil, &gif.StageError{Stage: gif.StageProbe, Err: ctx.Err()}
	}, nil)

	timedOut, err := svc.ProcessExistingJob(ctx, created.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusTimedOut, timedOut.Status)
}

func TestGifService_ProcessExistingJob_AlreadyStarted(t *testing.T) {
	svc, repo, _ := newTestService(t, &mockRunner{})
	ctx := context.Background()

	job := New()
	_ = job.Start()
	require.NoError(t, repo.Save(ctx, job))

	_, err := svc.ProcessExistingJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGifService_DeleteJob(t *testing.T) {
	svc, repo, dir := newTestService(t, &mockRunner{})
	ctx := context.Background()

	output := filepath.Join(dir, "out.gif")
	require.NoError(t, os.WriteFile(output, []byte("GIF89a"), 0o600))

	job := New()
	_ = job.Start()
	job.SetResult(output, "", 3, 3, 10)
	_ = job.Complete()
	require.NoError(t, repo.Save(ctx, job))

	require.NoError(t, svc.DeleteJob(ctx, job.ID))
	assert.NoFileExists(t, output)

	_, err := repo.FindByID(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestGifService_DeleteJob_InProgress(t *testing.T) {
	svc, repo, _ := newTestService(t, &mockRunner{})
	ctx := context.Background()

	job := New()
	_ = job.Start()
	require.NoError(t, repo.Save(ctx, job))

	err := svc.DeleteJob(ctx, job.ID)
	assert.True(t, errors.Is(err, ErrJobInProgress))
}
