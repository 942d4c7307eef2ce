package gif

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned when a request fails validation.
var ErrInvalidRequest = errors.New("invalid request")

// Stage names a step of the pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageProbe    Stage = "probe"
	StageScratch  Stage = "scratch"
	StageExtract  Stage = "extract"
	StageSample   Stage = "sample"
	StageAssemble Stage = "assemble"
	StagePublish  Stage = "publish"
)

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, or "" if err did not come
// from a pipeline stage.
func FailedStage(err error) Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
