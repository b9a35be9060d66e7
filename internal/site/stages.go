package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tverberg/blogsmith/internal/logfields"
)

// Stage is one step of the build pipeline. A stage mutates the shared
// BuildState and may record warnings on the report; returning a non-nil
// error aborts the pipeline unless the error is a warning-kind StageError.
type Stage func(ctx context.Context, bs *BuildState) error

// StageErrorKind classifies how the pipeline reacts to a stage failure.
type StageErrorKind int

const (
	// StageErrorFatal aborts the build. The staging directory is discarded
	// and the previous output is left untouched.
	StageErrorFatal StageErrorKind = iota
	// StageErrorWarning is recorded on the report; the build continues.
	StageErrorWarning
	// StageErrorCanceled means the context was canceled mid-build.
	StageErrorCanceled
)

// StageError wraps an error with the stage it occurred in and its kind.
type StageError struct {
	Stage string
	Kind  StageErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fatalStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: StageErrorFatal, Err: err}
}

func asStageError(err error, target **StageError) bool {
	return errors.As(err, target)
}

type namedStage struct {
	name string
	fn   Stage
}

// runStages executes the pipeline stages in order, recording per-stage
// durations on the report. A fatal or canceled stage error stops the run.
func runStages(ctx context.Context, bs *BuildState, stages []namedStage) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: st.name, Kind: StageErrorCanceled, Err: err}
		}

		start := time.Now()
		slog.Debug("Stage starting", logfields.BuildID(bs.Report.BuildID), logfields.Stage(st.name))
		err := st.fn(ctx, bs)
		elapsed := time.Since(start)
		bs.Report.StageDurations[st.name] = elapsed

		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					se = &StageError{Stage: st.name, Kind: StageErrorCanceled, Err: err}
				} else {
					se = fatalStageError(st.name, err)
				}
			}
			switch se.Kind {
			case StageErrorWarning:
				bs.Report.addWarning(se)
				slog.Warn("Stage completed with warnings",
					logfields.Stage(st.name), logfields.DurationMS(elapsed), logfields.Error(se.Err))
				continue
			case StageErrorCanceled:
				slog.Info("Build canceled", logfields.Stage(st.name))
				return se
			default:
				slog.Error("Stage failed",
					logfields.Stage(st.name), logfields.DurationMS(elapsed), logfields.Error(se.Err))
				return se
			}
		}

		slog.Debug("Stage complete", logfields.Stage(st.name), logfields.DurationMS(elapsed))
	}
	return nil
}
