package site

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	berrors "github.com/tverberg/blogsmith/internal/errors"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport captures high-level metrics about one site build.
type BuildReport struct {
	BuildID string
	Start   time.Time
	End     time.Time

	Posts           int // valid posts extracted
	PagesRendered   int // pages compiled and written
	ImagesProcessed int // variants generated this run
	ImagesSkipped   int // variants satisfied from the cache

	Errors         []error // fatal errors causing build abortion (at most one today)
	Warnings       []error // recoverable issues (asset failures, broken references)
	StageDurations map[string]time.Duration

	Outcome BuildOutcome
}

func newBuildReport() *BuildReport {
	return &BuildReport{
		BuildID:        uuid.NewString(),
		Start:          time.Now(),
		StageDurations: make(map[string]time.Duration),
	}
}

func (r *BuildReport) finish() {
	r.End = time.Now()
	r.deriveOutcome()
}

// Elapsed returns the total wall time of the build.
func (r *BuildReport) Elapsed() time.Duration {
	return r.End.Sub(r.Start)
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("posts=%d pages=%d images=%d skipped=%d warnings=%d errors=%d duration=%s outcome=%s",
		r.Posts, r.PagesRendered, r.ImagesProcessed, r.ImagesSkipped,
		len(r.Warnings), len(r.Errors), r.Elapsed().Truncate(time.Millisecond), r.Outcome)
}

// deriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *BuildReport) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if asStageError(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// addWarning records a recoverable issue.
func (r *BuildReport) addWarning(err error) {
	r.Warnings = append(r.Warnings, err)
}

// FatalCategories lists the distinct error categories of recorded fatal
// errors, for CLI display.
func (r *BuildReport) FatalCategories() []berrors.ErrorCategory {
	seen := map[berrors.ErrorCategory]struct{}{}
	var out []berrors.ErrorCategory
	for _, e := range r.Errors {
		cat := berrors.GetCategory(e)
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	return out
}
