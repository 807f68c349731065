// Package pipeline runs the jobs that take one artifact from discovery to a
// terminal state.
package pipeline

import (
	"fmt"

	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/internal/pipeline/middleware/errhandler"
	"github.com/modx/enginerw/internal/pipeline/middleware/skip"
)

// Job defines a pipe, which can be part of a pipeline (a series of pipes).
type Job interface {
	fmt.Stringer

	// Run the pipe
	Run(ctx *context.Context) error
}

// Run executes jobs in order until one fails or the artifact reaches a
// terminal state.
func Run(ctx *context.Context, jobs ...Job) error {
	for _, job := range jobs {
		if err := skip.Maybe(job, errhandler.Handle(job.Run))(ctx); err != nil {
			return fmt.Errorf("%s: %w", job.String(), err)
		}
		if ctx.State.Terminal() {
			return nil
		}
	}
	return nil
}
