package errhandler

import (
	"github.com/apex/log"
	"github.com/modx/enginerw/internal/pipe"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/modx/enginerw/internal/pipeline/middleware"
)

// Handle handles an action error. A pipe skip is logged and marks the
// artifact SKIPPED; any other error is returned unchanged.
func Handle(action middleware.Action) middleware.Action {
	return func(ctx *context.Context) error {
		err := action(ctx)
		if err == nil {
			return nil
		}
		if pipe.IsSkip(err) {
			log.WithFields(log.Fields{
				"target": ctx.Target(),
				"reason": err.Error(),
			}).Info("Skipping")
			ctx.SkipReason = err.Error()
			ctx.Enter(context.Skipped)
			return nil
		}
		return err
	}
}
