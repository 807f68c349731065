// Package middleware define middlewares for Jobs.
package middleware

import "github.com/modx/enginerw/internal/pipeline/context"

// Action is a function that takes a context and returns an error.
// Every pipeline Job's Run method is wrapped into one.
type Action func(ctx *context.Context) error
