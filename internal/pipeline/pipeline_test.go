package pipeline

import (
	stdctx "context"
	"errors"
	"testing"

	"github.com/modx/enginerw/internal/pipe"
	"github.com/modx/enginerw/internal/pipeline/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name    string
	err     error
	skip    bool
	ran     *[]string
	toState context.State
}

func (j fakeJob) String() string { return j.name }

func (j fakeJob) Run(ctx *context.Context) error {
	*j.ran = append(*j.ran, j.name)
	if j.toState != 0 {
		ctx.Enter(j.toState)
	}
	return j.err
}

type skippingJob struct{ fakeJob }

func (j skippingJob) Skip(*context.Context) bool { return true }

func newCtx() *context.Context {
	return context.New(stdctx.Background(), context.Artifact{Platform: "Android", Architecture: "ARM64"})
}

func TestRunStopsOnSkip(t *testing.T) {
	var ran []string
	ctx := newCtx()
	err := Run(ctx,
		fakeJob{name: "discover", ran: &ran},
		fakeJob{name: "select", ran: &ran, err: pipe.Skip("no rules selected")},
		fakeJob{name: "patch", ran: &ran},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"discover", "select"}, ran)
	assert.Equal(t, context.Skipped, ctx.State)
	assert.Equal(t, "no rules selected", ctx.SkipReason)
}

func TestRunReturnsJobError(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	err := Run(newCtx(),
		fakeJob{name: "discover", ran: &ran, err: boom},
		fakeJob{name: "select", ran: &ran},
	)
	assert.True(t, errors.Is(err, boom))
	assert.EqualError(t, err, "discover: boom")
	assert.Equal(t, []string{"discover"}, ran)
}

func TestRunStopsAtTerminalState(t *testing.T) {
	var ran []string
	ctx := newCtx()
	require.NoError(t, Run(ctx,
		fakeJob{name: "finalize", ran: &ran, toState: context.Complete},
		fakeJob{name: "after", ran: &ran},
	))
	assert.Equal(t, []string{"finalize"}, ran)
}

func TestRunHonoursSkipper(t *testing.T) {
	var ran []string
	require.NoError(t, Run(newCtx(),
		skippingJob{fakeJob{name: "optional", ran: &ran}},
		fakeJob{name: "next", ran: &ran},
	))
	assert.Equal(t, []string{"next"}, ran)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "BOUND_DISASSEMBLY", context.BoundDisassembly.String())
	assert.Equal(t, "State(42)", context.State(42).String())
	assert.True(t, context.Skipped.Terminal())
	assert.False(t, context.Finalize.Terminal())
}
