package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

// ExitError is returned when a tool exits with a non-zero status.
type ExitError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s %s failed (exit status %d): %s",
		filepath.Base(e.Tool), strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Run executes tool with args in dir (the current directory when empty) and
// returns its standard output. It blocks until the tool exits.
func Run(ctx context.Context, dir, tool string, args ...string) (string, error) {
	log.WithFields(log.Fields{
		"tool": tool,
		"args": strings.Join(args, " "),
	}).Debug("RunProcess")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			return "", &ExitError{
				Tool:     tool,
				Args:     args,
				ExitCode: xerr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return "", errors.Wrapf(err, "failed to run %s", filepath.Base(tool))
	}

	return stdout.String(), nil
}
