package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Adapter dispatches commands to the gateway. Invoke returns the tool's
// exit code once it has run. An error means the tool could not be run at
// all; implementations report that as a *StartError.
type Adapter interface {
	Invoke(ctx context.Context, req Request) (int, error)
}

// StartError reports that the command utility could not be started.
type StartError struct {
	Path string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("could not run command %s: %v", e.Path, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ExecAdapter runs g2link_test as a child process.
type ExecAdapter struct {
	// Path is the g2link_test executable.
	Path string
	// Stdout and Stderr can be set for testing; defaults to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Invoke runs the tool and waits for it. A process that exits non-zero is
// not an error here; its exit code is returned for the caller to judge.
// When ctx is done the context's error is returned as is.
func (a *ExecAdapter) Invoke(ctx context.Context, req Request) (int, error) {
	cmd := exec.CommandContext(ctx, a.Path, req.Args()...)

	stdout := a.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := a.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	// A cancelled run is neither a start failure nor a tool result.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, &StartError{Path: a.Path, Err: err}
}
