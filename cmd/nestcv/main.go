package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // every task succeeded
	ExitTasksFailed = 1 // the run finished but some tasks failed
	ExitError       = 2 // configuration or runtime error
)

// TaskFailureError indicates that the run completed but one or more tasks
// failed. Re-running the same command retries only those tasks.
type TaskFailureError struct {
	Failed int
	Keys   []string
}

func (e *TaskFailureError) Error() string {
	return fmt.Sprintf("%d task(s) failed; re-run to retry them", e.Failed)
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var failed *TaskFailureError
	if errors.As(err, &failed) {
		return ExitTasksFailed
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
