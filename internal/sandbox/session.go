// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package sandbox runs shell commands inside an isolated container with a
// persistent filesystem, and can materialize that filesystem as an image.
package sandbox

import (
	"context"
	"fmt"
	"strings"
)

// Session is one live sandbox. All calls block for the duration of the
// external operation; Cleanup is idempotent.
type Session interface {
	// SendCommand executes one shell command and returns its output.
	// Command failures are data, not errors: a non-zero exit status comes
	// back in the result. The error is reserved for sandbox-level faults.
	SendCommand(ctx context.Context, cmd string) (CommandResult, error)

	// Commit materializes the container state under the given image
	// reference and returns the reference it was stored as.
	Commit(ctx context.Context, ref string) (string, error)

	// Cleanup stops and removes the container. Safe to call twice.
	Cleanup(ctx context.Context) error
}

// CommandResult is the outcome of one executed command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// maxObservationLen bounds the observation fed back to the model; test
// suites can print megabytes and would blow the context otherwise.
const maxObservationLen = 16000

// Observation renders the result as the single observation string shown
// to the model. Overlong output keeps the head and tail, the middle is
// elided.
func (r CommandResult) Observation() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "exit code: %d\n", r.ExitCode)
	if r.Stdout != "" {
		sb.WriteString("stdout:\n")
		sb.WriteString(r.Stdout)
		sb.WriteString("\n")
	}
	if r.Stderr != "" {
		sb.WriteString("stderr:\n")
		sb.WriteString(r.Stderr)
		sb.WriteString("\n")
	}
	return truncateMiddle(sb.String(), maxObservationLen)
}

func truncateMiddle(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	const marker = "\n... (output truncated) ...\n"
	head := limit * 3 / 4
	tail := limit - head - len(marker)
	return s[:head] + marker + s[len(s)-tail:]
}
