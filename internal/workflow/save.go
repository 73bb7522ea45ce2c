// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"fmt"
	"os"
	"time"
)

// saveResult is the terminal phase. On success it commits the sandbox to
// an image before any teardown; then it cleans up the sandbox and the
// host checkout and writes the record. Cleanup failures are logged, never
// reported: the record reflects the run's outcome, not the teardown's.
func (e *Engine) saveResult(ctx context.Context, t *Task) *Record {
	completed := t.Success && t.Err == nil
	var exception string

	if completed {
		ref := fmt.Sprintf("%s:%s_%s", t.ImagePrefix, t.Instance.InstanceID, t.Platform)
		img, err := t.Session.Commit(ctx, ref)
		if err != nil {
			completed = false
			exception = fmt.Sprintf("failed to commit image: %v", err)
			e.Logger.Error("image commit failed", "error", err)
		} else {
			t.DockerImage = img
			e.Logger.Info("committed image", "image", img)
		}
	} else if t.Err != nil {
		exception = t.Err.Error()
	} else if t.CurrentIssue != "" {
		exception = fmt.Sprintf("%s: setup not verified after %d trials, last issue: %s",
			launchFailedPrefix, t.Trials, t.CurrentIssue)
	} else {
		exception = launchFailedPrefix
	}

	if t.Session != nil {
		if err := t.Session.Cleanup(ctx); err != nil {
			e.Logger.Warn("session cleanup failed", "error", err)
		}
	}
	if err := os.RemoveAll(t.RepoRoot); err != nil {
		e.Logger.Warn("checkout cleanup failed", "path", t.RepoRoot, "error", err)
	}

	rec := &Record{
		InstanceID:      t.Instance.InstanceID,
		BaseImage:       t.BaseImage,
		SetupCommands:   append([]string{}, t.SetupCommands...),
		TestCommands:    append([]string{}, t.TestCommands...),
		DurationMinutes: int(time.Since(t.StartTime).Minutes()),
		Completed:       completed,
	}
	if t.DockerImage != "" {
		rec.DockerImage = &t.DockerImage
	}
	if exception != "" {
		rec.Exception = &exception
	}

	if err := WriteRecord(t.ResultPath, rec); err != nil {
		e.Logger.Error("failed to write result", "path", t.ResultPath, "error", err)
	}
	e.Logger.Info("run finished", "completed", completed, "trials", t.Trials)
	return rec
}
