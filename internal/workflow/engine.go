// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"repolaunch/internal/config"
	"repolaunch/internal/language"
	"repolaunch/internal/llm"
	"repolaunch/internal/sandbox"
	"repolaunch/internal/search"
)

// SessionStarter launches a sandbox session for the task's base image.
type SessionStarter func(ctx context.Context, t *Task) (sandbox.Session, error)

// Engine sequences the phases for one run. Phases execute strictly in
// order; the sole conditional edge is Verify back to Setup, owned by the
// trial policy in Run. A phase error skips straight to the save phase.
type Engine struct {
	Limits       config.LimitsConfig
	Model        llm.Client
	Search       search.Searcher
	Advisor      language.Advisor
	StartSession SessionStarter
	Logger       *slog.Logger
}

// Run executes the full workflow for the task and returns the outcome
// record. Exactly one record is written per call, whatever the path.
func (e *Engine) Run(ctx context.Context, t *Task) *Record {
	phases := []struct {
		name string
		fn   Phase
	}{
		{"locate_related_files", e.locateRelatedFiles},
		{"select_base_image", e.selectBaseImage},
		{"start_session", e.startSession},
	}

	for _, p := range phases {
		e.Logger.Info("entering phase", "phase", p.name)
		patch, err := p.fn(ctx, t)
		if err != nil {
			t.Err = fmt.Errorf("%s: %w", p.name, err)
			return e.saveResult(ctx, t)
		}
		patch.Apply(t)
	}

	// Trial loop: Setup then Verify, re-entering Setup until verify
	// reports success, trials are exhausted, or a phase fails. Feedback
	// flows one way: the reported issue seeds the next setup.
	for {
		e.Logger.Info("entering phase", "phase", "setup", "trial", t.Trials+1)
		patch, err := e.setup(ctx, t)
		if err != nil {
			t.Err = fmt.Errorf("setup: %w", err)
			break
		}
		patch.Apply(t)

		e.Logger.Info("entering phase", "phase", "verify", "trial", t.Trials+1)
		patch, err = e.verify(ctx, t)
		if err != nil {
			t.Err = fmt.Errorf("verify: %w", err)
			break
		}
		patch.Apply(t)

		if t.Success || t.Trials >= e.Limits.MaxTrials {
			break
		}
		e.Logger.Info("verification failed, retrying setup",
			"trial", t.Trials, "issue", t.CurrentIssue)
	}

	return e.saveResult(ctx, t)
}
