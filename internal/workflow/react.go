// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"log/slog"
	"time"

	"repolaunch/internal/action"
	"repolaunch/internal/conversation"
	"repolaunch/internal/llm"
)

// ExecResult is what executing one action produced: the observation fed
// back to the model, and whether the action terminates the loop.
type ExecResult struct {
	Observation string
	Terminal    bool
}

// Loop is the generic ReAct step loop shared by the setup and verify
// phases. Each step renders the windowed context, invokes the model,
// parses the response into an action, executes it, and appends the
// observation. A malformed response gets a corrective observation from
// the executor (a nil action) and still consumes a step.
type Loop struct {
	Model  llm.Client
	Buffer *conversation.Buffer
	Parser action.Parser

	// Execute runs one action. It receives nil for malformed responses
	// and must return the corrective observation in that case. An error
	// aborts the phase.
	Execute func(ctx context.Context, act *action.Action) (ExecResult, error)

	// Bridge, when set, synthesizes per-turn messages placed between the
	// buffer prefix and the visible tail (e.g. a command history summary).
	Bridge func() []conversation.Message

	MaxSteps int

	// Deadline, when nonzero, stops the loop before a step whose start
	// would exceed it. Used by setup only; verify runs unbounded in time.
	Deadline time.Time

	Logger *slog.Logger
}

// LoopOutcome describes why the loop ended.
type LoopOutcome struct {
	Steps int

	// Terminated is true when the phase's terminal action was executed.
	// False means the loop ran out of steps or time: the caller treats
	// that as incomplete, not as failure.
	Terminated bool
	TimedOut   bool
}

// Run drives the loop to completion. The returned error is a phase
// error (model or collaborator failure), never a malformed response.
func (l *Loop) Run(ctx context.Context) (LoopOutcome, error) {
	var out LoopOutcome

	for out.Steps < l.MaxSteps {
		if !l.Deadline.IsZero() && time.Now().After(l.Deadline) {
			out.TimedOut = true
			l.Logger.Info("react loop hit wall-clock deadline", "steps", out.Steps)
			return out, nil
		}
		out.Steps++

		var bridge []conversation.Message
		if l.Bridge != nil {
			bridge = l.Bridge()
		}

		resp, err := l.Model.Invoke(ctx, l.Buffer.Render(bridge...))
		if err != nil {
			return out, err
		}
		l.Buffer.Append(resp)
		l.Logger.Debug("model response", "step", out.Steps, "content", resp.Content)

		act := l.Parser.Parse(resp.Content)
		res, err := l.Execute(ctx, act)
		if err != nil {
			return out, err
		}

		if res.Terminal {
			out.Terminated = true
			if res.Observation != "" {
				l.Buffer.Append(conversation.User("Observation:\n" + res.Observation))
			}
			return out, nil
		}
		l.Buffer.Append(conversation.User("Observation:\n" + res.Observation))
	}

	return out, nil
}
