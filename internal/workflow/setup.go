// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repolaunch/internal/action"
	"repolaunch/internal/conversation"
)

// setup is the ReAct phase that installs dependencies inside the sandbox
// until the model declares the environment ready (or limits hit). On a
// retry trial the previous verify conversation and its failure notice are
// pinned into the framing so the model knows what went wrong.
func (e *Engine) setup(ctx context.Context, t *Task) (Patch, error) {
	actions := setupActions(t.Platform)

	prefix := []conversation.Message{
		conversation.System(fmt.Sprintf(setupSystemPrompt, t.BaseImage, e.Advisor.SetupInstructions(t.Platform))),
		conversation.User(fmt.Sprintf(reactPrompt, actions, t.RepoStructure, t.Docs) + setupHints(t)),
	}
	if len(t.VerifySeed) > 0 {
		prefix = append(prefix, t.VerifySeed...)
		prefix = append(prefix, conversation.User(
			"Test cases did not run successfully. The setup of the repository is not successful so far."))
	}

	buf := conversation.NewBuffer(e.Limits.ConversationWindow, prefix...)

	// Command history is cumulative across trials; the bridge message
	// keeps commands outside the visible window from being retried.
	commands := append([]string(nil), t.SetupCommands...)
	var newCommands []string

	loop := &Loop{
		Model:  e.Model,
		Buffer: buf,
		Parser: action.SetupParser{},
		Execute: func(ctx context.Context, act *action.Action) (ExecResult, error) {
			if act == nil {
				return ExecResult{Observation: fmt.Sprintf(formatCorrection, actions)}, nil
			}
			switch act.Kind {
			case action.KindCommand:
				commands = append(commands, act.Args)
				newCommands = append(newCommands, act.Args)
				res, err := t.Session.SendCommand(ctx, act.Args)
				if err != nil {
					return ExecResult{}, err
				}
				return ExecResult{Observation: res.Observation()}, nil
			case action.KindSearch:
				out, err := e.Search.Search(ctx, act.Args)
				if err != nil {
					return ExecResult{}, err
				}
				return ExecResult{Observation: out}, nil
			case action.KindStop:
				return ExecResult{Terminal: true}, nil
			default:
				return ExecResult{Observation: fmt.Sprintf(formatCorrection, actions)}, nil
			}
		},
		Bridge: func() []conversation.Message {
			return []conversation.Message{conversation.User(fmt.Sprintf(
				"\nThe previous commands which you have run to try to set up the repository:```\n%s```\nFollowing are the last %d messages:\n",
				strings.Join(commands, "\n"), e.Limits.ConversationWindow))}
		},
		MaxSteps: e.Limits.MaxSetupSteps,
		Deadline: t.StartTime.Add(time.Duration(e.Limits.SetupTimeoutMinutes) * time.Minute),
		Logger:   e.Logger,
	}

	outcome, err := loop.Run(ctx)
	if err != nil {
		return Patch{}, err
	}
	e.Logger.Info("setup loop finished",
		"steps", outcome.Steps, "stopped", outcome.Terminated, "timed_out", outcome.TimedOut)

	return Patch{
		SetupCommands: newCommands,
		Commands:      newCommands,
	}, nil
}

// setupHints folds the instance's advisory fields into the framing.
func setupHints(t *Task) string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	if t.Instance.Hints != "" {
		fmt.Fprintf(&sb, "\nAdditional hints from user that may help you set up / test the repo: <check>%s</check>.\n", t.Instance.Hints)
	}
	if t.Instance.SetupCmds != "" {
		fmt.Fprintf(&sb, "\nHints: this is the build commands used to build this repo other developers used in other platforms that may help you understand how to build the program. <command>%s</command>", t.Instance.SetupCmds)
	}
	if t.Instance.TestCmds != "" {
		fmt.Fprintf(&sb, "\nHints: this is the test command used for this repo other developers used in other platforms that may help you verify whether your build is successful. <command>%s</command>", t.Instance.TestCmds)
	}
	if t.Platform == "windows" {
		sb.WriteString("\n\nNote: This is a windows server image. Use windows powershell commands.\n")
	}
	return sb.String()
}
