// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"fmt"
	"strings"

	"repolaunch/internal/action"
	"repolaunch/internal/conversation"
)

// verifyConversationWindow is narrower than the setup window: the verify
// loop is short and its full transcript is re-seeded into the next setup
// on failure.
const verifyConversationWindow = 20

// verify is the ReAct phase that runs the project's tests inside the
// sandbox and ends with an issue report. <issue>None</issue> marks the
// trial successful; anything else becomes the current issue and the
// verify transcript seeds the next setup attempt. Verify is bounded by
// steps only, never by the wall clock.
func (e *Engine) verify(ctx context.Context, t *Task) (Patch, error) {
	prefix := []conversation.Message{
		conversation.System(fmt.Sprintf(verifySystemPrompt, t.BaseImage, strings.Join(t.Commands, "\n"))),
		conversation.User(fmt.Sprintf(reactPrompt, verifyActions, t.RepoStructure, t.Docs) + verifyHints(t)),
	}
	buf := conversation.NewBuffer(verifyConversationWindow, prefix...)

	var (
		testCommands []string
		success      bool
		issue        string
	)

	loop := &Loop{
		Model:  e.Model,
		Buffer: buf,
		Parser: action.VerifyParser{},
		Execute: func(ctx context.Context, act *action.Action) (ExecResult, error) {
			if act == nil {
				return ExecResult{Observation: fmt.Sprintf(formatCorrection, verifyActions)}, nil
			}
			switch act.Kind {
			case action.KindCommand:
				testCommands = append(testCommands, act.Args)
				res, err := t.Session.SendCommand(ctx, act.Args)
				if err != nil {
					return ExecResult{}, err
				}
				return ExecResult{Observation: res.Observation()}, nil
			case action.KindIssue:
				if act.NoIssue() {
					success = true
					return ExecResult{Terminal: true}, nil
				}
				issue = act.Args
				return ExecResult{Terminal: true, Observation: "Issue reported: " + act.Args}, nil
			default:
				return ExecResult{Observation: fmt.Sprintf(formatCorrection, verifyActions)}, nil
			}
		},
		MaxSteps: e.Limits.MaxVerifySteps,
		Logger:   e.Logger,
	}

	outcome, err := loop.Run(ctx)
	if err != nil {
		return Patch{}, err
	}
	if !outcome.Terminated && !success {
		issue = "verification did not reach a conclusion within the step limit"
	}
	e.Logger.Info("verify loop finished",
		"steps", outcome.Steps, "success", success, "issue", issue)

	return Patch{
		TestCommands: testCommands,
		Commands:     testCommands,
		VerifySeed:   buf.Tail(),
		CurrentIssue: &issue,
		Success:      &success,
		TrialsDelta:  1,
	}, nil
}

// verifyHints folds the instance's advisory fields into the verify
// framing, same shape as the setup side.
func verifyHints(t *Task) string {
	var sb strings.Builder
	if t.Instance.SetupCmds != "" {
		fmt.Fprintf(&sb, "\nHints: this is the build commands used to build this repo other developers used in other platforms that may help you understand how this repo was built. <command>%s</command>", t.Instance.SetupCmds)
	}
	if t.Platform == "windows" {
		sb.WriteString("\n\nNote: This is a windows server image. Use windows powershell commands.\n")
	}
	if t.Instance.TestCmds != "" {
		fmt.Fprintf(&sb, "\nHints: this is the test command used for this repo other developers used in other platforms that may help you verify whether the setup is successful. <command>%s</command>", t.Instance.TestCmds)
	}
	return sb.String()
}
