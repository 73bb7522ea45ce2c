// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package workflow drives one repository-bootstrap run: the phase state
// machine (locate docs, select base image, start session, setup, verify,
// save result), the ReAct loops inside the setup and verify phases, the
// bounded retry policy between them, and the terminal result commit.
package workflow

import (
	"context"
	"time"

	"repolaunch/internal/conversation"
	"repolaunch/internal/sandbox"
	"repolaunch/internal/workspace"
)

// Task is the single mutable record threaded through every phase of one
// run. Phases never write it directly: each returns a Patch with the
// fields it changed and the engine merges. Fields accumulate; nothing is
// rolled back.
type Task struct {
	Instance    workspace.Instance
	Platform    string
	ImagePrefix string

	// RepoRoot is the host-side scratch checkout. Removed once the
	// sandbox holds the code.
	RepoRoot   string
	ResultPath string
	StartTime  time.Time

	// RepoStructure is the rendered project tree shown to the model.
	// Shrunk to depth 1 after the locate phase.
	RepoStructure string

	// Docs is the concatenated content of setup-relevant files found by
	// the locate phase.
	Docs string

	BaseImage string
	Session   sandbox.Session

	// SetupCommands and TestCommands accumulate across trials and end up
	// in the outcome record. Commands is the union, in execution order.
	SetupCommands []string
	TestCommands  []string
	Commands      []string

	// VerifySeed carries the previous trial's verify conversation into
	// the next setup phase's framing. Feedback flows one way only.
	VerifySeed []conversation.Message

	// CurrentIssue is the last issue verify reported, "" if none yet.
	CurrentIssue string

	// Trials counts completed setup/verify cycles. Strictly increasing.
	Trials int

	Success bool

	// Err is the first phase error; it short-circuits remaining phases.
	Err error

	// DockerImage is the committed artifact reference, set on success.
	DockerImage string
}

// NewTask builds the initial task context for an instance.
func NewTask(inst workspace.Instance, ws *workspace.Workspace, platform, imagePrefix string) *Task {
	return &Task{
		Instance:    inst,
		Platform:    platform,
		ImagePrefix: imagePrefix,
		RepoRoot:    ws.RepoRoot,
		ResultPath:  ws.ResultPath,
		StartTime:   time.Now(),
	}
}

// Patch is the set of fields one phase changed. Nil pointers and empty
// slices leave the task untouched; slice fields append.
type Patch struct {
	RepoStructure *string
	Docs          *string
	BaseImage     *string
	Session       sandbox.Session

	SetupCommands []string
	TestCommands  []string
	Commands      []string

	VerifySeed   []conversation.Message
	CurrentIssue *string
	Success      *bool
	TrialsDelta  int
	DockerImage  *string
}

// Apply merges the patch into the task.
func (p Patch) Apply(t *Task) {
	if p.RepoStructure != nil {
		t.RepoStructure = *p.RepoStructure
	}
	if p.Docs != nil {
		t.Docs = *p.Docs
	}
	if p.BaseImage != nil {
		t.BaseImage = *p.BaseImage
	}
	if p.Session != nil {
		t.Session = p.Session
	}
	t.SetupCommands = append(t.SetupCommands, p.SetupCommands...)
	t.TestCommands = append(t.TestCommands, p.TestCommands...)
	t.Commands = append(t.Commands, p.Commands...)
	if p.VerifySeed != nil {
		t.VerifySeed = p.VerifySeed
	}
	if p.CurrentIssue != nil {
		t.CurrentIssue = *p.CurrentIssue
	}
	if p.Success != nil {
		t.Success = *p.Success
	}
	t.Trials += p.TrialsDelta
	if p.DockerImage != nil {
		t.DockerImage = *p.DockerImage
	}
}

// Phase is one step of the state machine: current context in, changed
// fields out. An error short-circuits the run to the save phase.
type Phase func(ctx context.Context, t *Task) (Patch, error)
