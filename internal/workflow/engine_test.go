// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolaunch/internal/config"
	"repolaunch/internal/sandbox"
	"repolaunch/internal/workspace"
)

type fakeSession struct {
	commands  []string
	commits   []string
	cleanups  int
	commitErr error
}

func (s *fakeSession) SendCommand(_ context.Context, cmd string) (sandbox.CommandResult, error) {
	s.commands = append(s.commands, cmd)
	return sandbox.CommandResult{Stdout: "ok", ExitCode: 0}, nil
}

func (s *fakeSession) Commit(_ context.Context, ref string) (string, error) {
	if s.commitErr != nil {
		return "", s.commitErr
	}
	s.commits = append(s.commits, ref)
	return ref, nil
}

func (s *fakeSession) Cleanup(context.Context) error {
	s.cleanups++
	return nil
}

type fakeSearcher struct{ queries []string }

func (s *fakeSearcher) Search(_ context.Context, query string) (string, error) {
	s.queries = append(s.queries, query)
	return `[{"title":"result","content":"install with pip"}]`, nil
}

type fakeAdvisor struct{}

func (fakeAdvisor) Language() string                  { return "python" }
func (fakeAdvisor) BaseImages(string) []string        { return []string{"python:3.11", "python:3.10"} }
func (fakeAdvisor) SetupInstructions(string) string   { return "Install with pip install -e ." }

func newTestTask(t *testing.T) *Task {
	t.Helper()
	root := t.TempDir()
	repoRoot := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(repoRoot, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "README.md"), []byte("# demo\npip install -e ."), 0644))

	structure, err := workspace.Structure(repoRoot, 3)
	require.NoError(t, err)

	return &Task{
		Instance:      workspace.Instance{InstanceID: "org__repo-abc123", Repo: "org/repo", Language: "python"},
		Platform:      "linux",
		ImagePrefix:   "repolaunch/dev",
		RepoRoot:      repoRoot,
		ResultPath:    filepath.Join(root, "result.json"),
		StartTime:     time.Now(),
		RepoStructure: structure,
	}
}

func newTestEngine(model *scriptedModel, session *fakeSession) *Engine {
	return &Engine{
		Limits: config.LimitsConfig{
			MaxTrials:           2,
			MaxSetupSteps:       10,
			MaxVerifySteps:      10,
			SetupTimeoutMinutes: 30,
			ConversationWindow:  40,
		},
		Model:   model,
		Search:  &fakeSearcher{},
		Advisor: fakeAdvisor{},
		StartSession: func(context.Context, *Task) (sandbox.Session, error) {
			return session, nil
		},
		Logger: testLogger(),
	}
}

func TestEngineRunHappyPath(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>python:3.11</image>",
		"Thought: install\nAction: <command>pip install -e .</command>",
		"Thought: done\nAction: <stop></stop>",
		"Thought: run tests\nAction: <command>pytest -rA</command>",
		"Thought: all passing\nAction: <issue>None</issue>",
	}}
	session := &fakeSession{}
	e := newTestEngine(model, session)
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)

	require.NotNil(t, rec)
	assert.True(t, rec.Completed)
	assert.Nil(t, rec.Exception)
	assert.Equal(t, "org__repo-abc123", rec.InstanceID)
	assert.Equal(t, "python:3.11", rec.BaseImage)
	require.NotNil(t, rec.DockerImage)
	assert.Equal(t, "repolaunch/dev:org__repo-abc123_linux", *rec.DockerImage)
	assert.Equal(t, []string{"pip install -e ."}, rec.SetupCommands)
	assert.Equal(t, []string{"pytest -rA"}, rec.TestCommands)

	assert.Equal(t, []string{"pip install -e .", "pytest -rA"}, session.commands)
	assert.Equal(t, []string{"repolaunch/dev:org__repo-abc123_linux"}, session.commits)
	assert.Equal(t, 1, session.cleanups)
	assert.Equal(t, 1, task.Trials)

	// The host checkout is gone and the record is on disk.
	_, err := os.Stat(task.RepoRoot)
	assert.True(t, os.IsNotExist(err))
	stored, err := ReadRecord(task.ResultPath)
	require.NoError(t, err)
	assert.Equal(t, rec.Completed, stored.Completed)
}

func TestEngineRunRetriesSetupAfterVerifyIssue(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>python:3.11</image>",
		// Trial 1.
		"Action: <command>pip install -e .</command>",
		"Action: <stop></stop>",
		"Action: <command>pytest -rA</command>",
		"Action: <issue>pytest is not installed</issue>",
		// Trial 2.
		"Action: <command>pip install pytest</command>",
		"Action: <stop></stop>",
		"Action: <command>pytest -rA</command>",
		"Action: <issue>None</issue>",
	}}
	session := &fakeSession{}
	e := newTestEngine(model, session)
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)

	assert.True(t, rec.Completed)
	assert.Equal(t, 2, task.Trials)
	assert.Equal(t, []string{"pip install -e .", "pip install pytest"}, rec.SetupCommands)
	assert.Equal(t, []string{"pytest -rA", "pytest -rA"}, rec.TestCommands)

	// The second setup's framing carries the failed verify conversation
	// and the failure notice.
	trial2Setup := model.inputs[7]
	var noticed, seeded bool
	for _, msg := range trial2Setup {
		if strings.Contains(msg.Content, "Test cases did not run successfully") {
			noticed = true
		}
		if strings.Contains(msg.Content, "pytest is not installed") {
			seeded = true
		}
	}
	assert.True(t, noticed, "failure notice missing from retry framing")
	assert.True(t, seeded, "verify transcript not seeded into retry framing")
}

func TestEngineRunExhaustsTrials(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>python:3.11</image>",
		"Action: <stop></stop>",
		"Action: <issue>tests cannot be collected</issue>",
		"Action: <stop></stop>",
		"Action: <issue>tests still cannot be collected</issue>",
	}}
	session := &fakeSession{}
	e := newTestEngine(model, session)
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)

	assert.False(t, rec.Completed)
	assert.Nil(t, rec.DockerImage)
	require.NotNil(t, rec.Exception)
	assert.Contains(t, *rec.Exception, "tests still cannot be collected")
	assert.True(t, strings.HasPrefix(*rec.Exception, "Launch failed"))
	assert.True(t, rec.Settled(), "an exhausted run must not be retried by a later batch")
	assert.Equal(t, 2, task.Trials)
	assert.Empty(t, session.commits)
	assert.Equal(t, 1, session.cleanups)
}

func TestEngineSetupDeadlineElapsedStillVerifies(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>python:3.11</image>",
		// Setup takes no turns: its wall-clock budget is already spent.
		"Action: <command>pytest -rA</command>",
		"Action: <issue>None</issue>",
	}}
	session := &fakeSession{}
	e := newTestEngine(model, session)
	task := newTestTask(t)
	task.StartTime = time.Now().Add(-time.Hour) // budget is 30 minutes

	rec := e.Run(context.Background(), task)

	assert.True(t, rec.Completed, "a timed-out setup can still verify clean")
	assert.Empty(t, rec.SetupCommands)
	assert.Equal(t, []string{"pytest -rA"}, rec.TestCommands)
	assert.Equal(t, 1, task.Trials)
	require.NotNil(t, rec.DockerImage)
}

func TestEngineVerifyFramingCarriesInstanceHints(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>python:3.11</image>",
		"Action: <stop></stop>",
		"Action: <issue>None</issue>",
	}}
	session := &fakeSession{}
	e := newTestEngine(model, session)
	task := newTestTask(t)
	task.Instance.SetupCmds = "pip install -e '.[dev]'"
	task.Instance.TestCmds = "pytest -q tests/"

	rec := e.Run(context.Background(), task)
	require.True(t, rec.Completed)

	verifyFraming := model.inputs[4]
	var setupHint, testHint bool
	for _, msg := range verifyFraming {
		if strings.Contains(msg.Content, "pip install -e '.[dev]'") {
			setupHint = true
		}
		if strings.Contains(msg.Content, "pytest -q tests/") {
			testHint = true
		}
	}
	assert.True(t, setupHint, "setup_cmds hint missing from verify framing")
	assert.True(t, testHint, "test_cmds hint missing from verify framing")
}

func TestEngineRecordWritesEmptyCommandArrays(t *testing.T) {
	// Fails in locate, before any command ran.
	model := &scriptedModel{}
	e := newTestEngine(model, &fakeSession{})
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)
	require.False(t, rec.Completed)

	data, err := os.ReadFile(task.ResultPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"setup_commands": []`)
	assert.Contains(t, string(data), `"test_commands": []`)
}

func TestEngineRunPhaseErrorShortCircuitsToResult(t *testing.T) {
	// Empty script: the very first locate invocation fails.
	model := &scriptedModel{}
	session := &fakeSession{}
	e := newTestEngine(model, session)
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)

	assert.False(t, rec.Completed)
	require.NotNil(t, rec.Exception)
	assert.Contains(t, *rec.Exception, "locate_related_files")
	assert.Zero(t, session.cleanups, "no session was started")

	stored, err := ReadRecord(task.ResultPath)
	require.NoError(t, err)
	assert.False(t, stored.Completed)
}

func TestEngineRunCommitFailureDowngradesToFailed(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>python:3.11</image>",
		"Action: <stop></stop>",
		"Action: <issue>None</issue>",
	}}
	session := &fakeSession{commitErr: os.ErrPermission}
	e := newTestEngine(model, session)
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)

	assert.False(t, rec.Completed)
	require.NotNil(t, rec.Exception)
	assert.Contains(t, *rec.Exception, "failed to commit image")
	assert.Nil(t, rec.DockerImage)
	assert.Equal(t, 1, session.cleanups, "cleanup still runs after a failed commit")
}

func TestEngineRunOffListImageGetsCorrected(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>debian:stable</image>",
		"<image>python:3.10</image>",
		"Action: <stop></stop>",
		"Action: <issue>None</issue>",
	}}
	session := &fakeSession{}
	e := newTestEngine(model, session)
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)

	assert.True(t, rec.Completed)
	assert.Equal(t, "python:3.10", rec.BaseImage)
}

func TestEngineSearchActionUsesSearcher(t *testing.T) {
	model := &scriptedModel{responses: []string{
		"<file>README.md</file>",
		"<rel>Yes</rel>",
		"<image>python:3.11</image>",
		"Action: <search>how to install demo project</search>",
		"Action: <stop></stop>",
		"Action: <issue>None</issue>",
	}}
	session := &fakeSession{}
	searcher := &fakeSearcher{}
	e := newTestEngine(model, session)
	e.Search = searcher
	task := newTestTask(t)

	rec := e.Run(context.Background(), task)

	assert.True(t, rec.Completed)
	assert.Equal(t, []string{"how to install demo project"}, searcher.queries)
	assert.Empty(t, rec.SetupCommands, "a search is not a setup command")
}
