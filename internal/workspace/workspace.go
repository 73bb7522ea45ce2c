// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bitfield/script"
)

// Workspace is the per-instance directory layout:
//
//	<root>/<instance_id>/
//	    repo/          scratch checkout (removed once the sandbox has it)
//	    llm/           numbered model transcripts
//	    instance.json  the dataset entry, for provenance
//	    setup.log      per-run log
//	    result.json    the immutable outcome record
type Workspace struct {
	InstanceID    string
	Root          string
	RepoRoot      string
	ResultPath    string
	TranscriptDir string
	Logger        *slog.Logger

	logFile *os.File
}

// Prepare builds the workspace for an instance: directories, provenance
// file, scratch clone pinned at the base commit, and the run logger.
func Prepare(root string, inst Instance) (*Workspace, error) {
	dir := filepath.Join(root, inst.InstanceID)
	transcriptDir := filepath.Join(dir, "llm")
	if err := os.MkdirAll(transcriptDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode instance: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "instance.json"), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write instance.json: %w", err)
	}

	repoRoot := filepath.Join(dir, "repo")
	if err := cloneAt(inst, repoRoot); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "setup.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(logFile, nil)).With("instance_id", inst.InstanceID)

	return &Workspace{
		InstanceID:    inst.InstanceID,
		Root:          dir,
		RepoRoot:      repoRoot,
		ResultPath:    filepath.Join(dir, "result.json"),
		TranscriptDir: transcriptDir,
		Logger:        logger,
		logFile:       logFile,
	}, nil
}

// cloneAt clones the instance repository and pins it at the base commit.
// An existing checkout is reused as is.
func cloneAt(inst Instance, repoRoot string) error {
	if _, err := os.Stat(repoRoot); err == nil {
		return nil
	}

	clone := fmt.Sprintf("git clone %q %q", inst.CloneURL(), repoRoot)
	if _, err := script.Exec(clone).String(); err != nil {
		return fmt.Errorf("failed to clone %s: %w", inst.Repo, err)
	}

	reset := fmt.Sprintf("git -C %q reset --hard %s", repoRoot, inst.BaseCommit)
	if _, err := script.Exec(reset).String(); err != nil {
		return fmt.Errorf("failed to check out %s at %s: %w", inst.Repo, inst.BaseCommit, err)
	}
	return nil
}

// Close releases the log file handle.
func (w *Workspace) Close() error {
	if w.logFile == nil {
		return nil
	}
	err := w.logFile.Close()
	w.logFile = nil
	return err
}

// RemoveCheckout deletes the scratch clone. Idempotent.
func (w *Workspace) RemoveCheckout() {
	os.RemoveAll(w.RepoRoot)
}

// ResultPathFor returns where an instance's outcome record lives under a
// workspace root, without preparing the workspace.
func ResultPathFor(root, instanceID string) string {
	return filepath.Join(root, instanceID, "result.json")
}
