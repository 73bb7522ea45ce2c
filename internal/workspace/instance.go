// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package workspace manages per-instance working directories: the scratch
// checkout, log and transcript locations, and the result file.
package workspace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Instance is one dataset entry: a repository pinned at a commit, plus
// optional advisory fields that get folded into the agent's framing.
type Instance struct {
	InstanceID string `json:"instance_id"`
	Repo       string `json:"repo"`
	BaseCommit string `json:"base_commit"`
	Language   string `json:"language"`

	// Hints, SetupCmds and TestCmds are optional free-text advice from
	// the dataset author, surfaced verbatim to the model.
	Hints     string `json:"hints,omitempty"`
	SetupCmds string `json:"setup_cmds,omitempty"`
	TestCmds  string `json:"test_cmds,omitempty"`
}

// CloneURL is the HTTPS clone URL for the instance's repository.
func (i Instance) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s.git", i.Repo)
}

// CommitURL points a human at the pinned tree.
func (i Instance) CommitURL() string {
	return fmt.Sprintf("https://github.com/%s/tree/%s", i.Repo, i.BaseCommit)
}

// LoadDataset reads a JSONL dataset file, one instance per line. Blank
// lines are skipped.
func LoadDataset(path string) ([]Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var instances []Instance
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var inst Instance
		if err := json.Unmarshal([]byte(text), &inst); err != nil {
			return nil, fmt.Errorf("failed to parse dataset line %d: %w", line, err)
		}
		if inst.InstanceID == "" {
			return nil, fmt.Errorf("dataset line %d has no instance_id", line)
		}
		instances = append(instances, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return instances, nil
}
