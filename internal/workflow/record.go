// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// launchFailedPrefix marks exceptions where the trial policy ran out, as
// opposed to a transient fault (infra error, model outage).
const launchFailedPrefix = "Launch failed"

// Record is the immutable terminal artifact for one run. Written exactly
// once, after cleanup, and never mutated afterwards.
type Record struct {
	InstanceID      string   `json:"instance_id"`
	BaseImage       string   `json:"base_image"`
	DockerImage     *string  `json:"docker_image"`
	SetupCommands   []string `json:"setup_commands"`
	TestCommands    []string `json:"test_commands"`
	DurationMinutes int      `json:"duration_minutes"`
	Completed       bool     `json:"completed"`
	Exception       *string  `json:"exception"`
}

// Settled reports whether the outcome needs no re-run: the environment
// was built, or the trial policy was exhausted. A record holding a
// transient fault is not settled; a re-invoked batch tries it again.
func (r *Record) Settled() bool {
	if r.Completed {
		return true
	}
	return r.Exception != nil && strings.HasPrefix(*r.Exception, launchFailedPrefix)
}

// WriteRecord persists the record, creating parent directories as needed.
func WriteRecord(path string, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// ReadRecord loads a previously written record.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &rec, nil
}
