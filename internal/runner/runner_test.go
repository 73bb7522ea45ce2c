// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolaunch/internal/config"
	"repolaunch/internal/workflow"
	"repolaunch/internal/workspace"
)

func writeDataset(t *testing.T, n int) string {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, `{"instance_id":"inst-%d","repo":"org/repo-%d","base_commit":"abc","language":"python"}`+"\n", i, i)
	}
	path := filepath.Join(t.TempDir(), "dataset.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func testConfig(t *testing.T, dataset string) *config.Config {
	return &config.Config{
		Dataset:       dataset,
		WorkspaceRoot: t.TempDir(),
		FirstN:        -1,
		MaxWorkers:    3,
		Platform:      "linux",
		ImagePrefix:   "repolaunch/dev",
		Limits:        config.LimitsConfig{MaxTrials: 2, MaxSetupSteps: 10, MaxVerifySteps: 10, RunTimeoutMinutes: 1},
	}
}

func newTestRunner(cfg *config.Config, launch LaunchFunc) *Runner {
	r := New(cfg, slog.New(slog.DiscardHandler))
	r.out = &syncBuffer{}
	r.launch = launch
	return r
}

// syncBuffer keeps concurrent progress writes race-free under -race.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func completedRecord(id string) *workflow.Record {
	img := "repolaunch/dev:" + id + "_linux"
	return &workflow.Record{InstanceID: id, Completed: true, DockerImage: &img}
}

func TestRunnerProcessesAllInstances(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 6))

	var launched atomic.Int32
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		launched.Add(1)
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, 6, sum.Succeeded)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, int32(6), launched.Load())
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 10))
	cfg.MaxWorkers = 2

	var inFlight, peak atomic.Int32
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return completedRecord(inst.InstanceID), nil
	})

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunnerFirstNFilter(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 6))
	cfg.FirstN = 2

	var launched atomic.Int32
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		launched.Add(1)
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, int32(2), launched.Load())
}

func TestRunnerInstanceIDFilter(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 6))
	cfg.InstanceID = "inst-3"

	var launchedID string
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		launchedID = inst.InstanceID
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, "inst-3", launchedID)
}

func TestRunnerInstanceIDNotFound(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 2))
	cfg.InstanceID = "missing"

	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		t.Fatal("launch must not be called")
		return nil, nil
	})

	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "missing")
}

func TestRunnerSkipsExistingResults(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 3))

	// inst-1 already has a completed result on disk.
	prior := workspace.ResultPathFor(cfg.WorkspaceRoot, "inst-1")
	require.NoError(t, workflow.WriteRecord(prior, completedRecord("inst-1")))

	var launched []string
	var mu sync.Mutex
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		mu.Lock()
		launched = append(launched, inst.InstanceID)
		mu.Unlock()
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 3, sum.Succeeded, "prior completed result counts as success")
	assert.Len(t, launched, 2)
	assert.NotContains(t, launched, "inst-1")
}

func failedRecord(id, exception string) *workflow.Record {
	return &workflow.Record{InstanceID: id, Exception: &exception}
}

func TestRunnerRerunsTransientFailures(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 2))

	// inst-0 previously failed on infrastructure, not on the trial policy.
	prior := workspace.ResultPathFor(cfg.WorkspaceRoot, "inst-0")
	require.NoError(t, workflow.WriteRecord(prior,
		failedRecord("inst-0", "start_session: docker daemon unreachable")))

	var launched []string
	var mu sync.Mutex
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		mu.Lock()
		launched = append(launched, inst.InstanceID)
		mu.Unlock()
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Skipped, "a transient failure must be re-run")
	assert.Contains(t, launched, "inst-0")
	assert.Equal(t, 2, sum.Succeeded)
}

func TestRunnerSkipsExhaustedFailures(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 2))

	prior := workspace.ResultPathFor(cfg.WorkspaceRoot, "inst-0")
	require.NoError(t, workflow.WriteRecord(prior,
		failedRecord("inst-0", "Launch failed: setup not verified after 2 trials, last issue: tests fail")))

	var launched []string
	var mu sync.Mutex
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		mu.Lock()
		launched = append(launched, inst.InstanceID)
		mu.Unlock()
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.NotContains(t, launched, "inst-0")
	assert.Equal(t, 1, sum.Failed, "a policy-exhausted prior result counts as failure")
	assert.Equal(t, 1, sum.Succeeded)
}

func TestRunnerOverwriteRerunsExistingResults(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 2))
	cfg.Overwrite = true

	prior := workspace.ResultPathFor(cfg.WorkspaceRoot, "inst-0")
	require.NoError(t, workflow.WriteRecord(prior, completedRecord("inst-0")))

	var launched atomic.Int32
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		launched.Add(1)
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Skipped)
	assert.Equal(t, int32(2), launched.Load())
}

func TestRunnerLaunchErrorCountsAsFailure(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 3))

	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		if inst.InstanceID == "inst-1" {
			return nil, fmt.Errorf("docker daemon unreachable")
		}
		return completedRecord(inst.InstanceID), nil
	})

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
}

func TestRunnerHonorsCancelledContext(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var launched atomic.Int32
	r := newTestRunner(cfg, func(_ context.Context, inst workspace.Instance) (*workflow.Record, error) {
		launched.Add(1)
		return completedRecord(inst.InstanceID), nil
	})

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, launched.Load(), "no launches after cancellation")
}
