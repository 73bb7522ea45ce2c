// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package runner drives a batch of bootstrap runs over a dataset with a
// bounded worker pool.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"repolaunch/internal/config"
	"repolaunch/internal/language"
	"repolaunch/internal/llm"
	"repolaunch/internal/sandbox"
	"repolaunch/internal/search"
	"repolaunch/internal/workflow"
	"repolaunch/internal/workspace"
)

// LaunchFunc runs one instance end to end and returns its outcome record.
type LaunchFunc func(ctx context.Context, inst workspace.Instance) (*workflow.Record, error)

// Runner schedules dataset instances onto a bounded worker pool. Each run
// gets its own timeout; one run's failure never affects its siblings.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	// launch is swappable for tests; defaults to launchInstance.
	launch LaunchFunc
}

// Summary tallies a batch. Skipped instances count toward Succeeded or
// Failed according to their prior result.
type Summary struct {
	Total     int
	Skipped   int
	Succeeded int
	Failed    int
}

func New(cfg *config.Config, logger *slog.Logger) *Runner {
	r := &Runner{cfg: cfg, logger: logger, out: os.Stdout}
	r.launch = r.launchInstance
	return r
}

// Run processes the configured slice of the dataset and returns the
// batch summary. Instances with an existing result are skipped unless
// overwrite is set.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	instances, err := workspace.LoadDataset(r.cfg.Dataset)
	if err != nil {
		return Summary{}, err
	}
	selected, err := r.selectInstances(instances)
	if err != nil {
		return Summary{}, err
	}
	r.logger.Info("starting batch", "instances", len(selected), "workers", r.cfg.MaxWorkers)

	progress := NewProgress(r.out, len(selected))
	sem := semaphore.NewWeighted(int64(r.cfg.MaxWorkers))
	var wg sync.WaitGroup

	for _, inst := range selected {
		if !r.cfg.Overwrite {
			path := workspace.ResultPathFor(r.cfg.WorkspaceRoot, inst.InstanceID)
			if rec, err := workflow.ReadRecord(path); err == nil && rec.Settled() {
				r.logger.Info("settled result exists, skipping", "instance_id", inst.InstanceID, "completed", rec.Completed)
				progress.SkippedPrior(inst.InstanceID, rec.Completed)
				continue
			}
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			// Batch cancelled; finished workers still drain below.
			break
		}
		wg.Add(1)
		go func(inst workspace.Instance) {
			defer wg.Done()
			defer sem.Release(1)
			r.runOne(ctx, inst, progress)
		}(inst)
	}

	wg.Wait()

	succeeded, failed, skipped := progress.Counts()
	summary := Summary{Total: len(selected), Skipped: skipped, Succeeded: succeeded, Failed: failed}
	r.logger.Info("batch finished",
		"total", summary.Total, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "skipped", summary.Skipped)
	return summary, ctx.Err()
}

// runOne executes one instance under its own wall-clock budget. A panic
// in one run is contained; the rest of the batch keeps going.
func (r *Runner) runOne(ctx context.Context, inst workspace.Instance, progress *Progress) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("run panicked", "instance_id", inst.InstanceID, "panic", rec)
			progress.Finished(inst.InstanceID, false)
		}
	}()

	runCtx := ctx
	if r.cfg.Limits.RunTimeoutMinutes > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Limits.RunTimeoutMinutes)*time.Minute)
		defer cancel()
	}

	progress.Started(inst.InstanceID)
	rec, err := r.launch(runCtx, inst)
	if err != nil {
		r.logger.Error("launch failed", "instance_id", inst.InstanceID, "error", err)
		progress.Finished(inst.InstanceID, false)
		return
	}
	progress.Finished(inst.InstanceID, rec.Completed)
}

// selectInstances applies the instance_id and first_n filters.
func (r *Runner) selectInstances(instances []workspace.Instance) ([]workspace.Instance, error) {
	if r.cfg.InstanceID != "" {
		for _, inst := range instances {
			if inst.InstanceID == r.cfg.InstanceID {
				return []workspace.Instance{inst}, nil
			}
		}
		return nil, fmt.Errorf("instance %s not found in dataset", r.cfg.InstanceID)
	}
	if r.cfg.FirstN >= 0 && r.cfg.FirstN < len(instances) {
		instances = instances[:r.cfg.FirstN]
	}
	return instances, nil
}

// launchInstance is the production LaunchFunc: it prepares the workspace,
// assembles the collaborators, and hands the task to the engine.
func (r *Runner) launchInstance(ctx context.Context, inst workspace.Instance) (*workflow.Record, error) {
	ws, err := workspace.Prepare(r.cfg.WorkspaceRoot, inst)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	model, err := llm.NewOpenAIClient(llm.Options{
		APIKey:        os.Getenv(r.cfg.Model.APIKeyEnv),
		BaseURL:       r.cfg.Model.BaseURL,
		Model:         r.cfg.Model.Name,
		Temperature:   r.cfg.Model.Temperature,
		TranscriptDir: ws.TranscriptDir,
		Logger:        ws.Logger,
	})
	if err != nil {
		return nil, err
	}

	engine := &workflow.Engine{
		Limits:  r.cfg.Limits,
		Model:   model,
		Search:  search.NewTavilyClient(os.Getenv(r.cfg.Search.APIKeyEnv), r.cfg.Search.MaxResults),
		Advisor: language.ForLanguage(inst.Language),
		StartSession: func(ctx context.Context, t *workflow.Task) (sandbox.Session, error) {
			return sandbox.Start(ctx, sandbox.StartOptions{
				BaseImage:  t.BaseImage,
				RepoRoot:   t.RepoRoot,
				InstanceID: inst.InstanceID,
				Platform:   r.cfg.Platform,
				Logger:     ws.Logger,
			})
		},
		Logger: ws.Logger,
	}

	task := workflow.NewTask(inst, ws, r.cfg.Platform, r.cfg.ImagePrefix)
	structure, err := workspace.Structure(ws.RepoRoot, -1)
	if err != nil {
		return nil, err
	}
	task.RepoStructure = structure

	return engine.Run(ctx, task), nil
}
