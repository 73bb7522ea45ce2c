// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"fmt"
	"os"
)

// startSession launches the sandbox from the selected base image and
// removes the host-side scratch checkout: the sandbox holds the code
// from here on.
func (e *Engine) startSession(ctx context.Context, t *Task) (Patch, error) {
	if t.BaseImage == "" {
		return Patch{}, fmt.Errorf("no base image selected")
	}

	e.Logger.Info("starting sandbox session", "image", t.BaseImage)
	session, err := e.StartSession(ctx, t)
	if err != nil {
		return Patch{}, fmt.Errorf("failed to start session: %w", err)
	}

	os.RemoveAll(t.RepoRoot)
	e.Logger.Info("host checkout removed", "path", t.RepoRoot)

	return Patch{Session: session}, nil
}
