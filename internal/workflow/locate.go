// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"repolaunch/internal/conversation"
	"repolaunch/internal/workspace"
)

const (
	// locateByteCap bounds both the structure prompt and each candidate
	// file's content fed to the model.
	locateByteCap = 256 * 1000
)

// locateRelatedFiles asks the model which files matter for environment
// setup, checks each candidate's relevance, and concatenates the keepers
// into the docs block used by every later phase. The retained repository
// structure is re-rendered at depth 1 to shrink later prompts.
func (e *Engine) locateRelatedFiles(ctx context.Context, t *Task) (Patch, error) {
	structure := t.RepoStructure
	prompt := fmt.Sprintf(locatePrompt, structure)
	if len(prompt) > locateByteCap {
		shallow, err := workspace.Structure(t.RepoRoot, 1)
		if err != nil {
			return Patch{}, err
		}
		prompt = fmt.Sprintf(locatePrompt, shallow)
	}

	resp, err := e.Model.Invoke(ctx, []conversation.Message{conversation.User(prompt)})
	if err != nil {
		return Patch{}, err
	}

	candidates := extractFileTags(resp.Content)
	e.Logger.Info("candidate setup files", "files", candidates)

	var docs strings.Builder
	docs.WriteString("------ BEGIN RELATED FILES ------\n")
	var related []string
	for _, file := range candidates {
		path := filepath.Join(t.RepoRoot, file)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		content, err := readCapped(path, locateByteCap)
		if err != nil {
			e.Logger.Info("skipping unreadable file", "file", file, "error", err)
			continue
		}

		block := fmt.Sprintf("------ START FILE %s ------\n%s\n------ END FILE %s ------", file, content, file)
		check, err := e.Model.Invoke(ctx, []conversation.Message{
			conversation.User(fmt.Sprintf(relevancePrompt, block)),
		})
		if err != nil {
			e.Logger.Warn("relevance check failed", "file", file, "error", err)
			continue
		}
		if strings.Contains(check.Content, "<rel>Yes</rel>") {
			fmt.Fprintf(&docs, "File: %s\n```\n%s\n```\n", file, content)
			related = append(related, file)
		}
	}
	docs.WriteString("------ END RELATED FILES ------\n")
	e.Logger.Info("located related files", "files", related)

	// The full tree served its purpose; later phases only need depth 1.
	shallow, err := workspace.Structure(t.RepoRoot, 1)
	if err != nil {
		return Patch{}, err
	}

	docsStr := docs.String()
	return Patch{Docs: &docsStr, RepoStructure: &shallow}, nil
}

// extractFileTags pulls <file>…</file> paths, one per line, deduplicated
// in order of first appearance.
func extractFileTags(response string) []string {
	seen := make(map[string]bool)
	var files []string
	for _, line := range strings.Split(response, "\n") {
		_, rest, ok := strings.Cut(line, "<file>")
		if !ok {
			continue
		}
		content, _, ok := strings.Cut(rest, "</file>")
		if !ok {
			continue
		}
		file := strings.TrimSpace(content)
		if file == "" || seen[file] {
			continue
		}
		seen[file] = true
		files = append(files, file)
	}
	return files
}

func readCapped(path string, limit int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) > limit {
		data = data[:limit]
	}
	return string(data), nil
}
