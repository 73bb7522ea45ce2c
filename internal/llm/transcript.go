// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"repolaunch/internal/conversation"
)

// Transcript writes one numbered markdown file per model invocation so a
// run can be replayed afterwards. Files are named 0.md, 1.md, ... inside
// the transcript directory.
type Transcript struct {
	dir string

	mu   sync.Mutex
	next int
}

// NewTranscript creates a transcript writer rooted at dir. Numbering
// resumes after any files already present.
func NewTranscript(dir string) *Transcript {
	next := 0
	if entries, err := os.ReadDir(dir); err == nil {
		for _, e := range entries {
			base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if n, err := strconv.Atoi(base); err == nil && n >= next {
				next = n + 1
			}
		}
	}
	return &Transcript{dir: dir, next: next}
}

// Record writes the rendered input and the raw model output.
func (t *Transcript) Record(input []conversation.Message, output conversation.Message) error {
	t.mu.Lock()
	n := t.next
	t.next++
	t.mu.Unlock()

	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return fmt.Errorf("failed to create transcript dir: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("##### LLM INPUT #####\n")
	for _, m := range input {
		sb.WriteString(fmt.Sprintf("[%s]\n%s\n\n", m.Role, m.Content))
	}
	sb.WriteString("##### LLM OUTPUT #####\n")
	sb.WriteString(fmt.Sprintf("[%s]\n%s\n", output.Role, output.Content))

	path := filepath.Join(t.dir, fmt.Sprintf("%d.md", n))
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
