// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package runner

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleSkip = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleRun  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Progress reports batch progress to the console. Safe for concurrent use
// by the worker goroutines.
type Progress struct {
	mu    sync.Mutex
	w     io.Writer
	total int

	done      int
	succeeded int
	failed    int
	skipped   int
}

func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{w: w, total: total}
}

// Started announces a run beginning.
func (p *Progress) Started(instanceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", styleRun.Render("LAUNCH"), instanceID)
}

// Finished records and announces a run outcome.
func (p *Progress) Finished(instanceID string, completed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	label := styleFail.Render("FAIL")
	if completed {
		p.succeeded++
		label = styleOK.Render("OK")
	} else {
		p.failed++
	}
	fmt.Fprintf(p.w, "%s %s (%d/%d)\n", label, instanceID, p.done, p.total)
}

// SkippedPrior records an instance skipped because a result already
// exists; the prior outcome still counts toward the totals.
func (p *Progress) SkippedPrior(instanceID string, completed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.skipped++
	if completed {
		p.succeeded++
	} else {
		p.failed++
	}
	fmt.Fprintf(p.w, "%s %s (%d/%d)\n", styleSkip.Render("SKIP"), instanceID, p.done, p.total)
}

// Counts returns the tallies so far.
func (p *Progress) Counts() (succeeded, failed, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.succeeded, p.failed, p.skipped
}
