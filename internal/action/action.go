// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package action parses raw model responses into typed actions.
//
// Parsing is total: every response yields either a fully populated Action
// of a recognized kind, or nil. Partially parsed actions never escape this
// package.
package action

// Kind identifies the action variant.
type Kind string

const (
	// KindCommand runs a shell command inside the sandbox.
	KindCommand Kind = "command"
	// KindSearch queries the web search collaborator.
	KindSearch Kind = "search"
	// KindStop ends the setup loop.
	KindStop Kind = "stop"
	// KindIssue ends the verify loop with an issue report.
	KindIssue Kind = "issue"
)

// Action is one fully parsed model action.
type Action struct {
	Kind Kind
	// Args holds the tag content, trimmed. Empty for stop actions.
	// For issue actions the content is lower-cased so the literal "none"
	// compares exactly.
	Args string
}

// NoIssue reports whether an issue action declares the setup clean.
func (a *Action) NoIssue() bool {
	return a != nil && a.Kind == KindIssue && a.Args == "none"
}
