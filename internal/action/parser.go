// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package action

import (
	"regexp"
	"strings"
)

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// tagPatterns caches one regexp per recognized tag. (?s) lets command
// bodies span lines, heredocs included.
var tagPatterns = map[string]*regexp.Regexp{
	"command": regexp.MustCompile(`(?s)<command>(.*?)</command>`),
	"search":  regexp.MustCompile(`(?s)<search>(.*?)</search>`),
	"issue":   regexp.MustCompile(`(?s)<issue>(.*?)</issue>`),
}

// stripReasoning drops a leading reasoning segment. Only the text after
// the closing marker is kept; an unclosed marker leaves the response as is.
func stripReasoning(response string) string {
	if !strings.Contains(response, thinkOpen) {
		return response
	}
	if _, after, ok := strings.Cut(response, thinkClose); ok {
		return after
	}
	return response
}

// extractTag returns the trimmed content of the first occurrence of a tag.
// An empty body counts as no match, so "<command></command>" never
// produces an empty command.
func extractTag(response, tag string) (string, bool) {
	m := tagPatterns[tag].FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	content := strings.TrimSpace(m[1])
	if content == "" {
		return "", false
	}
	return content, true
}

// Parser turns one raw model response into at most one action.
type Parser interface {
	Parse(response string) *Action
}

// SetupParser recognizes the setup vocabulary: command, search, stop.
type SetupParser struct{}

// Parse returns the first recognized setup action, or nil.
// Priority order: command > search > stop.
func (SetupParser) Parse(response string) *Action {
	response = stripReasoning(response)

	if cmd, ok := extractTag(response, "command"); ok {
		return &Action{Kind: KindCommand, Args: cmd}
	}
	if query, ok := extractTag(response, "search"); ok {
		return &Action{Kind: KindSearch, Args: query}
	}
	if strings.Contains(response, "<stop>") && strings.Contains(response, "</stop>") {
		return &Action{Kind: KindStop}
	}
	return nil
}

// VerifyParser recognizes the verify vocabulary: command, issue.
type VerifyParser struct{}

// Parse returns the first recognized verify action, or nil.
// Priority order: command > issue.
func (VerifyParser) Parse(response string) *Action {
	response = stripReasoning(response)

	if cmd, ok := extractTag(response, "command"); ok {
		return &Action{Kind: KindCommand, Args: cmd}
	}
	if issue, ok := extractTag(response, "issue"); ok {
		return &Action{Kind: KindIssue, Args: strings.ToLower(issue)}
	}
	return nil
}
