// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package conversation holds the message model and the windowed buffer
// that bounds how much history is shown to the model each turn.
package conversation

// Role tags the origin of a message.
type Role string

const (
	// RoleSystem frames the task for the model.
	RoleSystem Role = "system"
	// RoleUser carries prompts and observations to the model.
	RoleUser Role = "user"
	// RoleAssistant carries model output.
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged unit of conversation text.
// Ordering is append-only and significant.
type Message struct {
	Role    Role
	Content string
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds a model-originated message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
