// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package config loads the batch configuration for repolaunch.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete repolaunch batch configuration.
type Config struct {
	// Dataset is the path to the JSONL file of repository instances.
	Dataset string `yaml:"dataset"`

	// WorkspaceRoot is the directory under which each instance gets its
	// own workspace (scratch clone, logs, transcripts, result.json).
	WorkspaceRoot string `yaml:"workspace_root"`

	// InstanceID restricts the run to a single instance when set.
	InstanceID string `yaml:"instance_id"`

	// FirstN limits processing to the first N dataset entries. -1 means all.
	FirstN int `yaml:"first_n_repos"`

	// MaxWorkers bounds how many instances run concurrently.
	MaxWorkers int `yaml:"max_workers"`

	// Overwrite re-runs instances that already have a result.
	Overwrite bool `yaml:"overwrite"`

	// Platform selects the sandbox flavor: "linux" or "windows".
	Platform string `yaml:"platform"`

	// ImagePrefix names committed images: <prefix>:<instance_id>_<platform>.
	ImagePrefix string `yaml:"image_prefix"`

	Limits LimitsConfig `yaml:"limits"`
	Model  ModelConfig  `yaml:"model"`
	Search SearchConfig `yaml:"search"`
}

// LimitsConfig bounds resource use per run.
type LimitsConfig struct {
	// MaxTrials caps setup/verify retry cycles.
	MaxTrials int `yaml:"max_trials"`

	// MaxSetupSteps caps model turns in one setup loop.
	MaxSetupSteps int `yaml:"max_setup_steps"`

	// MaxVerifySteps caps model turns in one verify loop.
	MaxVerifySteps int `yaml:"max_verify_steps"`

	// SetupTimeoutMinutes is the wall-clock budget, measured from run
	// start, after which the setup loop stops issuing model turns.
	// Verify is deliberately not subject to it.
	SetupTimeoutMinutes int `yaml:"setup_timeout_minutes"`

	// RunTimeoutMinutes is the outer deadline for a whole run, Locate
	// through SaveResult. A run past it is cancelled and marked failed.
	RunTimeoutMinutes int `yaml:"run_timeout_minutes"`

	// ConversationWindow is the number of trailing setup messages kept
	// visible to the model once the conversation outgrows it.
	ConversationWindow int `yaml:"conversation_window"`
}

// ModelConfig specifies the language model endpoint.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	Temperature float32 `yaml:"temperature"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// BaseURL overrides the API endpoint for OpenAI-compatible gateways.
	BaseURL string `yaml:"base_url"`
}

// SearchConfig specifies the web search collaborator.
type SearchConfig struct {
	// APIKeyEnv names the environment variable holding the Tavily key.
	APIKeyEnv string `yaml:"api_key_env"`

	// MaxResults caps results returned per query.
	MaxResults int `yaml:"max_results"`
}

// Load loads the configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		FirstN:      -1,
		MaxWorkers:  5,
		Platform:    "linux",
		ImagePrefix: "repolaunch/dev",
		Limits: LimitsConfig{
			MaxTrials:           2,
			MaxSetupSteps:       20,
			MaxVerifySteps:      20,
			SetupTimeoutMinutes: 30,
			RunTimeoutMinutes:   120,
			ConversationWindow:  40,
		},
		Model: ModelConfig{
			Name:      "gpt-4o",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Search: SearchConfig{
			APIKeyEnv:  "TAVILY_API_KEY",
			MaxResults: 3,
		},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Dataset == "" {
		return fmt.Errorf("dataset path is required")
	}

	if c.WorkspaceRoot == "" {
		return fmt.Errorf("workspace root is required")
	}

	if c.Platform != "linux" && c.Platform != "windows" {
		return fmt.Errorf("unsupported platform: %s", c.Platform)
	}

	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1")
	}

	if c.Limits.MaxTrials < 1 {
		return fmt.Errorf("max_trials must be at least 1")
	}

	if c.Limits.MaxSetupSteps < 1 || c.Limits.MaxVerifySteps < 1 {
		return fmt.Errorf("step limits must be at least 1")
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}

	return nil
}
