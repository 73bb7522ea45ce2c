// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package language supplies per-ecosystem advisory data: candidate base
// images and free-text setup hints injected into phase framing. It is
// pure data, no control flow.
package language

import (
	"fmt"
	"strings"
)

// Advisor supplies build advice for one language ecosystem.
type Advisor interface {
	// Language is the canonical ecosystem tag.
	Language() string

	// BaseImages lists candidate base images for the platform, preferred
	// versions first.
	BaseImages(platform string) []string

	// SetupInstructions is free text folded into the setup phase framing.
	SetupInstructions(platform string) string
}

// ForLanguage returns the advisor for a language tag. Unknown languages
// get the generic shell advisor.
func ForLanguage(lang string) Advisor {
	switch strings.ToLower(lang) {
	case "python":
		return pythonAdvisor{}
	case "javascript", "typescript":
		return nodeAdvisor{}
	case "rust":
		return rustAdvisor{}
	case "java":
		return javaAdvisor{}
	case "go", "golang":
		return goAdvisor{}
	default:
		return shellAdvisor{}
	}
}

type pythonAdvisor struct{}

func (pythonAdvisor) Language() string { return "python" }

func (pythonAdvisor) BaseImages(platform string) []string {
	if platform == "windows" {
		return []string{
			"python:3.13-windowsservercore-ltsc2025",
			"python:3.12-windowsservercore-ltsc2025",
			"python:3.11-windowsservercore-ltsc2022",
			"python:3.10-windowsservercore-ltsc2022",
			"python:3.9-windowsservercore-ltsc2022",
		}
	}
	images := make([]string, 0, 6)
	for v := 6; v <= 11; v++ {
		images = append(images, fmt.Sprintf("python:3.%d", v))
	}
	return images
}

func (pythonAdvisor) SetupInstructions(string) string {
	return `### Python-Specific Instructions:
- Make sure the package is installed from source in editable mode before running tests (e.g., ` + "`pip install -e .`" + `)
- Avoid using tox to run tests if possible as it's designed for CI. Read tox.ini to understand setup
- Check requirements.txt, setup.py, or pyproject.toml for dependencies
`
}

type nodeAdvisor struct{}

func (nodeAdvisor) Language() string { return "javascript" }

func (nodeAdvisor) BaseImages(platform string) []string {
	if platform == "windows" {
		return []string{"node:20-windowsservercore-ltsc2022"}
	}
	return []string{"node:18", "node:20", "node:22"}
}

func (nodeAdvisor) SetupInstructions(string) string {
	return `### JavaScript/Node.js-Specific Instructions:
- Use npm, yarn, or pnpm to install dependencies (check package.json and lockfiles)
- Run ` + "`npm install`" + ` or ` + "`yarn install`" + ` to install dependencies
- Check package.json for test scripts and build commands
- Consider using ` + "`npm ci`" + ` for faster, reproducible builds if package-lock.json exists
`
}

type rustAdvisor struct{}

func (rustAdvisor) Language() string { return "rust" }

func (rustAdvisor) BaseImages(platform string) []string {
	if platform == "windows" {
		return []string{"rust:1.90-windowsservercore", "rust:1.80-windowsservercore"}
	}
	images := make([]string, 0, 21)
	for v := 70; v <= 90; v++ {
		images = append(images, fmt.Sprintf("rust:1.%d", v))
	}
	return images
}

func (rustAdvisor) SetupInstructions(string) string {
	return `### Rust-Specific Instructions:
- Use ` + "`cargo build`" + ` to build the project and ` + "`cargo test`" + ` to run tests
- Use ` + "`cargo check`" + ` for faster compilation checks
- Install system dependencies if needed (check Cargo.toml for sys crates)
`
}

type javaAdvisor struct{}

func (javaAdvisor) Language() string { return "java" }

func (javaAdvisor) BaseImages(platform string) []string {
	versions := []string{"11", "17", "21"}
	images := make([]string, 0, len(versions))
	for _, v := range versions {
		if platform == "windows" {
			images = append(images, fmt.Sprintf("eclipse-temurin:%s-jdk-windowsservercore-ltsc2022", v))
		} else {
			images = append(images, fmt.Sprintf("eclipse-temurin:%s-jdk-noble", v))
		}
	}
	return images
}

func (javaAdvisor) SetupInstructions(string) string {
	return `### Java-Specific Instructions:
- Use Maven (` + "`mvn test`" + `) or Gradle (` + "`gradle test`" + `) to run tests
- Check pom.xml (Maven) or build.gradle (Gradle) for dependencies
- Use ` + "`mvn dependency:resolve`" + ` to download dependencies
`
}

type goAdvisor struct{}

func (goAdvisor) Language() string { return "go" }

func (goAdvisor) BaseImages(platform string) []string {
	versions := []string{"19", "20", "21", "22", "23", "24", "25"}
	images := make([]string, 0, len(versions))
	for _, v := range versions {
		if platform == "windows" {
			images = append(images, fmt.Sprintf("golang:1.%s-windowsservercore", v))
		} else {
			images = append(images, fmt.Sprintf("golang:1.%s", v))
		}
	}
	return images
}

func (goAdvisor) SetupInstructions(string) string {
	return `### Go-Specific Instructions:
- Use ` + "`go mod download`" + ` to download dependencies
- Use ` + "`go test ./...`" + ` to run all tests
- Use ` + "`go build ./...`" + ` to build the project
`
}

type shellAdvisor struct{}

func (shellAdvisor) Language() string { return "bash" }

func (shellAdvisor) BaseImages(platform string) []string {
	if platform == "windows" {
		return []string{"mcr.microsoft.com/windows/servercore:ltsc2022"}
	}
	return []string{"ubuntu:20.04", "ubuntu:22.04", "ubuntu:24.04"}
}

func (shellAdvisor) SetupInstructions(string) string {
	return `### General Instructions:
- Inspect the repository for build scripts and a Makefile
- Install build tooling through the system package manager as needed
`
}
