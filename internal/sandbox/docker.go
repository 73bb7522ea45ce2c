package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
)

const (
	// dockerStopTimeout is the timeout for gracefully stopping a container.
	dockerStopTimeout = 10 * time.Second

	// workdir is where the project files live inside the container.
	workdir = "/testbed"
)

// DockerSession is a Session backed by a long-lived container running an
// idle process; commands execute through the exec API.
type DockerSession struct {
	cli         *client.Client
	containerID string
	platform    string
	logger      *slog.Logger
}

// StartOptions configures a new sandbox container.
type StartOptions struct {
	// BaseImage is the image the container starts from. Pulled if absent.
	BaseImage string

	// RepoRoot is the host path of the project checkout. Its contents are
	// copied into the container at /testbed before any command runs.
	RepoRoot string

	// InstanceID names the container (suffixed for uniqueness).
	InstanceID string

	// Platform selects the command shell: "linux" or "windows".
	Platform string

	Logger *slog.Logger
}

// Start creates and starts a sandbox container and seeds it with the
// project checkout.
func Start(ctx context.Context, opts StartOptions) (*DockerSession, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &DockerSession{cli: cli, platform: opts.Platform, logger: logger}

	if err := s.pullIfMissing(ctx, opts.BaseImage); err != nil {
		cli.Close()
		return nil, err
	}

	name := containerName(opts.InstanceID)
	created, err := cli.ContainerCreate(ctx, &container.Config{
		Image:      opts.BaseImage,
		Cmd:        idleCommand(opts.Platform),
		WorkingDir: workdir,
	}, nil, nil, nil, name)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to create container from %s: %w", opts.BaseImage, err)
	}
	s.containerID = created.ID

	archive, err := tarDirectory(opts.RepoRoot, strings.TrimPrefix(workdir, "/"))
	if err != nil {
		s.Cleanup(ctx)
		return nil, fmt.Errorf("failed to archive checkout: %w", err)
	}
	if err := cli.CopyToContainer(ctx, created.ID, "/", archive, container.CopyToContainerOptions{}); err != nil {
		s.Cleanup(ctx)
		return nil, fmt.Errorf("failed to copy checkout into container: %w", err)
	}

	if err := cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		s.Cleanup(ctx)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	logger.Info("sandbox started", "container", name, "image", opts.BaseImage)
	return s, nil
}

// SendCommand executes one command through the exec API and waits for it
// to finish.
func (s *DockerSession) SendCommand(ctx context.Context, cmd string) (CommandResult, error) {
	s.logger.Info("sandbox exec", "cmd", cmd)

	exec, err := s.cli.ContainerExecCreate(ctx, s.containerID, container.ExecOptions{
		Cmd:          shellCommand(s.platform, cmd),
		WorkingDir:   workdir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to create exec: %w", err)
	}

	attach, err := s.cli.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil && err != io.EOF {
		return CommandResult{}, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := s.cli.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return CommandResult{}, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

// Commit materializes the container filesystem under ref.
func (s *DockerSession) Commit(ctx context.Context, ref string) (string, error) {
	if _, err := s.cli.ContainerCommit(ctx, s.containerID, container.CommitOptions{Reference: ref}); err != nil {
		return "", fmt.Errorf("failed to commit container as %s: %w", ref, err)
	}
	s.logger.Info("sandbox committed", "image", ref)
	return ref, nil
}

// Cleanup stops and removes the container. Idempotent: a second call, or
// a call after the container is already gone, is not an error.
func (s *DockerSession) Cleanup(ctx context.Context) error {
	if s.containerID == "" {
		return nil
	}

	timeout := int(dockerStopTimeout.Seconds())
	// Stop failures are tolerated; the container may already be stopped.
	_ = s.cli.ContainerStop(ctx, s.containerID, container.StopOptions{Timeout: &timeout})

	err := s.cli.ContainerRemove(ctx, s.containerID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", s.containerID, err)
	}

	s.containerID = ""
	return s.cli.Close()
}

func (s *DockerSession) pullIfMissing(ctx context.Context, ref string) error {
	if _, err := s.cli.ImageInspect(ctx, ref); err == nil {
		return nil
	}

	s.logger.Info("pulling base image", "image", ref)
	rc, err := s.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer rc.Close()
	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

func idleCommand(platform string) []string {
	if platform == "windows" {
		return []string{"powershell", "-Command", "Start-Sleep -Seconds 2147483"}
	}
	return []string{"sleep", "infinity"}
}

func shellCommand(platform, cmd string) []string {
	if platform == "windows" {
		return []string{"powershell", "-Command", cmd}
	}
	return []string{"/bin/bash", "-lc", cmd}
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// containerName derives a unique, Docker-safe container name from an
// instance identifier.
func containerName(instanceID string) string {
	base := invalidNameChars.ReplaceAllString(instanceID, "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		base = "instance"
	}
	return fmt.Sprintf("repolaunch-%s-%s", base, uuid.NewString()[:8])
}
