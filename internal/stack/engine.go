package stack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/praxislabs/warden/internal/log"
	"github.com/praxislabs/warden/internal/ui"
)

// Engine is a thin wrapper over the Docker client scoped to the operations
// the stack needs.
type Engine struct {
	cli *client.Client
}

// NewEngine creates a Docker engine client from the environment.
func NewEngine() (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Engine{cli: cli}, nil
}

// Close releases Docker client resources.
func (e *Engine) Close() error {
	return e.cli.Close()
}

// Ping verifies the Docker daemon is accessible.
func (e *Engine) Ping(ctx context.Context) error {
	_, err := e.cli.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker daemon not accessible: %w", err)
	}
	return nil
}

// ServerVersion returns the Docker daemon version string.
func (e *Engine) ServerVersion(ctx context.Context) (string, error) {
	v, err := e.cli.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("querying docker version: %w", err)
	}
	return v.Version, nil
}

// EnsureImage pulls an image if it doesn't exist locally.
func (e *Engine) EnsureImage(ctx context.Context, ref string) error {
	_, err := e.cli.ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspecting image %s: %w", ref, err)
	}

	ui.Infof("Pulling %s...", ref)
	reader, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling image %s: %w", ref, err)
	}
	defer reader.Close()

	// Drain the reader to complete the pull (discard JSON progress output)
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// CreateSpec holds everything needed to create one stack container.
type CreateSpec struct {
	Name     string
	Image    string
	Cmd      []string
	Env      []string
	Binds    []Bind
	Volumes  []VolumeMount
	HostPort int

	// Port is the container-side port published on HostPort.
	Port int

	// Network is the bridge network the container joins; Alias is its
	// DNS name on that network in addition to the container name.
	Network string
	Alias   string

	ExtraHosts []string
	Labels     map[string]string
}

// CreateContainer creates a stack container without starting it.
// The image is pulled first if missing.
func (e *Engine) CreateContainer(ctx context.Context, spec CreateSpec) (string, error) {
	if err := e.EnsureImage(ctx, spec.Image); err != nil {
		return "", err
	}

	mounts := make([]mount.Mount, 0, len(spec.Binds)+len(spec.Volumes))
	for _, b := range spec.Binds {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   b.Source,
			Target:   b.Target,
			ReadOnly: true,
		})
	}
	for _, v := range spec.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeVolume,
			Source: v.Name,
			Target: v.Target,
		})
	}

	port := nat.Port(fmt.Sprintf("%d/tcp", spec.Port))
	exposedPorts := nat.PortSet{port: struct{}{}}
	portBindings := nat.PortMap{port: []nat.PortBinding{{
		HostPort: strconv.Itoa(spec.HostPort),
	}}}

	resp, err := e.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        spec.Image,
			Cmd:          spec.Cmd,
			Env:          spec.Env,
			Labels:       spec.Labels,
			ExposedPorts: exposedPorts,
		},
		&container.HostConfig{
			Mounts:       mounts,
			NetworkMode:  container.NetworkMode(spec.Network),
			ExtraHosts:   spec.ExtraHosts,
			PortBindings: portBindings,
			RestartPolicy: container.RestartPolicy{
				Name: container.RestartPolicyUnlessStopped,
			},
		},
		&network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {
					Aliases: []string{spec.Alias},
				},
			},
		},
		nil, // platform
		spec.Name,
	)
	if err != nil {
		return "", fmt.Errorf("creating container %s: %w", spec.Name, err)
	}

	return resp.ID, nil
}

// StartContainer starts an existing container.
func (e *Engine) StartContainer(ctx context.Context, containerID string) error {
	if err := e.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("starting container: %w", err)
	}
	return nil
}

// StopContainer stops a container, giving it stopTimeout to exit cleanly
// before SIGKILL. Already-removed containers are not an error.
func (e *Engine) StopContainer(ctx context.Context, name string) error {
	timeout := int(stopTimeout.Seconds())
	if err := e.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("stopping container %s: %w", name, err)
	}
	return nil
}

// RestartContainer restarts a container with the same graceful timeout as
// StopContainer.
func (e *Engine) RestartContainer(ctx context.Context, name string) error {
	timeout := int(stopTimeout.Seconds())
	if err := e.cli.ContainerRestart(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("restarting container %s: %w", name, err)
	}
	return nil
}

// RemoveContainer force-removes a container.
// Ignores "not found" errors - the container may have already been removed.
func (e *Engine) RemoveContainer(ctx context.Context, name string) error {
	if err := e.cli.ContainerRemove(ctx, name, container.RemoveOptions{
		Force: true,
	}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("removing container %s: %w", name, err)
	}
	return nil
}

// ContainerState returns the container status ("running", "exited", ...).
// The second return is false when no container with that name exists.
func (e *Engine) ContainerState(ctx context.Context, name string) (string, bool, error) {
	inspect, err := e.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("inspecting container %s: %w", name, err)
	}
	return inspect.State.Status, true, nil
}

// ContainerInfo is one row of ListByLabel output.
type ContainerInfo struct {
	ID     string
	Name   string
	Image  string
	State  string
	Status string
	Labels map[string]string
}

// ListByLabel returns all containers (running or not) carrying the given
// label.
func (e *Engine) ListByLabel(ctx context.Context, key, value string) ([]ContainerInfo, error) {
	f := filters.NewArgs(filters.Arg("label", key+"="+value))
	containers, err := e.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: f,
	})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		var name string
		if len(c.Names) > 0 {
			// Names have a leading slash, e.g. "/warden-prometheus"
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		result = append(result, ContainerInfo{
			ID:     c.ID[:12],
			Name:   name,
			Image:  c.Image,
			State:  c.State,
			Status: c.Status,
			Labels: c.Labels,
		})
	}
	return result, nil
}

// LogsOptions controls Logs output.
type LogsOptions struct {
	Follow bool

	// Tail limits output to the last N lines; "all" streams everything.
	Tail string
}

// Logs writes container logs to w. Docker multiplexes stdout and stderr
// into one stream unless the container runs a TTY, so demux accordingly.
func (e *Engine) Logs(ctx context.Context, name string, opts LogsOptions, w io.Writer) error {
	inspect, err := e.cli.ContainerInspect(ctx, name)
	if err != nil {
		return fmt.Errorf("inspecting container %s: %w", name, err)
	}

	reader, err := e.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
	})
	if err != nil {
		return fmt.Errorf("getting logs for %s: %w", name, err)
	}
	defer reader.Close()

	if inspect.Config.Tty {
		_, err = io.Copy(w, reader)
	} else {
		_, err = stdcopy.StdCopy(w, w, reader)
	}
	// Cancellation ends a follow; that is the normal way out, not a failure.
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("streaming logs for %s: %w", name, err)
	}
	return nil
}

// EnsureNetwork creates the bridge network if missing. Returns the network ID.
func (e *Engine) EnsureNetwork(ctx context.Context, name string) (string, error) {
	inspect, err := e.cli.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		return inspect.ID, nil
	}
	if !errdefs.IsNotFound(err) {
		return "", fmt.Errorf("inspecting network %s: %w", name, err)
	}

	log.Debug("creating network", "network", name)
	resp, err := e.cli.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
	})
	if err != nil {
		return "", fmt.Errorf("creating network %s: %w", name, err)
	}
	return resp.ID, nil
}

// RemoveNetwork removes a network.
// Best-effort: does not fail if the network doesn't exist or has active endpoints.
func (e *Engine) RemoveNetwork(ctx context.Context, name string) error {
	err := e.cli.NetworkRemove(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) || errdefs.IsConflict(err) {
			return nil
		}
		// Docker doesn't always return a proper conflict error code for
		// active endpoints. Check the error message as a fallback.
		if strings.Contains(err.Error(), "active endpoints") {
			return nil
		}
		return fmt.Errorf("removing network %s: %w", name, err)
	}
	return nil
}

// EnsureVolume creates a named volume. VolumeCreate is idempotent, so an
// existing volume is reused.
func (e *Engine) EnsureVolume(ctx context.Context, name string) error {
	if _, err := e.cli.VolumeCreate(ctx, volume.CreateOptions{Name: name}); err != nil {
		return fmt.Errorf("creating volume %s: %w", name, err)
	}
	return nil
}

// RemoveVolume deletes a named volume and the data in it.
func (e *Engine) RemoveVolume(ctx context.Context, name string) error {
	if err := e.cli.VolumeRemove(ctx, name, false); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("removing volume %s: %w", name, err)
	}
	return nil
}
