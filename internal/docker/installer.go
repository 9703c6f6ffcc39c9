package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// Paths inside the install container. The manifest is mounted read-only;
// the target directory is the staging site-packages bind-mounted from
// the host, so the installed packages land directly in the staging tree.
const (
	containerManifestPath = "/layerpack/requirements.txt"
	containerTargetPath   = "/layerpack/site-packages"
)

// InstallSpec describes one containerized layer install.
type InstallSpec struct {
	// LayerName is used for the container name and labels.
	LayerName string

	// Runtime is the target Lambda runtime, recorded in labels.
	Runtime model.Runtime

	// Image is the build image to run pip in. The SAM build images for
	// the runtime are the default upstream of this value.
	Image string

	// ManifestPath is the absolute host path of the layer requirements
	// file.
	ManifestPath string

	// TargetDir is the absolute host path of the staging site-packages
	// directory that receives the install.
	TargetDir string
}

// InstallLayer runs "pip install -r <manifest> --target <site-packages>"
// inside a one-shot container and waits for it to finish. The container
// is force-removed afterwards whether the install succeeded or not.
//
// A non-zero pip exit status is returned as a CLIError with
// ExitInstallError carrying the tail of the container's output, so a
// resolution failure inside the container reads the same as one on the
// host.
func InstallLayer(ctx context.Context, cli *Client, spec InstallSpec) error {
	if err := pullImage(ctx, cli, spec.Image); err != nil {
		return err
	}

	cfg := &container.Config{
		Image: spec.Image,
		Cmd: []string{
			"python", "-m", "pip", "install",
			"-r", containerManifestPath,
			"--target", containerTargetPath,
			"--upgrade",
		},
		Labels: BuildLabels(spec.LayerName, spec.Runtime, time.Now()),
	}

	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   spec.ManifestPath,
				Target:   containerManifestPath,
				ReadOnly: true,
			},
			{
				Type:   mount.TypeBind,
				Source: spec.TargetDir,
				Target: containerTargetPath,
			},
		},
	}

	// Unique name so concurrent builds of different layers cannot collide.
	name := fmt.Sprintf("layerpack-install-%s-%d", spec.LayerName, time.Now().UnixNano())

	created, err := cli.Inner().ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create install container from image %q", spec.Image),
			err,
		)
	}

	// Force removal also kills a still-running container, covering the
	// cancellation path where the wait below returns early.
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = cli.Inner().ContainerRemove(removeCtx, created.ID, container.RemoveOptions{Force: true})
	}()

	if err := cli.Inner().ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start install container %q", name),
			err,
		)
	}

	statusCh, errCh := cli.Inner().ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed waiting for install container %q", name),
			err,
		)
	case status := <-statusCh:
		if status.StatusCode != 0 {
			detail := containerLogTail(ctx, cli, created.ID)
			return model.NewCLIError(
				model.ExitInstallError,
				fmt.Sprintf("containerized pip install failed with exit status %d%s", status.StatusCode, detail),
			)
		}
	}

	return nil
}

// pullImage ensures the build image is present locally. The pull stream
// must be drained for the pull to complete; the progress JSON itself is
// not interesting here.
func pullImage(ctx context.Context, cli *Client, ref string) error {
	rc, err := cli.Inner().ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to pull build image %q", ref),
			err,
		)
	}
	defer func() { _ = rc.Close() }()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed while pulling build image %q", ref),
			err,
		)
	}
	return nil
}

// containerLogTail fetches the last lines of a container's combined
// output for inclusion in error messages. Failures to fetch logs are
// swallowed; they would only mask the install error.
func containerLogTail(ctx context.Context, cli *Client, containerID string) string {
	rc, err := cli.Inner().ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "10",
	})
	if err != nil {
		return ""
	}
	defer func() { _ = rc.Close() }()

	// Docker multiplexes stdout/stderr in one stream; stdcopy demuxes it.
	var buf strings.Builder
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return ""
	}

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return ""
	}
	return ": " + out
}

// ListStaleInstallers returns the IDs and names of leftover install
// containers, identified by the layerpack management label. A container
// survives only when a build crashed before its deferred removal ran.
func ListStaleInstallers(ctx context.Context, cli *Client) (map[string]string, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list install containers",
			err,
		)
	}

	stale := make(map[string]string, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			// The API reports names with a leading slash.
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		stale[c.ID] = name
	}
	return stale, nil
}

// RemoveStaleInstallers force-removes all leftover install containers
// and returns how many were removed.
func RemoveStaleInstallers(ctx context.Context, cli *Client) (int, error) {
	stale, err := ListStaleInstallers(ctx, cli)
	if err != nil {
		return 0, err
	}

	removed := 0
	for id, name := range stale {
		if err := cli.Inner().ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
			return removed, model.WrapCLIError(
				model.ExitDockerNotRunning,
				fmt.Sprintf("failed to remove stale install container %q", name),
				err,
			)
		}
		removed++
	}
	return removed, nil
}
