package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/layerpack/internal/model"
)

// defaultPingTimeout bounds the wait for a Docker daemon response during
// Ping. Docker Desktop on macOS can take a few seconds to answer when
// idle; 5 seconds covers that without hanging a build noticeably.
const defaultPingTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. The wrapper exists to own
// socket detection and to keep the exposed surface limited to what the
// install containers need.
type Client struct {
	inner *client.Client
}

// NewClient creates a Docker client, resolving the daemon address in
// this order:
//
//  1. DOCKER_HOST, used verbatim when set
//  2. the platform's default socket: /var/run/docker.sock on Linux,
//     /var/run/docker.sock then ~/.docker/run/docker.sock on macOS,
//     the docker_engine named pipe on Windows
//
// Returns a model.CLIError with ExitDockerNotRunning when no daemon
// address can be found or the client cannot be constructed.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		detected, err := detectDockerHost()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
		}
		host = detected
	}

	// API version negotiation keeps the client compatible with whatever
	// daemon version is installed, instead of pinning one API version.
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}

	return &Client{inner: c}, nil
}

// detectDockerHost probes the platform's known daemon addresses and
// returns the first that exists. Existence is checked rather than
// connectivity; Ping proves the daemon is actually answering.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{"/var/run/docker.sock"})

	case "darwin":
		paths := []string{"/var/run/docker.sock"}
		if home, err := os.UserHomeDir(); err == nil {
			// Newer Docker Desktop versions skip the /var/run symlink and
			// only create the per-user socket.
			paths = append(paths, home+"/.docker/run/docker.sock")
		}
		return detectUnixSocket(paths)

	case "windows":
		// Named pipes don't respond to os.Stat; a short dial is the only
		// way to check the pipe exists.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)
		}
		conn.Close()
		return "npipe://" + pipePath, nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the Docker host URI for the first existing
// socket path, checked in the order given.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("Docker socket not found at any of: %v (is Docker running?)", paths)
}

// Ping verifies the Docker daemon is reachable and responsive.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the client's resources. Safe to call multiple times.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner exposes the underlying SDK client for operations not wrapped
// by this package.
func (c *Client) Inner() *client.Client {
	return c.inner
}
