//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"strconv"
)

// containersAvailable returns true if a Docker or Podman socket is present
func containersAvailable() bool {
	if _, err := os.Stat("/var/run/docker.sock"); err == nil {
		return true
	}
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return true
	}
	// Podman socket per-user
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/run/user/" + strconv.Itoa(os.Getuid())
	}
	_, err := os.Stat(filepath.Join(runtimeDir, "podman", "podman.sock"))
	return err == nil
}
