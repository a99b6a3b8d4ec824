// Package datadir resolves the directory holding the catalog and lock files.
package datadir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultDirName = ".chanfinder"

const (
	gatewayLockName    = "gateway.lock"
	supervisorLockName = "supervisor.lock"
)

// Dir is a resolved data directory.
type Dir struct {
	root string
}

// Resolve expands ~, makes the path absolute, creates it when missing and
// resolves symlinks. An empty path selects ~/.chanfinder.
func Resolve(path string) (Dir, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Dir{}, fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(homeDir, defaultDirName)
	}

	expanded, err := expandHome(trimmed)
	if err != nil {
		return Dir{}, err
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return Dir{}, fmt.Errorf("resolve absolute data path: %w", err)
	}

	cleanPath := filepath.Clean(absPath)
	if err := os.MkdirAll(cleanPath, 0o755); err != nil {
		return Dir{}, fmt.Errorf("create data directory: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		return Dir{}, fmt.Errorf("resolve data directory: %w", err)
	}

	return Dir{root: filepath.Clean(resolved)}, nil
}

// Root returns the absolute directory path.
func (d Dir) Root() string {
	return d.root
}

// Join returns a path inside the directory.
func (d Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.root}, elem...)...)
}

// GatewayLock is the instance lock held by a running gateway.
func (d Dir) GatewayLock() string {
	return d.Join(gatewayLockName)
}

// SupervisorLock is the instance lock held by a running supervisor.
func (d Dir) SupervisorLock() string {
	return d.Join(supervisorLockName)
}

func expandHome(path string) (string, error) {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return home, nil
	}

	prefix := "~" + string(filepath.Separator)
	if strings.HasPrefix(path, prefix) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, prefix)), nil
	}

	return path, nil
}
