package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/plgrid/hpc-storage/pkg/quota"
)

// DirMode is owner+group rwx with setgid so new entries inherit the project
// group; others get nothing.
const DirMode = os.FileMode(0o770) | os.ModeSetgid

// Error marks a failed provisioning step for one group's directory.
type Error struct {
	Group string
	Step  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provision %s for group %s: %v", e.Step, e.Group, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Manager provisions project directories under a single base path.
type Manager struct {
	quotas quota.Manager

	mkdir func(string, os.FileMode) error
	chmod func(string, os.FileMode) error
	chown func(string, int, int) error
	stat  func(string) (os.FileInfo, error)
}

func NewManager(quotas quota.Manager) *Manager {
	return &Manager{
		quotas: quotas,
		mkdir:  os.Mkdir,
		chmod:  os.Chmod,
		chown:  os.Chown,
		stat:   os.Stat,
	}
}

// Exists reports whether the group's project directory is already present.
func (m *Manager) Exists(base, group string) bool {
	info, err := m.stat(filepath.Join(base, group))
	return err == nil && info.IsDir()
}

// EnsureDirectory creates and configures the project directory for a group.
// This is a one-time provisioning step: an existing directory is left exactly
// as found, ownership and mode are not re-asserted.
func (m *Manager) EnsureDirectory(base, group string, gid int) (string, error) {
	path := filepath.Join(base, group)
	if m.Exists(base, group) {
		return path, nil
	}

	klog.V(2).InfoS("Provisioning project directory", "path", path, "gid", gid)
	if err := m.mkdir(path, 0o770); err != nil {
		return "", &Error{Group: group, Step: "mkdir", Err: err}
	}
	// Mkdir filters the mode through umask; chmod asserts setgid and the
	// final bits explicitly.
	if err := m.chmod(path, DirMode); err != nil {
		return "", &Error{Group: group, Step: "chmod", Err: err}
	}
	if err := m.chown(path, -1, gid); err != nil {
		return "", &Error{Group: group, Step: "chown", Err: err}
	}
	if err := m.quotas.EnableProject(path, gid); err != nil {
		return "", &Error{Group: group, Step: "project quota", Err: err}
	}
	return path, nil
}
