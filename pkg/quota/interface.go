package quota

import "fmt"

// Manager abstracts the privileged filesystem quota tooling so the
// reconciler can run against an in-memory fake in tests.
type Manager interface {
	// Query returns the current block limit in whole GB for the group id on
	// the filesystem. found is false when the group has no quota entry yet.
	Query(filesystem string, gid int) (limitGB int64, found bool, err error)
	// SetLimit sets the hard block limit for the group id, in GB.
	SetLimit(filesystem string, gid int, limitGB int64) error
	// EnableProject tags path recursively with gid for project-quota
	// accounting. One-time provisioning step for new directories.
	EnableProject(path string, gid int) error
}

// ToolError reports a quota tool invocation that exited non-zero.
type ToolError struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("quota tool %q exited %d: %s", e.Cmd, e.ExitCode, e.Stderr)
}
