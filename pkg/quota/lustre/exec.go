package lustre

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/plgrid/hpc-storage/pkg/quota"
)

const kbPerGB = 1024 * 1024

// LFSCLI drives Lustre project quotas through the lfs binary.
type LFSCLI struct {
	// Path to the lfs binary, /usr/bin/lfs in the standard install.
	Path string

	run func(name string, args ...string) (stdout string, err error)
}

var _ quota.Manager = (*LFSCLI)(nil)

func NewLFSCLI(path string) *LFSCLI {
	c := &LFSCLI{Path: path}
	c.run = c.execute
	return c
}

func (c *LFSCLI) execute(name string, args ...string) (string, error) {
	klog.V(4).InfoS("Exec", "cmd", name, "args", args)
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return stdout.String(), &quota.ToolError{
			Cmd:      name + " " + strings.Join(args, " "),
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), nil
}

// Query runs lfs quota and parses the output line carrying the filesystem
// path; its fourth field is the block hard limit in kB.
func (c *LFSCLI) Query(filesystem string, gid int) (int64, bool, error) {
	out, err := c.run(c.Path, "quota", "-p", strconv.Itoa(gid), filesystem)
	if err != nil {
		return 0, false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, filesystem) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		limitKB, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse quota limit %q for gid %d: %v", fields[3], gid, err)
		}
		return limitKB / kbPerGB, true, nil
	}
	return 0, false, nil
}

func (c *LFSCLI) SetLimit(filesystem string, gid int, limitGB int64) error {
	limitKB := limitGB * kbPerGB
	klog.V(4).InfoS("Exec: SetLimit", "gid", gid, "limitKB", limitKB, "filesystem", filesystem)
	_, err := c.run(c.Path, "setquota", "-p", strconv.Itoa(gid), "-B", strconv.FormatInt(limitKB, 10), filesystem)
	return err
}

func (c *LFSCLI) EnableProject(path string, gid int) error {
	klog.V(4).InfoS("Exec: EnableProject", "path", path, "gid", gid)
	_, err := c.run(c.Path, "project", "-p", strconv.Itoa(gid), "-s", "-r", path)
	return err
}
