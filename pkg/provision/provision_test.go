package provision

import (
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"
)

type fakeQuota struct {
	enabled []string
	err     error
}

func (f *fakeQuota) Query(string, int) (int64, bool, error) { return 0, false, nil }
func (f *fakeQuota) SetLimit(string, int, int64) error      { return nil }
func (f *fakeQuota) EnableProject(path string, _ int) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = append(f.enabled, path)
	return nil
}

type dirInfo struct{ name string }

func (d dirInfo) Name() string       { return d.name }
func (d dirInfo) Size() int64        { return 0 }
func (d dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o770 }
func (d dirInfo) ModTime() time.Time { return time.Time{} }
func (d dirInfo) IsDir() bool        { return true }
func (d dirInfo) Sys() any           { return nil }

type ops struct {
	steps []string

	existing map[string]bool
	mkdirErr error
	chmodErr error
	chownErr error
}

func newFakeManager(quotas *fakeQuota, o *ops) *Manager {
	m := NewManager(quotas)
	m.stat = func(path string) (os.FileInfo, error) {
		if o.existing[path] {
			return dirInfo{name: path}, nil
		}
		return nil, os.ErrNotExist
	}
	m.mkdir = func(path string, _ os.FileMode) error {
		if o.mkdirErr != nil {
			return o.mkdirErr
		}
		o.steps = append(o.steps, "mkdir")
		return nil
	}
	m.chmod = func(path string, mode os.FileMode) error {
		if o.chmodErr != nil {
			return o.chmodErr
		}
		if mode != DirMode {
			return errors.New("wrong mode")
		}
		o.steps = append(o.steps, "chmod")
		return nil
	}
	m.chown = func(path string, uid, gid int) error {
		if o.chownErr != nil {
			return o.chownErr
		}
		if uid != -1 {
			return errors.New("owner uid must stay unchanged")
		}
		o.steps = append(o.steps, "chown")
		return nil
	}
	return m
}

func TestEnsureDirectoryCreatesAndConfigures(t *testing.T) {
	quotas := &fakeQuota{}
	o := &ops{existing: map[string]bool{}}
	m := newFakeManager(quotas, o)

	path, err := m.EnsureDirectory("/net/pr2/projects/plgrid", "teamA", 10001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/net/pr2/projects/plgrid/teamA" {
		t.Errorf("path = %q", path)
	}

	want := []string{"mkdir", "chmod", "chown"}
	if len(o.steps) != len(want) {
		t.Fatalf("steps = %v, want %v", o.steps, want)
	}
	for i := range want {
		if o.steps[i] != want[i] {
			t.Fatalf("steps = %v, want %v", o.steps, want)
		}
	}
	if len(quotas.enabled) != 1 || quotas.enabled[0] != path {
		t.Errorf("project quota enabled on %v, want %q", quotas.enabled, path)
	}
}

func TestExistingDirectoryIsUntouched(t *testing.T) {
	quotas := &fakeQuota{}
	o := &ops{existing: map[string]bool{"/net/pr2/projects/plgrid/teamA": true}}
	m := newFakeManager(quotas, o)

	path, err := m.EnsureDirectory("/net/pr2/projects/plgrid", "teamA", 10001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/net/pr2/projects/plgrid/teamA" {
		t.Errorf("path = %q", path)
	}
	if len(o.steps) != 0 {
		t.Errorf("steps = %v, want none for an existing directory", o.steps)
	}
	if len(quotas.enabled) != 0 {
		t.Error("project quota must not be re-enabled")
	}
}

func TestFailedStepReportsGroupAndStep(t *testing.T) {
	quotas := &fakeQuota{}
	o := &ops{existing: map[string]bool{}, chownErr: errors.New("operation not permitted")}
	m := newFakeManager(quotas, o)

	_, err := m.EnsureDirectory("/net/pr2/projects/plgrid", "teamA", 10001)
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if pe.Group != "teamA" || pe.Step != "chown" {
		t.Errorf("error = %+v", pe)
	}
}

func TestQuotaToolFailureIsProvisioningError(t *testing.T) {
	quotas := &fakeQuota{err: errors.New("lfs project failed")}
	o := &ops{existing: map[string]bool{}}
	m := newFakeManager(quotas, o)

	_, err := m.EnsureDirectory("/net/pr2/projects/plgrid", "teamA", 10001)
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if pe.Step != "project quota" {
		t.Errorf("step = %q", pe.Step)
	}
}
