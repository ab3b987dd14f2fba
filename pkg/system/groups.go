package system

import (
	"os/user"
	"strconv"
)

// Resolver looks up the numeric gid for a group name. ok is false when the
// group does not exist on this system, which is routine: the grant registry
// and OS group provisioning converge on their own schedules.
type Resolver interface {
	LookupGid(name string) (gid int, ok bool, err error)
}

// OSGroups resolves against the local group database.
type OSGroups struct{}

var _ Resolver = OSGroups{}

func (OSGroups) LookupGid(name string) (int, bool, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		if _, unknown := err.(user.UnknownGroupError); unknown {
			return 0, false, nil
		}
		return 0, false, err
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, false, err
	}
	return gid, true, nil
}
