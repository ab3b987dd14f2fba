package system

import "testing"

func TestUnknownGroupIsNotAnError(t *testing.T) {
	_, ok, err := OSGroups{}.LookupGid("hpc-storage-no-such-group")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected missing group")
	}
}
