package utils

import (
	"syscall"
)

// DiskStatus describes the space situation of one filesystem, in bytes.
type DiskStatus struct {
	Total     uint64
	Used      uint64
	Free      uint64
	BlockSize uint64
}

// GetDiskUsage returns the usage of the filesystem holding path.
func GetDiskUsage(path string) (DiskStatus, error) {
	fs := syscall.Statfs_t{}
	if err := syscall.Statfs(path, &fs); err != nil {
		return DiskStatus{}, err
	}

	blockSize := uint64(fs.Bsize)
	ds := DiskStatus{
		Total:     fs.Blocks * blockSize,
		Free:      fs.Bfree * blockSize,
		BlockSize: blockSize,
	}
	ds.Used = ds.Total - ds.Free
	return ds, nil
}
