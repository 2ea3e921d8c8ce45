//go:build linux
// +build linux

// File: buffer/region_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux arena region backing: an anonymous mmap, so the region can be
// handed to consumers as one contiguous mapping and page-aligned DMA
// style access stays possible.

package buffer

import "golang.org/x/sys/unix"

func mapRegion(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapRegion(region []byte) {
	if region == nil {
		return
	}
	_ = unix.Munmap(region)
}
