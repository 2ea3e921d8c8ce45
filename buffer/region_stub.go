//go:build !linux
// +build !linux

// File: buffer/region_stub.go
// Author: momentics <momentics@gmail.com>
//
// Portable arena region backing for platforms without mmap support.

package buffer

func mapRegion(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapRegion(region []byte) {}
