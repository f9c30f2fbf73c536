package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mapping is a shared memory file and its mapping in this process.
type Mapping struct {
	FD   int
	Data []byte
}

// Allocator creates shared memory of a given size.
type Allocator func(size int) (*Mapping, error)

// Memfd allocates an anonymous sealed-size memfd and maps it read-write.
func Memfd(size int) (*Mapping, error) {
	fd, err := unix.MemfdCreate("shaderlock-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate: %w", err)
	}
	// Growing or shrinking the file under the compositor would fault it.
	_, _ = unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_GROW)

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &Mapping{FD: fd, Data: data}, nil
}

// Close unmaps the memory and closes the file.
func (m *Mapping) Close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.Data != nil && m.FD >= 0 {
		err = unix.Munmap(m.Data)
	}
	m.Data = nil
	if m.FD >= 0 {
		if cerr := unix.Close(m.FD); cerr != nil && err == nil {
			err = cerr
		}
	}
	m.FD = -1
	return err
}
