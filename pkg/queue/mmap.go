package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// blockFile manages the backing file and its memory mappings.
//
// The header lives in its own small mapping at offset 0 so that flushing
// metadata never forces a sync of data pages. Data blocks are mapped
// lazily, one mapping per block, and cached for the life of the file.
// Because the file only ever grows and mappings are block-granular, a
// resize never invalidates an existing mapping.
type blockFile struct {
	path      string
	file      *os.File
	blockSize uint64
	size      uint64 // current file length

	headerMap []byte
	blocks    map[uint64][]byte // block index -> mapping
}

// openBlockFile opens or creates the backing file at path and takes an
// exclusive advisory lock on it. The second return value reports whether
// the file was newly created (zero length).
func openBlockFile(path string, blockSize uint64) (*blockFile, bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, false, fmt.Errorf("create storage directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("open file: %w", err)
	}

	// A second process opening the same queue would race on the shared
	// header, so refuse instead.
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("lock file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("stat file: %w", err)
	}

	bf := &blockFile{
		path:      path,
		file:      f,
		blockSize: blockSize,
		size:      uint64(info.Size()),
		blocks:    make(map[uint64][]byte),
	}

	return bf, info.Size() == 0, nil
}

// resize extends the file to newSize via ftruncate. The new bytes read as
// zero. Shrinking is never performed.
func (bf *blockFile) resize(newSize uint64) error {
	if newSize < bf.size {
		return fmt.Errorf("resize would shrink file from %d to %d", bf.size, newSize)
	}
	if newSize%bf.blockSize != 0 {
		return fmt.Errorf("resize to %d not a multiple of block size %d", newSize, bf.blockSize)
	}
	if err := bf.file.Truncate(int64(newSize)); err != nil {
		return fmt.Errorf("truncate file: %w", err)
	}
	bf.size = newSize
	return nil
}

// mapHeader maps the reserved header region at offset 0.
func (bf *blockFile) mapHeader() error {
	if bf.headerMap != nil {
		return nil
	}
	if bf.size < headerRegion {
		return fmt.Errorf("%w: file shorter than header region", ErrCorruptHeader)
	}
	m, err := unix.Mmap(int(bf.file.Fd()), 0, headerRegion,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap header: %w", err)
	}
	bf.headerMap = m
	return nil
}

// block returns the mapping for the given block index, creating it on
// first use.
func (bf *blockFile) block(idx uint64) ([]byte, error) {
	if m, ok := bf.blocks[idx]; ok {
		return m, nil
	}

	offset := idx * bf.blockSize
	if offset+bf.blockSize > bf.size {
		return nil, fmt.Errorf("block %d beyond file length %d", idx, bf.size)
	}

	m, err := unix.Mmap(int(bf.file.Fd()), int64(offset), int(bf.blockSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap block %d: %w", idx, err)
	}

	bf.blocks[idx] = m
	return m, nil
}

// flushBlock synchronously flushes the mapping for the given block.
// Block 0 holds only the header, which has its own mapping and flush
// path, so it is skipped here.
func (bf *blockFile) flushBlock(idx uint64) error {
	if idx == 0 {
		return nil
	}
	m, ok := bf.blocks[idx]
	if !ok {
		return nil
	}
	if err := unix.Msync(m, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync block %d: %w", idx, err)
	}
	return nil
}

// flushHeader synchronously flushes the header mapping.
func (bf *blockFile) flushHeader() error {
	if bf.headerMap == nil {
		return nil
	}
	if err := unix.Msync(bf.headerMap, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync header: %w", err)
	}
	return nil
}

// close flushes and unmaps everything, then releases the lock by closing
// the file.
func (bf *blockFile) close() error {
	var firstErr error

	for idx, m := range bf.blocks {
		if idx != 0 {
			if err := unix.Msync(m, unix.MS_SYNC); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("msync block %d: %w", idx, err)
			}
		}
		if err := unix.Munmap(m); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("munmap block %d: %w", idx, err)
		}
	}
	bf.blocks = nil

	if bf.headerMap != nil {
		if err := unix.Msync(bf.headerMap, unix.MS_SYNC); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("msync header: %w", err)
		}
		if err := unix.Munmap(bf.headerMap); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("munmap header: %w", err)
		}
		bf.headerMap = nil
	}

	if bf.file != nil {
		if err := bf.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close file: %w", err)
		}
		bf.file = nil
	}

	return firstErr
}
