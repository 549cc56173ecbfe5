// Package queue implements a durable FIFO byte queue backed by a single
// memory-mapped file.
//
// The file starts with a 4 KiB header region followed by fixed-size
// blocks. Records are framed with a length prefix and a checksum byte and
// live in the ring-shaped region after the header. The file grows by
// doubling up to a configured maximum; all state needed to resume after a
// restart is in the header.
//
// A queue is single-process: Open takes an exclusive advisory lock on the
// backing file and fails if another process holds it. Within the process,
// all operations are safe for concurrent use.
package queue

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/marmos91/duraq/internal/logger"
)

// Defaults used when the corresponding option is not given.
const (
	DefaultStorageDir = "storage"
	DefaultBlockSize  = 64 << 20 // 64 MiB
	DefaultMaxSize    = 1 << 30  // 1 GiB
)

// Record framing constants.
const (
	// lenPrefixSize is the size of the little-endian length prefix.
	lenPrefixSize = 4

	// frameOverhead is the framing cost per record: length prefix plus
	// one checksum byte.
	frameOverhead = lenPrefixSize + 1

	// skipMarker in a length prefix means "no record here, continue at
	// the next block boundary". Written when a frame would otherwise
	// straddle two blocks.
	skipMarker = ^uint32(0)
)

type options struct {
	storageDir string
	blockSize  uint64
	maxSize    uint64
	logDir     string
	metrics    QueueMetrics
}

// Option configures Open.
type Option func(*options)

// WithStorageDir sets the directory holding the backing file.
func WithStorageDir(dir string) Option {
	return func(o *options) { o.storageDir = dir }
}

// WithBlockSize sets the block size in bytes. Must be a multiple of
// 4096. Records never cross block boundaries, so the block size is also
// the upper bound on a framed record.
func WithBlockSize(size uint64) Option {
	return func(o *options) { o.blockSize = size }
}

// WithMaxSize sets the hard cap on the backing file length. Must be a
// multiple of the block size and at least two blocks.
func WithMaxSize(size uint64) Option {
	return func(o *options) { o.maxSize = size }
}

// WithLogDir routes the global logger to a file in the given directory.
func WithLogDir(dir string) Option {
	return func(o *options) { o.logDir = dir }
}

// WithMetrics attaches a metrics sink to the queue. Nil disables metrics.
func WithMetrics(m QueueMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// Queue is a durable FIFO byte queue over a single file.
type Queue struct {
	mu     sync.Mutex
	name   string
	path   string
	bf     *blockFile
	hdr    *header
	m      QueueMetrics
	closed bool
}

// Open opens the queue with the given name, creating the backing file if
// it does not exist. An existing file is validated (header and full
// record walk) before the queue becomes usable; validation failure
// returns ErrCorruptHeader or ErrCorruptRecord and leaves the file
// untouched.
func Open(name string, opts ...Option) (*Queue, error) {
	if name == "" {
		return nil, fmt.Errorf("queue name must not be empty")
	}

	o := &options{
		storageDir: DefaultStorageDir,
		blockSize:  DefaultBlockSize,
		maxSize:    DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.blockSize < headerRegion || o.blockSize%headerRegion != 0 {
		return nil, fmt.Errorf("block size %d must be a positive multiple of %d", o.blockSize, headerRegion)
	}
	if o.maxSize < 2*o.blockSize || o.maxSize%o.blockSize != 0 {
		return nil, fmt.Errorf("max size %d must be a multiple of block size %d and at least two blocks",
			o.maxSize, o.blockSize)
	}

	if o.logDir != "" {
		logCfg := logger.Config{Output: filepath.Join(o.logDir, "duraq.log")}
		if err := logger.Init(logCfg); err != nil {
			return nil, fmt.Errorf("init log file: %w", err)
		}
	}

	path := filepath.Join(o.storageDir, name+".dat")

	bf, created, err := openBlockFile(path, o.blockSize)
	if err != nil {
		return nil, fmt.Errorf("open queue %q: %w", name, err)
	}

	var hdr *header
	if created {
		capacity := initialCapacity(o.blockSize, o.maxSize)
		if err := bf.resize(capacity); err != nil {
			bf.close()
			return nil, fmt.Errorf("open queue %q: %w", name, err)
		}
		if err := bf.mapHeader(); err != nil {
			bf.close()
			return nil, fmt.Errorf("open queue %q: %w", name, err)
		}
		hdr = newHeader(o.blockSize, o.maxSize, capacity)
		hdr.writeTo(bf.headerMap)
		if err := bf.flushHeader(); err != nil {
			bf.close()
			return nil, fmt.Errorf("open queue %q: %w", name, err)
		}
	} else {
		if err := bf.mapHeader(); err != nil {
			bf.close()
			return nil, fmt.Errorf("open queue %q: %w", name, err)
		}
		hdr, err = readHeader(bf.headerMap[:headerSize])
		if err != nil {
			bf.close()
			return nil, fmt.Errorf("open queue %q: %w", name, err)
		}
		// The on-disk max_size governs geometry from here on; the
		// configured value only applies to fresh files.
		if err := hdr.validate(o.blockSize, bf.size); err != nil {
			bf.close()
			return nil, fmt.Errorf("open queue %q: %w", name, err)
		}
	}

	q := &Queue{
		name: name,
		path: path,
		bf:   bf,
		hdr:  hdr,
		m:    o.metrics,
	}

	if hdr.size > 0 {
		if err := q.verify(); err != nil {
			if q.m != nil {
				q.m.RecordCorruption(q.name)
			}
			logger.Error("queue validation failed",
				logger.Queue(name), logger.Path(path), logger.Err(err))
			bf.close()
			return nil, fmt.Errorf("open queue %q: %w", name, err)
		}
	}

	if q.m != nil {
		q.m.RecordDepth(q.name, hdr.count, hdr.size)
	}

	logger.Info("queue opened",
		logger.Queue(name),
		logger.Path(path),
		logger.Count(hdr.count),
		logger.Size(hdr.size),
		logger.Capacity(hdr.capacity))

	return q, nil
}

// initialCapacity picks the length of a fresh backing file: four blocks,
// capped at the configured maximum. Growth doubles from there.
func initialCapacity(blockSize, maxSize uint64) uint64 {
	c := 4 * blockSize
	if c > maxSize {
		c = maxSize
	}
	return c
}

// Count returns the number of live records.
func (q *Queue) Count() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hdr.count
}

// Bytes returns the number of live bytes, including framing and any
// block padding between records.
func (q *Queue) Bytes() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hdr.size
}

// Empty reports whether the queue holds no records.
func (q *Queue) Empty() bool {
	return q.Count() == 0
}

// Stats is a point-in-time snapshot of the queue geometry and counters.
type Stats struct {
	Name      string
	Path      string
	BlockSize uint64
	MaxSize   uint64
	Capacity  uint64
	Size      uint64
	Count     uint64
	WritePos  uint64
	ReadPos   uint64
}

// Stats returns a snapshot of the queue state.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Name:      q.name,
		Path:      q.path,
		BlockSize: q.hdr.blockSize,
		MaxSize:   q.hdr.maxSize,
		Capacity:  q.hdr.capacity,
		Size:      q.hdr.size,
		Count:     q.hdr.count,
		WritePos:  q.hdr.writePos,
		ReadPos:   q.hdr.readPos,
	}
}

// Close flushes the header and releases all mappings and the file lock.
// Closing an already-closed queue is a no-op.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	q.hdr.writeTo(q.bf.headerMap)
	err := q.bf.close()

	logger.Info("queue closed",
		logger.Queue(q.name),
		logger.Count(q.hdr.count),
		logger.Size(q.hdr.size))

	if err != nil {
		return fmt.Errorf("close queue %q: %w", q.name, err)
	}
	return nil
}

// commitHeader writes the staged header through to the mapping and
// flushes it.
func (q *Queue) commitHeader() error {
	q.hdr.writeTo(q.bf.headerMap)
	if err := q.bf.flushHeader(); err != nil {
		return err
	}
	return nil
}
