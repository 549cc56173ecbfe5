package queue

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/marmos91/duraq/internal/logger"
)

// advance moves pos forward by n within the ring. The usable region is
// the annulus [blockSize, capacity): a position landing exactly on
// capacity wraps to blockSize, never to 0, because the first block holds
// the header. Frames never straddle blocks, so pos+n never overshoots.
func (h *header) advance(pos, n uint64) uint64 {
	pos += n
	if pos >= h.capacity {
		pos = h.blockSize
	}
	return pos
}

// padBefore returns the number of bytes to skip before a frame written
// at pos: zero if the frame fits in the rest of the current block,
// otherwise the remainder of the block.
func (h *header) padBefore(pos, frame uint64) uint64 {
	rem := h.blockSize - pos%h.blockSize
	if frame <= rem {
		return 0
	}
	return rem
}

// usable returns the number of bytes available for records.
func (h *header) usable() uint64 {
	return h.capacity - h.blockSize
}

// Enqueue appends payload to the queue. It returns (false, nil) when the
// queue is full and cannot grow, (false, err) on I/O or integrity
// errors, and (true, nil) on success. The record is durable on disk when
// Enqueue returns true.
func (q *Queue) Enqueue(payload []byte) (bool, error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, ErrQueueClosed
	}

	frame := uint64(len(payload)) + frameOverhead
	if frame > q.hdr.blockSize {
		return false, fmt.Errorf("%w: frame %d exceeds block size %d",
			ErrPayloadTooLarge, frame, q.hdr.blockSize)
	}

	// Make room: grow while possible, then fall back to collapsing the
	// pointers of a fully drained ring. Padding depends on write_pos, so
	// it is recomputed each round.
	var pad uint64
	for {
		pad = q.hdr.padBefore(q.hdr.writePos, frame)
		if q.hdr.size+pad+frame <= q.hdr.usable() {
			break
		}

		grown, err := q.grow()
		if err != nil {
			return false, fmt.Errorf("enqueue on %q: %w", q.name, err)
		}
		if grown {
			continue
		}

		if q.hdr.count == 0 {
			q.reclaim()
			continue
		}

		if q.m != nil {
			q.m.RecordQueueFull(q.name)
		}
		logger.Warn("queue full",
			logger.Queue(q.name),
			logger.Size(q.hdr.size),
			logger.Capacity(q.hdr.capacity))
		return false, nil
	}

	pos := q.hdr.writePos
	size := q.hdr.size

	if pad > 0 {
		// A frame here would straddle the block boundary. Leave a skip
		// marker when there is room for one; a remainder under four
		// bytes cannot hold the marker and the reader skips it by rule.
		if pad >= lenPrefixSize {
			blk, err := q.bf.block(pos / q.hdr.blockSize)
			if err != nil {
				return false, fmt.Errorf("enqueue on %q: %w", q.name, err)
			}
			binary.LittleEndian.PutUint32(blk[pos%q.hdr.blockSize:], skipMarker)
			if err := q.bf.flushBlock(pos / q.hdr.blockSize); err != nil {
				return false, fmt.Errorf("enqueue on %q: %w", q.name, err)
			}
		}
		pos = q.hdr.advance(pos, pad)
		size += pad
	}

	idx := pos / q.hdr.blockSize
	off := pos % q.hdr.blockSize

	blk, err := q.bf.block(idx)
	if err != nil {
		return false, fmt.Errorf("enqueue on %q: %w", q.name, err)
	}

	binary.LittleEndian.PutUint32(blk[off:], uint32(len(payload)))
	copy(blk[off+lenPrefixSize:], payload)
	blk[off+lenPrefixSize+uint64(len(payload))] = checksum(payload)

	if err := q.bf.flushBlock(idx); err != nil {
		return false, fmt.Errorf("enqueue on %q: %w", q.name, err)
	}

	q.hdr.writePos = q.hdr.advance(pos, frame)
	q.hdr.size = size + frame
	q.hdr.count++

	if err := q.commitHeader(); err != nil {
		return false, fmt.Errorf("enqueue on %q: %w", q.name, err)
	}

	if q.m != nil {
		q.m.ObserveEnqueue(q.name, len(payload), time.Since(start))
		q.m.RecordDepth(q.name, q.hdr.count, q.hdr.size)
	}

	logger.Debug("record enqueued",
		logger.Queue(q.name),
		logger.Bytes(len(payload)),
		logger.Count(q.hdr.count),
		logger.WritePos(q.hdr.writePos),
		logger.DurationMs(logger.Duration(start)))

	return true, nil
}

// Dequeue removes and returns the oldest record. It returns (nil, nil)
// when the queue is empty. The returned slice is a copy and remains
// valid after further queue operations.
func (q *Queue) Dequeue() ([]byte, error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	if q.hdr.count == 0 {
		return nil, nil
	}

	pos := q.hdr.readPos
	size := q.hdr.size

	// Consume block padding until a real frame starts. The rules mirror
	// the writer exactly: a remainder under four bytes is skipped
	// unconditionally, a skip marker consumes the rest of its block.
	for {
		rem := q.hdr.blockSize - pos%q.hdr.blockSize

		if rem < lenPrefixSize {
			if size < rem {
				return nil, q.corrupt("padding exceeds live bytes")
			}
			pos = q.hdr.advance(pos, rem)
			size -= rem
			continue
		}

		blk, err := q.bf.block(pos / q.hdr.blockSize)
		if err != nil {
			return nil, fmt.Errorf("dequeue on %q: %w", q.name, err)
		}
		off := pos % q.hdr.blockSize

		length := binary.LittleEndian.Uint32(blk[off:])
		if length == skipMarker {
			if size < rem {
				return nil, q.corrupt("skip marker exceeds live bytes")
			}
			pos = q.hdr.advance(pos, rem)
			size -= rem
			continue
		}

		frame := uint64(length) + frameOverhead
		if frame > rem || frame > size {
			return nil, q.corrupt("frame does not fit live region")
		}

		payload := make([]byte, length)
		copy(payload, blk[off+lenPrefixSize:off+lenPrefixSize+uint64(length)])

		if checksum(payload) != blk[off+lenPrefixSize+uint64(length)] {
			return nil, q.corrupt("payload checksum mismatch")
		}

		q.hdr.readPos = q.hdr.advance(pos, frame)
		q.hdr.size = size - frame
		q.hdr.count--

		if err := q.commitHeader(); err != nil {
			return nil, fmt.Errorf("dequeue on %q: %w", q.name, err)
		}

		if q.m != nil {
			q.m.ObserveDequeue(q.name, len(payload), time.Since(start))
			q.m.RecordDepth(q.name, q.hdr.count, q.hdr.size)
		}

		logger.Debug("record dequeued",
			logger.Queue(q.name),
			logger.Bytes(len(payload)),
			logger.Count(q.hdr.count),
			logger.ReadPos(q.hdr.readPos),
			logger.DurationMs(logger.Duration(start)))

		return payload, nil
	}
}

// grow extends the backing file. It reports false without error when the
// file is already at max size or when the live region wraps: growing a
// wrapped ring would insert dead space inside the FIFO order.
func (q *Queue) grow() (bool, error) {
	if q.hdr.capacity >= q.hdr.maxSize {
		return false, nil
	}
	if q.hdr.count > 0 && q.hdr.writePos <= q.hdr.readPos {
		return false, nil
	}

	newCap := q.hdr.capacity * 2
	if newCap > q.hdr.maxSize {
		newCap = q.hdr.maxSize
	}
	if newCap < q.hdr.capacity+q.hdr.blockSize {
		newCap = q.hdr.capacity + q.hdr.blockSize
	}

	if err := q.bf.resize(newCap); err != nil {
		return false, err
	}

	q.hdr.capacity = newCap
	if err := q.commitHeader(); err != nil {
		return false, err
	}

	logger.Info("queue grown",
		logger.Queue(q.name),
		logger.Capacity(newCap),
		logger.Size(q.hdr.size))

	return true, nil
}

// reclaim collapses the pointers of an empty ring back to the start of
// the usable region. Only valid when count == 0.
func (q *Queue) reclaim() {
	q.hdr.readPos = q.hdr.blockSize
	q.hdr.writePos = q.hdr.blockSize

	logger.Debug("queue pointers reclaimed",
		logger.Queue(q.name),
		logger.Capacity(q.hdr.capacity))
}

// corrupt records the corruption and returns a wrapped ErrCorruptRecord.
func (q *Queue) corrupt(detail string) error {
	if q.m != nil {
		q.m.RecordCorruption(q.name)
	}
	logger.Error("record corruption detected",
		logger.Queue(q.name),
		logger.Path(q.path),
		logger.ReadPos(q.hdr.readPos))
	return fmt.Errorf("%w: %s", ErrCorruptRecord, detail)
}
