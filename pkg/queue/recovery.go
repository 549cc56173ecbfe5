package queue

import (
	"encoding/binary"
	"fmt"
)

// verify walks the live region from read_pos for size bytes, applying
// the same skip rules as dequeue, and checks every frame against its
// stored checksum. It is called once at open before the queue is handed
// out; any failure means the file is not trusted and the open fails. The
// file is never truncated or repaired.
func (q *Queue) verify() error {
	pos := q.hdr.readPos
	remaining := q.hdr.size
	var records uint64

	for remaining > 0 {
		rem := q.hdr.blockSize - pos%q.hdr.blockSize

		if rem < lenPrefixSize {
			if remaining < rem {
				return fmt.Errorf("%w: padding at %d exceeds live bytes", ErrCorruptRecord, pos)
			}
			pos = q.hdr.advance(pos, rem)
			remaining -= rem
			continue
		}

		blk, err := q.bf.block(pos / q.hdr.blockSize)
		if err != nil {
			return fmt.Errorf("validate %q: %w", q.name, err)
		}
		off := pos % q.hdr.blockSize

		length := binary.LittleEndian.Uint32(blk[off:])
		if length == skipMarker {
			if remaining < rem {
				return fmt.Errorf("%w: skip marker at %d exceeds live bytes", ErrCorruptRecord, pos)
			}
			pos = q.hdr.advance(pos, rem)
			remaining -= rem
			continue
		}

		frame := uint64(length) + frameOverhead
		if frame > rem {
			return fmt.Errorf("%w: frame at %d crosses block boundary", ErrCorruptRecord, pos)
		}
		if frame > remaining {
			return fmt.Errorf("%w: frame at %d exceeds live bytes", ErrCorruptRecord, pos)
		}

		payload := blk[off+lenPrefixSize : off+lenPrefixSize+uint64(length)]
		if checksum(payload) != blk[off+lenPrefixSize+uint64(length)] {
			return fmt.Errorf("%w: checksum mismatch at %d", ErrCorruptRecord, pos)
		}

		pos = q.hdr.advance(pos, frame)
		remaining -= frame
		records++
	}

	if records != q.hdr.count {
		return fmt.Errorf("%w: walked %d records, header claims %d",
			ErrCorruptRecord, records, q.hdr.count)
	}

	return nil
}
