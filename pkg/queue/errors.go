package queue

import "errors"

var (
	// ErrCorruptHeader is returned by Open when the on-disk header fails
	// validation (bad magic, version, geometry, or checksum).
	ErrCorruptHeader = errors.New("corrupt queue header")

	// ErrCorruptRecord is returned when a stored record fails its integrity
	// check, either during the recovery walk at open or on dequeue.
	ErrCorruptRecord = errors.New("corrupt queue record")

	// ErrQueueClosed is returned by operations on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrPayloadTooLarge is returned by Enqueue when the framed payload can
	// never fit in a single block.
	ErrPayloadTooLarge = errors.New("payload too large for block size")
)
