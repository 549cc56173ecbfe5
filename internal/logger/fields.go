package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that log
// aggregation and querying stay uniform across the engine and the CLI.
const (
	// ========================================================================
	// Queue identity
	// ========================================================================
	KeyQueue = "queue" // Queue name
	KeyPath  = "path"  // Backing file path

	// ========================================================================
	// Operations
	// ========================================================================
	KeyOperation = "operation" // Operation name: open, enqueue, dequeue, close
	KeyBytes     = "bytes"     // Payload byte count for a single operation
	KeyFrame     = "frame"     // On-disk frame size (length prefix + payload + checksum)

	// ========================================================================
	// Queue state
	// ========================================================================
	KeyCount    = "count"     // Number of live records
	KeySize     = "size"      // Live bytes (including framing)
	KeyCapacity = "capacity"  // Current file length
	KeyBlock    = "block"     // Block index
	KeyWritePos = "write_pos" // Next write offset
	KeyReadPos  = "read_pos"  // Oldest live record offset

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// Queue returns a slog.Attr for the queue name
func Queue(name string) slog.Attr {
	return slog.String(KeyQueue, name)
}

// Path returns a slog.Attr for the backing file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Operation returns a slog.Attr for the operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Bytes returns a slog.Attr for a payload byte count
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// Count returns a slog.Attr for the number of live records
func Count(c uint64) slog.Attr {
	return slog.Uint64(KeyCount, c)
}

// Size returns a slog.Attr for live bytes including framing
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Capacity returns a slog.Attr for the current file length
func Capacity(c uint64) slog.Attr {
	return slog.Uint64(KeyCapacity, c)
}

// Block returns a slog.Attr for a block index
func Block(idx uint64) slog.Attr {
	return slog.Uint64(KeyBlock, idx)
}

// WritePos returns a slog.Attr for the next write offset
func WritePos(off uint64) slog.Attr {
	return slog.Uint64(KeyWritePos, off)
}

// ReadPos returns a slog.Attr for the oldest live record offset
func ReadPos(off uint64) slog.Attr {
	return slog.Uint64(KeyReadPos, off)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
