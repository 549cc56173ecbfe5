package queue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeCorruptQueue creates a queue with a few records, closes it, and
// returns the path of the backing file for tampering.
func writeCorruptQueue(t *testing.T, dir string) string {
	t.Helper()

	q, err := Open("jobs",
		WithStorageDir(dir),
		WithBlockSize(4096),
		WithMaxSize(32768))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	mustEnqueue(t, q, []byte("first record"))
	mustEnqueue(t, q, []byte("second record"))

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	return filepath.Join(dir, "jobs.dat")
}

// flipByte XORs one byte of the file at the given offset.
func flipByte(t *testing.T, path string, offset int64) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open backing file: %v", err)
	}
	defer f.Close()

	b := make([]byte, 1)
	if _, err := f.ReadAt(b, offset); err != nil {
		t.Fatalf("read backing file: %v", err)
	}
	b[0] ^= 0xFF
	if _, err := f.WriteAt(b, offset); err != nil {
		t.Fatalf("write backing file: %v", err)
	}
}

func reopen(dir string) (*Queue, error) {
	return Open("jobs",
		WithStorageDir(dir),
		WithBlockSize(4096),
		WithMaxSize(32768))
}

func TestReopenDetectsPayloadCorruption(t *testing.T) {
	dir := t.TempDir()
	path := writeCorruptQueue(t, dir)

	// Flip a payload byte of the first record: block 1 starts at 4096,
	// the payload follows the 4-byte length prefix.
	flipByte(t, path, 4096+lenPrefixSize+3)

	if _, err := reopen(dir); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestReopenDetectsLengthCorruption(t *testing.T) {
	dir := t.TempDir()
	path := writeCorruptQueue(t, dir)

	// Flip the high byte of the first length prefix so the frame claims
	// to cross the block boundary.
	flipByte(t, path, 4096+3)

	if _, err := reopen(dir); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord, got %v", err)
	}
}

func TestReopenDetectsHeaderCorruption(t *testing.T) {
	dir := t.TempDir()
	path := writeCorruptQueue(t, dir)

	// Flip a magic byte: the header checksum no longer matches.
	flipByte(t, path, 0)

	if _, err := reopen(dir); !errors.Is(err, ErrCorruptHeader) {
		t.Errorf("expected ErrCorruptHeader, got %v", err)
	}
}

func TestReopenDetectsHeaderFieldTampering(t *testing.T) {
	dir := t.TempDir()
	path := writeCorruptQueue(t, dir)

	// Flip a byte of the stored count without fixing the checksum.
	flipByte(t, path, 48)

	if _, err := reopen(dir); !errors.Is(err, ErrCorruptHeader) {
		t.Errorf("expected ErrCorruptHeader, got %v", err)
	}
}

func TestReopenRejectsBlockSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	writeCorruptQueue(t, dir)

	_, err := Open("jobs",
		WithStorageDir(dir),
		WithBlockSize(8192),
		WithMaxSize(32768))
	if !errors.Is(err, ErrCorruptHeader) {
		t.Errorf("expected ErrCorruptHeader for block size mismatch, got %v", err)
	}
}

func TestReopenRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCorruptQueue(t, dir)

	// Shorten the file below the capacity the header records.
	if err := os.Truncate(path, 8192); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	if _, err := reopen(dir); !errors.Is(err, ErrCorruptHeader) {
		t.Errorf("expected ErrCorruptHeader for truncated file, got %v", err)
	}
}

func TestReopenCleanFile(t *testing.T) {
	dir := t.TempDir()
	writeCorruptQueue(t, dir)

	// An untouched file reopens and drains normally.
	q, err := reopen(dir)
	if err != nil {
		t.Fatalf("reopen of clean file failed: %v", err)
	}
	defer q.Close()

	if got := mustDequeue(t, q); string(got) != "first record" {
		t.Errorf("Dequeue = %q, want %q", got, "first record")
	}
	if got := mustDequeue(t, q); string(got) != "second record" {
		t.Errorf("Dequeue = %q, want %q", got, "second record")
	}
}
