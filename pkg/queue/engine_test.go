package queue

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// openTestQueue opens a queue in a fresh temp directory with small
// geometry so tests exercise padding, growth and wraparound quickly.
func openTestQueue(t *testing.T, opts ...Option) *Queue {
	t.Helper()

	base := []Option{
		WithStorageDir(t.TempDir()),
		WithBlockSize(4096),
		WithMaxSize(32768),
	}

	q, err := Open("test", append(base, opts...)...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { q.Close() })

	return q
}

// mustEnqueue enqueues payload and fails the test if the queue rejects it.
func mustEnqueue(t *testing.T, q *Queue, payload []byte) {
	t.Helper()

	ok, err := q.Enqueue(payload)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !ok {
		t.Fatalf("Enqueue reported queue full")
	}
}

// mustDequeue dequeues one record and fails the test on error or empty queue.
func mustDequeue(t *testing.T, q *Queue) []byte {
	t.Helper()

	payload, err := q.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if payload == nil {
		t.Fatalf("Dequeue returned empty queue")
	}
	return payload
}

// fill returns n bytes of a repeating pattern seeded by b.
func fill(n int, b byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = b + byte(i)
	}
	return p
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := openTestQueue(t)

	messages := []string{"first", "second", "third", "fourth", "fifth"}
	for _, m := range messages {
		mustEnqueue(t, q, []byte(m))
	}

	if q.Count() != uint64(len(messages)) {
		t.Fatalf("Count = %d, want %d", q.Count(), len(messages))
	}

	for _, want := range messages {
		got := mustDequeue(t, q)
		if string(got) != want {
			t.Errorf("Dequeue = %q, want %q", got, want)
		}
	}

	if !q.Empty() {
		t.Errorf("queue not empty after draining, count=%d", q.Count())
	}
}

func TestSingleRecordAccounting(t *testing.T) {
	q := openTestQueue(t)

	payload := []byte("hello")
	mustEnqueue(t, q, payload)

	if q.Count() != 1 {
		t.Errorf("Count = %d, want 1", q.Count())
	}
	if want := uint64(len(payload) + frameOverhead); q.Bytes() != want {
		t.Errorf("Bytes = %d, want %d", q.Bytes(), want)
	}

	mustDequeue(t, q)

	if q.Bytes() != 0 {
		t.Errorf("Bytes = %d after drain, want 0", q.Bytes())
	}
}

func TestBinaryPayload(t *testing.T) {
	q := openTestQueue(t)

	payload := []byte{0x00, 0xFF, 0x0A, 0x00, 0xFE}
	mustEnqueue(t, q, payload)

	got := mustDequeue(t, q)
	if !bytes.Equal(got, payload) {
		t.Errorf("Dequeue = %v, want %v", got, payload)
	}
}

func TestEmptyPayload(t *testing.T) {
	q := openTestQueue(t)

	mustEnqueue(t, q, []byte{})

	got := mustDequeue(t, q)
	if len(got) != 0 {
		t.Errorf("Dequeue = %v, want empty payload", got)
	}
}

func TestLargePayload(t *testing.T) {
	q := openTestQueue(t,
		WithBlockSize(2<<20),
		WithMaxSize(8<<20))

	payload := fill(1<<20, 0x42)
	mustEnqueue(t, q, payload)

	got := mustDequeue(t, q)
	if !bytes.Equal(got, payload) {
		t.Errorf("1 MiB payload corrupted in transit")
	}
}

func TestPayloadTooLarge(t *testing.T) {
	q := openTestQueue(t)

	// Frame = payload + 5 bytes, so 4092 bytes cannot fit a 4096 block.
	_, err := q.Enqueue(fill(4092, 0))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}

	// The largest payload that still fits a block must succeed.
	mustEnqueue(t, q, fill(4091, 0))
}

func TestQueueFull(t *testing.T) {
	q := openTestQueue(t, WithMaxSize(8192))

	// Usable region is one block. Two 2048-byte frames fill it exactly.
	a := fill(2043, 'a')
	b := fill(2043, 'b')
	mustEnqueue(t, q, a)
	mustEnqueue(t, q, b)

	ok, err := q.Enqueue(fill(2043, 'c'))
	if err != nil {
		t.Fatalf("Enqueue on full queue errored: %v", err)
	}
	if ok {
		t.Fatalf("Enqueue succeeded on a full queue at max size")
	}

	// Records survive the rejected enqueue untouched.
	if got := mustDequeue(t, q); !bytes.Equal(got, a) {
		t.Errorf("first record corrupted after full rejection")
	}
	if got := mustDequeue(t, q); !bytes.Equal(got, b) {
		t.Errorf("second record corrupted after full rejection")
	}
}

func TestGrowth(t *testing.T) {
	q := openTestQueue(t)

	before := q.Stats()
	if before.Capacity != 16384 {
		t.Fatalf("initial capacity = %d, want 16384", before.Capacity)
	}

	// Four 3005-byte frames, each padded out to its own block, exceed the
	// initial usable region; the file must double to make room.
	var payloads [][]byte
	for i := 0; i < 4; i++ {
		p := fill(3000, byte('a'+i))
		payloads = append(payloads, p)
		mustEnqueue(t, q, p)
	}

	after := q.Stats()
	if after.Capacity <= before.Capacity {
		t.Errorf("capacity did not grow: %d -> %d", before.Capacity, after.Capacity)
	}
	if after.Capacity > after.MaxSize {
		t.Errorf("capacity %d exceeds max size %d", after.Capacity, after.MaxSize)
	}

	for i, want := range payloads {
		got := mustDequeue(t, q)
		if !bytes.Equal(got, want) {
			t.Errorf("record %d corrupted after growth", i)
		}
	}
}

func TestWrapAround(t *testing.T) {
	q := openTestQueue(t, WithMaxSize(8192))

	a := fill(2043, 'a')
	b := fill(2043, 'b')
	c := fill(2043, 'c')

	mustEnqueue(t, q, a)
	mustEnqueue(t, q, b)

	// Drain one record, then reuse its slot: the writer has wrapped back
	// to the start of the ring.
	if got := mustDequeue(t, q); !bytes.Equal(got, a) {
		t.Fatalf("expected first record before wrap")
	}
	mustEnqueue(t, q, c)

	if got := mustDequeue(t, q); !bytes.Equal(got, b) {
		t.Errorf("FIFO order broken across wrap")
	}
	if got := mustDequeue(t, q); !bytes.Equal(got, c) {
		t.Errorf("wrapped record corrupted")
	}
	if !q.Empty() {
		t.Errorf("queue not empty after wrap cycle")
	}
}

func TestBlockPaddingAccounted(t *testing.T) {
	q := openTestQueue(t)

	// The second frame does not fit the remainder of the first block, so
	// the writer pads to the boundary and the padding counts as live bytes.
	mustEnqueue(t, q, fill(3000, 'a'))
	mustEnqueue(t, q, fill(3000, 'b'))

	frame := uint64(3000 + frameOverhead)
	padding := uint64(4096) - frame
	if want := 2*frame + padding; q.Bytes() != want {
		t.Errorf("Bytes = %d, want %d (two frames plus %d padding)", q.Bytes(), want, padding)
	}

	mustDequeue(t, q)
	mustDequeue(t, q)

	if q.Bytes() != 0 {
		t.Errorf("Bytes = %d after drain, want 0", q.Bytes())
	}
}

func TestTinyRemainderSkipped(t *testing.T) {
	q := openTestQueue(t)

	// A 4093-byte frame leaves a 3-byte remainder: too small for a skip
	// marker, skipped by rule on both sides.
	first := fill(4088, 'x')
	second := fill(100, 'y')
	mustEnqueue(t, q, first)
	mustEnqueue(t, q, second)

	if got := mustDequeue(t, q); !bytes.Equal(got, first) {
		t.Errorf("record before tiny remainder corrupted")
	}
	if got := mustDequeue(t, q); !bytes.Equal(got, second) {
		t.Errorf("record after tiny remainder corrupted")
	}
}

func TestReclaimDrainedRing(t *testing.T) {
	q := openTestQueue(t, WithMaxSize(8192))

	// Leave the pointers mid-ring on an empty queue, then ask for a full
	// block: only collapsing the pointers back to the start makes room.
	mustEnqueue(t, q, fill(2043, 'a'))
	mustDequeue(t, q)

	big := fill(4091, 'b')
	mustEnqueue(t, q, big)

	if got := mustDequeue(t, q); !bytes.Equal(got, big) {
		t.Errorf("record corrupted after pointer reclaim")
	}
}

func TestInterleavedOperations(t *testing.T) {
	q := openTestQueue(t)

	next := 0
	expect := 0
	for round := 0; round < 50; round++ {
		for i := 0; i < 3; i++ {
			mustEnqueue(t, q, []byte(fmt.Sprintf("msg-%04d", next)))
			next++
		}
		for i := 0; i < 2; i++ {
			got := mustDequeue(t, q)
			want := fmt.Sprintf("msg-%04d", expect)
			if string(got) != want {
				t.Fatalf("round %d: Dequeue = %q, want %q", round, got, want)
			}
			expect++
		}
	}

	for expect < next {
		got := mustDequeue(t, q)
		want := fmt.Sprintf("msg-%04d", expect)
		if string(got) != want {
			t.Fatalf("drain: Dequeue = %q, want %q", got, want)
		}
		expect++
	}
}

func BenchmarkEnqueue(b *testing.B) {
	q, err := Open("bench",
		WithStorageDir(b.TempDir()),
		WithBlockSize(4<<20),
		WithMaxSize(1<<30))
	if err != nil {
		b.Fatalf("Open failed: %v", err)
	}
	defer q.Close()

	payload := fill(1024, 0x55)

	b.ResetTimer()
	b.SetBytes(int64(len(payload)))
	for i := 0; i < b.N; i++ {
		ok, err := q.Enqueue(payload)
		if err != nil {
			b.Fatalf("Enqueue failed: %v", err)
		}
		if !ok {
			// Drain and keep going once the file hits max size.
			b.StopTimer()
			for {
				p, err := q.Dequeue()
				if err != nil {
					b.Fatalf("Dequeue failed: %v", err)
				}
				if p == nil {
					break
				}
			}
			b.StartTimer()
		}
	}
}

func BenchmarkEnqueueDequeue(b *testing.B) {
	q, err := Open("bench",
		WithStorageDir(b.TempDir()),
		WithBlockSize(4<<20),
		WithMaxSize(1<<30))
	if err != nil {
		b.Fatalf("Open failed: %v", err)
	}
	defer q.Close()

	payload := fill(1024, 0x55)

	b.ResetTimer()
	b.SetBytes(int64(len(payload)))
	for i := 0; i < b.N; i++ {
		if _, err := q.Enqueue(payload); err != nil {
			b.Fatalf("Enqueue failed: %v", err)
		}
		if _, err := q.Dequeue(); err != nil {
			b.Fatalf("Dequeue failed: %v", err)
		}
	}
}
