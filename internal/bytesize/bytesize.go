// Package bytesize parses and formats byte counts with human-readable
// unit suffixes.
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes. It unmarshals from plain numbers and from
// strings with a unit suffix: binary units (Ki, Mi, Gi, Ti, optionally
// with a trailing B) multiply by 1024, decimal units (K, M, G, T, KB,
// MB, GB, TB) by 1000.
type ByteSize uint64

// Unit multipliers.
const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var units = map[string]ByteSize{
	"": B, "b": B,
	"k": KB, "kb": KB,
	"m": MB, "mb": MB,
	"g": GB, "gb": GB,
	"t": TB, "tb": TB,
	"ki": KiB, "kib": KiB,
	"mi": MiB, "mib": MiB,
	"gi": GiB, "gib": GiB,
	"ti": TiB, "tib": TiB,
}

// ParseByteSize parses strings like "1Gi", "500Mi", "100MB" or "1024".
// Fractional values are allowed: "1.5Gi" is 1536 MiB.
func ParseByteSize(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size format: %q", s)
	}

	mult, ok := units[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
	}

	if strings.Contains(m[1], ".") {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in byte size: %q", m[1])
		}
		return ByteSize(f * float64(mult)), nil
	}

	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in byte size: %q", m[1])
	}
	return ByteSize(n) * mult, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler. The output parses back
// to the same value: sizes that String can only approximate are written
// as a plain byte count.
func (b ByteSize) MarshalText() ([]byte, error) {
	s := b.String()
	if parsed, err := ParseByteSize(s); err != nil || parsed != b {
		s = strconv.FormatUint(uint64(b), 10)
	}
	return []byte(s), nil
}

// String formats the size in the largest binary unit not exceeding it:
// as a whole number when that unit divides it evenly, otherwise with two
// decimals.
func (b ByteSize) String() string {
	for _, u := range []struct {
		size   ByteSize
		suffix string
	}{
		{TiB, "Ti"},
		{GiB, "Gi"},
		{MiB, "Mi"},
		{KiB, "Ki"},
	} {
		if b < u.size {
			continue
		}
		if b%u.size == 0 {
			return fmt.Sprintf("%d%s", b/u.size, u.suffix)
		}
		return fmt.Sprintf("%.2f%s", float64(b)/float64(u.size), u.suffix)
	}
	return fmt.Sprintf("%dB", b)
}

// Uint64 returns the size as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Int64 returns the size as an int64. Values above math.MaxInt64 wrap.
func (b ByteSize) Int64() int64 {
	return int64(b)
}
