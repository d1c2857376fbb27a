package featstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Key locates one matrix inside an archive. ChunkFrames travels with the key
// so a reader needs nothing beyond the manifest entry.
type Key struct {
	ChunkFrames int
	Offset      int64
	Chunks      []int64
}

// String renders the key as "chunk_frames:offset,len1,len2,...".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(k.ChunkFrames))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(k.Offset, 10))
	for _, n := range k.Chunks {
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(n, 10))
	}
	return b.String()
}

// Size returns the total compressed size.
func (k Key) Size() int64 {
	var total int64
	for _, n := range k.Chunks {
		total += n
	}
	return total
}

// ParseKey parses a key produced by Key.String.
func ParseKey(s string) (Key, error) {
	head, rest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Key{}, fmt.Errorf("storage key %q: missing chunk size", s)
	}
	chunkFrames, err := strconv.Atoi(head)
	if err != nil || chunkFrames <= 0 {
		return Key{}, fmt.Errorf("storage key %q: invalid chunk size %q", s, head)
	}
	parts := strings.Split(rest, ",")
	if len(parts) < 2 {
		return Key{}, fmt.Errorf("storage key %q: expected offset and at least one chunk", s)
	}
	values := make([]int64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil || v < 0 {
			return Key{}, fmt.Errorf("storage key %q: invalid field %q", s, part)
		}
		values[i] = v
	}
	return Key{ChunkFrames: chunkFrames, Offset: values[0], Chunks: values[1:]}, nil
}
