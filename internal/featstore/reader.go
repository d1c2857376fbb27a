package featstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"asrprep/internal/fbank"
)

// Reader decodes matrices from archives. It is safe for concurrent use.
type Reader struct {
	dec *zstd.Decoder
}

// NewReader builds a reader. The chunk size of each matrix comes from its key.
func NewReader() (*Reader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Reader{dec: dec}, nil
}

// Close releases decoder resources.
func (r *Reader) Close() {
	if r != nil && r.dec != nil {
		r.dec.Close()
	}
}

// Read decodes the whole matrix addressed by key.
func (r *Reader) Read(path string, key Key, numFrames, numFeatures int) (fbank.Matrix, error) {
	return r.ReadFrames(path, key, numFrames, numFeatures, 0, numFrames)
}

// ReadFrames decodes frames [start, end) of the matrix addressed by key.
func (r *Reader) ReadFrames(path string, key Key, numFrames, numFeatures, start, end int) (fbank.Matrix, error) {
	if start < 0 || end > numFrames || start >= end {
		return fbank.Matrix{}, fmt.Errorf("frame range [%d, %d) outside [0, %d)", start, end, numFrames)
	}
	chunkFrames := key.ChunkFrames
	if chunkFrames <= 0 {
		return fbank.Matrix{}, fmt.Errorf("storage key has invalid chunk size %d", chunkFrames)
	}
	wantChunks := (numFrames + chunkFrames - 1) / chunkFrames
	if len(key.Chunks) != wantChunks {
		return fbank.Matrix{}, fmt.Errorf("storage key has %d chunks, expected %d", len(key.Chunks), wantChunks)
	}

	file, err := os.Open(path)
	if err != nil {
		return fbank.Matrix{}, err
	}
	defer file.Close()

	firstChunk := start / chunkFrames
	lastChunk := (end - 1) / chunkFrames
	offset := key.Offset
	for i := 0; i < firstChunk; i++ {
		offset += key.Chunks[i]
	}

	out := fbank.Matrix{NumFrames: end - start, NumFeatures: numFeatures, Data: make([]float32, 0, (end-start)*numFeatures)}
	var packed []byte
	for c := firstChunk; c <= lastChunk; c++ {
		size := key.Chunks[c]
		if cap(packed) < int(size) {
			packed = make([]byte, size)
		}
		packed = packed[:size]
		if _, err := file.ReadAt(packed, offset); err != nil && err != io.EOF {
			return fbank.Matrix{}, fmt.Errorf("read chunk %d: %w", c, err)
		}
		offset += size

		raw, err := r.dec.DecodeAll(packed, nil)
		if err != nil {
			return fbank.Matrix{}, fmt.Errorf("decompress chunk %d: %w", c, err)
		}
		chunkStart := c * chunkFrames
		chunkEnd := min(chunkStart+chunkFrames, numFrames)
		if len(raw) != (chunkEnd-chunkStart)*numFeatures*4 {
			return fbank.Matrix{}, fmt.Errorf("chunk %d: decoded %d bytes, expected %d", c, len(raw), (chunkEnd-chunkStart)*numFeatures*4)
		}
		lo := max(start, chunkStart) - chunkStart
		hi := min(end, chunkEnd) - chunkStart
		for i := lo * numFeatures; i < hi*numFeatures; i++ {
			out.Data = append(out.Data, math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	}
	return out, nil
}
