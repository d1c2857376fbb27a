package featstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"asrprep/internal/fbank"
)

// ArchiveName returns the archive file name for an extraction job.
func ArchiveName(job int) string {
	return fmt.Sprintf("feats-%04d.zfa", job)
}

// Writer appends matrices to one archive file.
type Writer struct {
	path        string
	file        *os.File
	enc         *zstd.Encoder
	chunkFrames int
	offset      int64
	raw         []byte
	packed      []byte
}

// Create truncates or creates the archive at path.
func Create(path string, chunkFrames int) (*Writer, error) {
	if chunkFrames <= 0 {
		return nil, fmt.Errorf("chunk frames must be positive (got %d)", chunkFrames)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Writer{path: path, file: file, enc: enc, chunkFrames: chunkFrames}, nil
}

// Path returns the archive location.
func (w *Writer) Path() string {
	return w.path
}

// Write appends m and returns its storage key.
func (w *Writer) Write(m fbank.Matrix) (Key, error) {
	if m.NumFrames <= 0 || m.NumFeatures <= 0 || len(m.Data) != m.NumFrames*m.NumFeatures {
		return Key{}, fmt.Errorf("malformed matrix %dx%d with %d values", m.NumFrames, m.NumFeatures, len(m.Data))
	}
	key := Key{ChunkFrames: w.chunkFrames, Offset: w.offset}
	for start := 0; start < m.NumFrames; start += w.chunkFrames {
		end := min(start+w.chunkFrames, m.NumFrames)
		w.raw = encodeFloats(w.raw[:0], m.Data[start*m.NumFeatures:end*m.NumFeatures])
		w.packed = w.enc.EncodeAll(w.raw, w.packed[:0])
		n, err := w.file.Write(w.packed)
		w.offset += int64(n)
		if err != nil {
			return Key{}, fmt.Errorf("write chunk: %w", err)
		}
		key.Chunks = append(key.Chunks, int64(n))
	}
	return key, nil
}

// Close flushes the archive to stable storage.
func (w *Writer) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	_ = w.enc.Close()
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	if syncErr != nil {
		return fmt.Errorf("sync archive: %w", syncErr)
	}
	return closeErr
}

func encodeFloats(dst []byte, values []float32) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
