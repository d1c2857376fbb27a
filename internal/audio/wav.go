package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func probeWAV(file io.ReadSeeker) (Info, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Info{}, errors.New("invalid WAV file format")
	}
	if decoder.NumChans == 0 || decoder.BitDepth == 0 {
		return Info{}, errors.New("WAV header missing format chunk")
	}
	if err := decoder.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("locate PCM chunk: %w", err)
	}
	frameBytes := int64(decoder.BitDepth/8) * int64(decoder.NumChans)
	if frameBytes == 0 {
		return Info{}, fmt.Errorf("unsupported bit depth: %d", decoder.BitDepth)
	}
	return Info{
		SampleRate: int(decoder.SampleRate),
		NumSamples: decoder.PCMLen() / frameBytes,
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
		Format:     "wav",
	}, nil
}

func decodeWAV(file io.ReadSeeker) (Signal, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Signal{}, errors.New("input is not a valid WAV audio file")
	}
	divisor, err := sampleDivisor(int(decoder.BitDepth))
	if err != nil {
		return Signal{}, err
	}
	// 8-bit WAV PCM is unsigned with silence at 128.
	var offset float64
	if decoder.BitDepth == 8 {
		offset = 128
	}
	channels := int(decoder.NumChans)
	if channels <= 0 {
		return Signal{}, errors.New("WAV header reports no channels")
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, 64*1024*channels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}
	var samples []float64
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return Signal{}, fmt.Errorf("decode PCM: %w", err)
		}
		if n == 0 {
			break
		}
		for i := 0; i+channels <= n; i += channels {
			samples = append(samples, (float64(buf.Data[i])-offset)/divisor)
		}
	}
	return Signal{SampleRate: int(decoder.SampleRate), Samples: samples}, nil
}

// WriteWAV encodes mono PCM samples to path.
func WriteWAV(path string, sampleRate, bitDepth int, samples []int) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return out.Close()
}
