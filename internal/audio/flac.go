package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

func probeFLAC(file io.Reader) (Info, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return Info{}, err
	}
	return Info{
		SampleRate: decoder.SampleRate,
		NumSamples: int64(decoder.TotalSamples),
		Channels:   decoder.NChannels,
		BitDepth:   decoder.BitsPerSample,
		Format:     "flac",
	}, nil
}

func decodeFLAC(file io.Reader) (Signal, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return Signal{}, err
	}
	divisor, err := sampleDivisor(decoder.BitsPerSample)
	if err != nil {
		return Signal{}, err
	}
	bytesPerSample := decoder.BitsPerSample / 8
	stride := bytesPerSample * decoder.NChannels
	if stride == 0 {
		return Signal{}, errors.New("FLAC stream reports no channels")
	}

	samples := make([]float64, 0, decoder.TotalSamples)
	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Signal{}, fmt.Errorf("decode FLAC frame: %w", err)
		}
		for i := 0; i+stride <= len(frame); i += stride {
			var sample int32
			switch decoder.BitsPerSample {
			case 8:
				sample = int32(int8(frame[i]))
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			samples = append(samples, float64(sample)/divisor)
		}
	}
	return Signal{SampleRate: decoder.SampleRate, Samples: samples}, nil
}
