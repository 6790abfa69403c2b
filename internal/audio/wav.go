// Package audio converts captured audio into the canonical WAV container
// the transcription upstream expects: 16-bit little-endian PCM, mono.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"speechgpt/pkg/apierror"
)

// DefaultSampleRate is assumed for raw PCM payloads that carry no container.
const DefaultSampleRate = 16000

// Clip is decoded PCM audio.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// EncodeWAV renders samples as a RIFF/WAVE file: PCM format, one channel,
// 16 bits per sample.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, int16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, int16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, int16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	for _, sample := range samples {
		binary.Write(&buf, binary.LittleEndian, sample)
	}

	return buf.Bytes()
}

// DecodeWAV parses a RIFF/WAVE payload into PCM samples. Only uncompressed
// 16-bit PCM is supported; multi-channel audio is downmixed to mono.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE container", apierror.ErrDecode)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFormat    bool
		pcm           []byte
	)

	// Walk the chunk list; chunks other than fmt/data are skipped.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if chunkSize < 0 || body+chunkSize > len(data) {
			return nil, fmt.Errorf("%w: truncated %q chunk", apierror.ErrDecode, chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", apierror.ErrDecode)
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, fmt.Errorf("%w: unsupported audio format %d", apierror.ErrDecode, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFormat = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize + chunkSize%2
	}

	if !haveFormat || pcm == nil {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", apierror.ErrDecode)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: unsupported sample width %d", apierror.ErrDecode, bitsPerSample)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: invalid channel count %d", apierror.ErrDecode, channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", apierror.ErrDecode, sampleRate)
	}

	frameSize := channels * 2
	frames := len(pcm) / frameSize
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		// Downmix by averaging channels.
		var sum int
		for c := 0; c < channels; c++ {
			off := i*frameSize + c*2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[off : off+2])))
		}
		samples[i] = int16(sum / channels)
	}

	return &Clip{Samples: samples, SampleRate: sampleRate}, nil
}

// Transcoder converts a raw captured buffer into canonical WAV bytes.
type Transcoder interface {
	Transcode(raw []byte) ([]byte, error)
}

// WAVTranscoder decodes WAV input (or bare 16-bit mono PCM as a fallback)
// and re-encodes it as canonical mono WAV.
type WAVTranscoder struct {
	// FallbackRate is assumed when the payload is headerless PCM.
	// Zero means DefaultSampleRate.
	FallbackRate int
}

func (t WAVTranscoder) Transcode(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", apierror.ErrDecode)
	}

	clip, err := DecodeWAV(raw)
	if err != nil {
		if len(raw) >= 4 && string(raw[0:4]) == "RIFF" {
			// Claimed to be WAV but failed to parse; do not guess.
			return nil, err
		}
		clip, err = decodeRawPCM(raw, t.fallbackRate())
		if err != nil {
			return nil, err
		}
	}

	return EncodeWAV(clip.Samples, clip.SampleRate), nil
}

func (t WAVTranscoder) fallbackRate() int {
	if t.FallbackRate > 0 {
		return t.FallbackRate
	}
	return DefaultSampleRate
}

func decodeRawPCM(data []byte, sampleRate int) (*Clip, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd-length PCM payload", apierror.ErrDecode)
	}
	// Shorter than 20ms cannot contain speech; reject it here instead of
	// forwarding arbitrary bytes upstream.
	if len(data)/2 < sampleRate/50 {
		return nil, fmt.Errorf("%w: PCM payload too short", apierror.ErrDecode)
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return &Clip{Samples: samples, SampleRate: sampleRate}, nil
}
