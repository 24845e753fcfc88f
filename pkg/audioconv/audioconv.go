// Package audioconv decodes audio files into the 16 kHz mono float32
// stream the speech recognizer consumes. It backs command injection
// from recorded files, so a microphone is not required for testing.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/pekim/opus"
)

const targetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

// Decode reads the file at path and returns mono float32 samples at
// 16 kHz. The container is picked by extension, with ogg files tried
// as Vorbis first and Opus second.
func Decode(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga", ".opus":
		return decodeOgg(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
}

func decodeWAV(f *os.File) ([]float32, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty wav file")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))
	pcm := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		pcm[i] = float32(max(-1, min(1, float64(v)*scale)))
	}

	channels, rate := 1, 44100
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}
	return normalize(pcm, channels, rate), nil
}

func decodeMP3(f *os.File) ([]float32, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}

	samples := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &samples); err != nil {
		return nil, err
	}
	// go-mp3 always emits interleaved stereo at the source rate.
	return normalize(int16ToFloat32(samples), 2, dec.SampleRate()), nil
}

func decodeOgg(f *os.File) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(f)
	if err == nil {
		if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
			return nil, errors.New("invalid vorbis stream")
		}
		return normalize(pcm, format.Channels, format.SampleRate), nil
	}

	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	out, oerr := decodeOpus(f)
	if oerr != nil {
		return nil, fmt.Errorf("ogg is neither vorbis (%v) nor opus: %w", err, oerr)
	}
	return out, nil
}

func decodeOpus(f *os.File) ([]float32, error) {
	dec, err := opus.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}

	// Opus always decodes at 48 kHz.
	var pcm []float32
	buf := make([]int16, 48000*channels/2)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16ToFloat32(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return normalize(pcm, channels, 48000), nil
}

// normalize downmixes interleaved samples to mono and resamples to
// the target rate.
func normalize(pcm []float32, channels, rate int) []float32 {
	if channels > 1 {
		frames := len(pcm) / channels
		mono := make([]float32, frames)
		for i := range mono {
			var sum float64
			for c := range channels {
				sum += float64(pcm[i*channels+c])
			}
			mono[i] = float32(sum / float64(channels))
		}
		pcm = mono
	}
	if rate > 0 && rate != targetRate {
		pcm = resample(pcm, rate, targetRate)
	}
	return pcm
}

func resample(in []float32, from, to int) []float32 {
	if len(in) == 0 || from == to {
		return in
	}
	ratio := float64(to) / float64(from)
	out := make([]float32, int(math.Ceil(float64(len(in))*ratio)))
	for i := range out {
		pos := float64(i) / ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

func int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v) / 32768
	}
	return out
}
