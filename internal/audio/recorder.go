// Package audio captures microphone input as 16 kHz mono PCM through
// portaudio.
package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20 ms per frame

	silenceThreshRMS = 0.015
	trailingSilence  = 600 * time.Millisecond
)

// Recorder opens the default input device per capture. Init must be
// called once before the first Record and Close once at shutdown.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	_ = portaudio.Terminate()
}

// Record captures one utterance: it waits for speech, then stops after
// trailingSilence of quiet or maxDur of audio, whichever comes first.
// Cancellation is observed between frames. A window with no speech at
// all returns an empty slice, not an error.
func (r *Recorder) Record(ctx context.Context, maxDur time.Duration) ([]float32, error) {
	if maxDur <= 0 {
		maxDur = 10 * time.Second
	}

	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	frameDur := 20 * time.Millisecond
	silenceLimit := int(trailingSilence / frameDur)
	maxFrames := int(maxDur / frameDur)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > silenceThreshRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silenceFrames++
			if silenceFrames >= silenceLimit {
				break
			}
			out = append(out, buf...)
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
