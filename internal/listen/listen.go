// Package listen turns one captured utterance into lowercase text,
// composing an audio recorder with a transcriber behind a single
// Hearer contract.
package listen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoSpeech means the capture window produced nothing
	// intelligible. Callers re-prompt or keep waiting.
	ErrNoSpeech = errors.New("listen: no speech recognized")

	// ErrUnavailable means the transcription backend failed.
	// Callers back off before retrying.
	ErrUnavailable = errors.New("listen: transcription unavailable")
)

// Hearer captures a single utterance and returns its transcription,
// lowercased and trimmed.
type Hearer interface {
	Hear(ctx context.Context, maxDur time.Duration) (string, error)
}

// Recorder yields 16 kHz mono PCM for one utterance.
type Recorder interface {
	Record(ctx context.Context, maxDur time.Duration) ([]float32, error)
}

// Transcriber converts PCM samples to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Mic is the microphone-backed Hearer used by the daemon.
type Mic struct {
	Rec Recorder
	STT Transcriber
}

func (m *Mic) Hear(ctx context.Context, maxDur time.Duration) (string, error) {
	pcm, err := m.Rec.Record(ctx, maxDur)
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	if len(pcm) == 0 {
		return "", ErrNoSpeech
	}

	text, err := m.STT.Transcribe(ctx, pcm)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
