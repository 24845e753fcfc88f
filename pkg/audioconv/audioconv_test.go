package audioconv

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.flac")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Decode(path)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	if _, err := Decode(filepath.Join(t.TempDir(), "gone.wav")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNormalizeDownmix(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	mono := normalize(stereo, 2, targetRate)
	want := []float32{0.5, 0.5, 0}
	if len(mono) != len(want) {
		t.Fatalf("len = %d, want %d", len(mono), len(want))
	}
	for i := range want {
		if math.Abs(float64(mono[i]-want[i])) > 1e-6 {
			t.Errorf("mono[%d] = %v, want %v", i, mono[i], want[i])
		}
	}
}

func TestResampleHalvesRate(t *testing.T) {
	in := make([]float32, 320)
	for i := range in {
		in[i] = float32(i)
	}
	out := resample(in, 32000, 16000)
	if len(out) != 160 {
		t.Fatalf("len = %d, want 160", len(out))
	}
	// Linear interpolation over a ramp keeps the ramp.
	if math.Abs(float64(out[10]-20)) > 1e-3 {
		t.Errorf("out[10] = %v, want 20", out[10])
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := resample(in, targetRate, targetRate)
	if len(out) != len(in) {
		t.Fatalf("len = %d", len(out))
	}
}
