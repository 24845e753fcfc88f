// Package tts speaks text through espeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

int
aura_say(const char *text, const char *voice, int rate)
{
	if (!text)
	{ return -1; }

	espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
	espeak_SetVoiceByName(voice);
	espeak_SetParameter(espeakRATE, rate, 0);

	espeak_Synth(text, strlen(text) + 1, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"
)

const baseRate = 175 // espeak words per minute at speed 1.0

// Engine holds the resolved voice settings. Build one per daemon from
// the voice_speed / voice_gender preferences.
type Engine struct {
	voice string
	rate  int
}

// NewEngine maps the stored preference strings to an espeak voice.
// gender is "Male" or "Female" (anything else falls back to male),
// speed is a multiplier like "1.0".
func NewEngine(gender, speed string) *Engine {
	voice := "en+m3"
	if strings.EqualFold(gender, "female") {
		voice = "en+f3"
	}

	mult, err := strconv.ParseFloat(speed, 64)
	if err != nil || mult <= 0 {
		mult = 1.0
	}

	return &Engine{voice: voice, rate: int(float64(baseRate) * mult)}
}

// Say synthesizes text synchronously. Empty text is a no-op.
func (e *Engine) Say(text string) error {
	if text == "" {
		return nil
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(e.voice)
	defer C.free(unsafe.Pointer(cvoice))

	rc := C.aura_say(ctext, cvoice, C.int(e.rate))
	if rc != 0 {
		return fmt.Errorf("tts: espeak failed: %d", int(rc))
	}

	return nil
}
