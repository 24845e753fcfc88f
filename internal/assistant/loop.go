// Package assistant runs the wake-word control loop: await the wake
// phrase, capture one command, dispatch it, persist the turn, repeat
// until a stop request or an exit intent.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"aura/internal/intent"
	"aura/internal/listen"
	"aura/internal/store"
)

// State is the loop's externally visible condition.
type State int

const (
	StateIdle State = iota
	StateListeningWake
	StateListeningCommand
	StateDispatching
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListeningWake:
		return "listening for wake word"
	case StateListeningCommand:
		return "listening for command"
	case StateDispatching:
		return "processing"
	case StateTerminated:
		return "stopped"
	default:
		return "unknown"
	}
}

// Notifier speaks to the operator. Implementations are best-effort;
// the loop never fails on a broken speaker.
type Notifier interface {
	Say(text string)
}

// Events receives loop activity for display surfaces (the websocket
// feed, a future GUI). Implementations must not block.
type Events interface {
	Status(state State)
	Turn(speaker, text string)
}

type noopEvents struct{}

func (noopEvents) Status(State)        {}
func (noopEvents) Turn(string, string) {}

// Config tunes the loop's listening windows.
type Config struct {
	WakeWord           string        // lowercase trigger phrase
	WakeWindow         time.Duration // per-iteration wake listen timeout
	CommandWindow      time.Duration // command capture timeout
	UnavailableBackoff time.Duration // pause after an STT outage
}

func (c Config) withDefaults() Config {
	if c.WakeWord == "" {
		c.WakeWord = "hey assistant"
	}
	if c.WakeWindow <= 0 {
		c.WakeWindow = 5 * time.Second
	}
	if c.CommandWindow <= 0 {
		c.CommandWindow = 10 * time.Second
	}
	if c.UnavailableBackoff <= 0 {
		c.UnavailableBackoff = 5 * time.Second
	}
	return c
}

// Runner owns the single background worker. Start is idempotent and
// Stop is cooperative: it cancels the worker's context, which the loop
// observes once per wake-polling iteration and after each dispatch.
type Runner struct {
	store    *store.Store
	disp     *intent.Dispatcher
	hearer   listen.Hearer
	notifier Notifier
	events   Events
	cfg      Config
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	state   State
	sess    *Session
	trigger chan struct{}
}

func NewRunner(st *store.Store, disp *intent.Dispatcher, hearer listen.Hearer, notifier Notifier, events Events, cfg Config) *Runner {
	if events == nil {
		events = noopEvents{}
	}
	return &Runner{
		store:    st,
		disp:     disp,
		hearer:   hearer,
		notifier: notifier,
		events:   events,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		state:    StateIdle,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the background worker with a fresh session. Starting
// an already running loop is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.sess = NewSession(r.store)
	r.state = StateListeningWake

	go r.run(ctx, r.sess)
}

// Stop requests cancellation and waits for the worker to exit. The
// worker stops within one polling interval plus any in-flight
// handler's completion time; handlers are never interrupted mid-turn.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the background worker is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// State returns the loop's current state for status surfaces.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Trigger makes the next polling iteration behave as if the wake word
// was heard. No-op when a trigger is already pending.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.events.Status(s)
}

// finish tears the worker state down, whether the loop ended by exit
// intent or by cancellation.
func (r *Runner) finish() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.sess != nil {
		r.sess.End()
		r.sess = nil
	}
	r.state = StateTerminated
	done := r.done
	r.mu.Unlock()

	r.events.Status(StateTerminated)
	close(done)
}

func (r *Runner) run(ctx context.Context, sess *Session) {
	defer r.finish()

	r.greet(sess)

	for ctx.Err() == nil {
		r.setState(StateListeningWake)

		if !r.awaitWake(ctx, sess) {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		r.say(sess, "How can I help you?")

		r.setState(StateListeningCommand)
		command, err := r.hearer.Hear(ctx, r.cfg.CommandWindow)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			switch {
			case errors.Is(err, listen.ErrNoSpeech):
				r.say(sess, "I didn't hear a command. Please try again.")
			case errors.Is(err, listen.ErrUnavailable):
				r.say(sess, "I'm having trouble connecting to the speech recognition service.")
			default:
				log.Error("Command capture failed", "err", err)
				sess.Log(store.SpeakerSystem, fmt.Sprintf("Error: %v", err))
			}
			continue
		}

		sess.Log(store.SpeakerUser, command)
		r.events.Turn(store.SpeakerUser, command)

		r.setState(StateDispatching)
		res := r.disp.Dispatch(ctx, &loopConverser{r: r, sess: sess}, command)

		_ = r.store.LogCommand(res.Label, command, res.Success)
		if !res.Success {
			sess.Log(store.SpeakerSystem, fmt.Sprintf("Command %q did not complete", res.Label))
		}

		r.say(sess, res.Reply)

		if res.Terminate {
			return
		}
	}
}

// awaitWake listens for one wake window and reports whether the loop
// should proceed to command capture. A pending Trigger bypasses the
// wake word once.
func (r *Runner) awaitWake(ctx context.Context, sess *Session) bool {
	select {
	case <-r.trigger:
		sess.Log(store.SpeakerUser, r.cfg.WakeWord)
		r.events.Turn(store.SpeakerUser, r.cfg.WakeWord)
		return true
	default:
	}

	heard, err := r.hearer.Hear(ctx, r.cfg.WakeWindow)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, listen.ErrUnavailable) {
			log.Warn("Transcription unavailable, backing off", "err", err)
			sess.Log(store.SpeakerSystem, "Speech recognition service unavailable")
			r.sleep(ctx, r.cfg.UnavailableBackoff)
		}
		// No speech in the window is the normal idle case.
		return false
	}

	if !strings.Contains(heard, r.cfg.WakeWord) {
		return false
	}

	sess.Log(store.SpeakerUser, r.cfg.WakeWord)
	r.events.Turn(store.SpeakerUser, r.cfg.WakeWord)
	return true
}

// say speaks, logs and broadcasts one assistant line.
func (r *Runner) say(sess *Session, text string) {
	if text == "" {
		return
	}
	r.notifier.Say(text)
	sess.Log(store.SpeakerAssistant, text)
	r.events.Turn(store.SpeakerAssistant, text)
}

func (r *Runner) greet(sess *Session) {
	hour := r.now().Hour()
	switch {
	case hour < 12:
		r.say(sess, "Good Morning!")
	case hour < 18:
		r.say(sess, "Good Afternoon!")
	default:
		r.say(sess, "Good Evening!")
	}
	r.say(sess, "I am your voice assistant. How can I help you?")
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Simulate runs one command through the normal dispatch and
// persistence path without the microphone. Used by the control socket.
func (r *Runner) Simulate(ctx context.Context, command string) intent.Result {
	command = strings.ToLower(strings.TrimSpace(command))

	r.mu.Lock()
	sess := r.sess
	if sess == nil {
		sess = NewSession(r.store)
	}
	r.mu.Unlock()

	sess.Log(store.SpeakerUser, command)
	r.events.Turn(store.SpeakerUser, command)

	res := r.disp.Dispatch(ctx, &loopConverser{r: r, sess: sess}, command)

	_ = r.store.LogCommand(res.Label, command, res.Success)
	r.say(sess, res.Reply)
	return res
}

// loopConverser lets sub-dialogues (email composition) speak through
// the runner's notifier and hear through its command window.
type loopConverser struct {
	r    *Runner
	sess *Session
}

func (c *loopConverser) Say(text string) {
	c.r.say(c.sess, text)
}

func (c *loopConverser) Hear(ctx context.Context) (string, error) {
	return c.r.hearer.Hear(ctx, c.r.cfg.CommandWindow)
}
