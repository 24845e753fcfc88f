package assistant

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"aura/internal/intent"
	"aura/internal/store"
)

type hearStep struct {
	text string
	err  error
}

// chanHearer feeds scripted utterances to the loop and blocks like a
// quiet microphone once the script runs out.
type chanHearer struct {
	steps chan hearStep
}

func newChanHearer() *chanHearer {
	return &chanHearer{steps: make(chan hearStep, 16)}
}

func (h *chanHearer) push(text string) {
	h.steps <- hearStep{text: text}
}

func (h *chanHearer) Hear(ctx context.Context, _ time.Duration) (string, error) {
	select {
	case s := <-h.steps:
		return s.text, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	said []string
}

func (n *recordingNotifier) Say(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.said = append(n.said, text)
}

func (n *recordingNotifier) has(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.said {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type stubChatter struct{ reply string }

func (c stubChatter) Ask(context.Context, string) (string, error) { return c.reply, nil }

type stubOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *stubOpener) Open(url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, url)
	return nil
}

func newTestRunner(t *testing.T, hearer *chanHearer, notifier *recordingNotifier) (*Runner, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	disp := &intent.Dispatcher{
		Chatter: stubChatter{reply: "Here you go."},
		Opener:  &stubOpener{},
	}
	r := NewRunner(st, disp, hearer, notifier, nil, Config{WakeWord: "hey assistant"})
	t.Cleanup(r.Stop)
	return r, st
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoopWakeAndDispatch(t *testing.T) {
	hearer := newChanHearer()
	notifier := &recordingNotifier{}
	r, st := newTestRunner(t, hearer, notifier)

	r.Start()
	hearer.push("hey assistant please")
	hearer.push("tell me something nice")

	waitFor(t, "command stats", func() bool { return len(st.CommandStats(7)) > 0 })

	stats := st.CommandStats(7)
	if stats[0].Type != "general" || stats[0].Count != 1 || stats[0].Successful != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if !notifier.has("How can I help you?") {
		t.Fatal("wake acknowledgement not spoken")
	}
	if !notifier.has("Here you go.") {
		t.Fatal("chat reply not spoken")
	}

	msgs := st.Conversation(1)
	var users []string
	for _, m := range msgs {
		if m.Speaker == store.SpeakerUser {
			users = append(users, m.Text)
		}
	}
	if len(users) != 2 || users[0] != "hey assistant" || users[1] != "tell me something nice" {
		t.Fatalf("user turns = %v", users)
	}
}

func TestLoopTerminateIntent(t *testing.T) {
	hearer := newChanHearer()
	notifier := &recordingNotifier{}
	r, st := newTestRunner(t, hearer, notifier)

	r.Start()
	hearer.push("hey assistant")
	hearer.push("quit")

	waitFor(t, "loop exit", func() bool { return !r.Running() })

	if r.State() != StateTerminated {
		t.Fatalf("state = %v, want terminated", r.State())
	}
	if !notifier.has("Goodbye! Have a great day!") {
		t.Fatal("farewell not spoken")
	}
	stats := st.CommandStats(7)
	if len(stats) != 1 || stats[0].Type != "exit" || stats[0].Count != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	hearer := newChanHearer()
	r, st := newTestRunner(t, hearer, &recordingNotifier{})

	r.Start()
	r.Start()

	// The greeting logs through conversation 1; a duplicate worker
	// would have opened a second conversation.
	waitFor(t, "greeting", func() bool { return len(st.Conversation(1)) >= 2 })
	time.Sleep(50 * time.Millisecond)

	if id := st.StartConversation(); id != 2 {
		t.Fatalf("next conversation id = %d, want 2 (exactly one session)", id)
	}

	r.Stop()
	if r.Running() {
		t.Fatal("still running after Stop")
	}
}

func TestStopReturnsPromptly(t *testing.T) {
	hearer := newChanHearer()
	r, _ := newTestRunner(t, hearer, &recordingNotifier{})

	r.Start()
	waitFor(t, "running", r.Running)

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within the polling interval")
	}
}

func TestNoWakeWordIsIgnored(t *testing.T) {
	hearer := newChanHearer()
	r, st := newTestRunner(t, hearer, &recordingNotifier{})

	r.Start()
	hearer.push("what time is it") // no wake phrase

	time.Sleep(100 * time.Millisecond)
	if stats := st.CommandStats(7); len(stats) != 0 {
		t.Fatalf("command dispatched without wake word: %+v", stats)
	}
	for _, m := range st.Conversation(1) {
		if m.Speaker == store.SpeakerUser {
			t.Fatalf("user turn logged without wake word: %+v", m)
		}
	}
}

func TestTriggerBypassesWakeWord(t *testing.T) {
	hearer := newChanHearer()
	notifier := &recordingNotifier{}
	r, st := newTestRunner(t, hearer, notifier)

	r.Start()
	r.Trigger()
	hearer.push("what time is it")

	waitFor(t, "time command", func() bool {
		for _, s := range st.CommandStats(7) {
			if s.Type == "time" {
				return true
			}
		}
		return false
	})
	if !notifier.has("The current time is") {
		t.Fatal("time reply not spoken")
	}
}

func TestSimulateWithoutLoop(t *testing.T) {
	hearer := newChanHearer()
	notifier := &recordingNotifier{}
	r, st := newTestRunner(t, hearer, notifier)

	res := r.Simulate(context.Background(), "Open YouTube")
	if !res.Success || res.Reply != "Opening YouTube" {
		t.Fatalf("res = %+v", res)
	}
	if !notifier.has("Opening YouTube") {
		t.Fatal("reply not spoken")
	}

	stats := st.CommandStats(7)
	if len(stats) != 1 || stats[0].Type != "youtube" {
		t.Fatalf("stats = %+v", stats)
	}
	if msgs := st.Conversation(1); len(msgs) != 2 {
		t.Fatalf("logged %d turns, want user + assistant", len(msgs))
	}
}
