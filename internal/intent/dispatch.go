package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aura/internal/wiki"
)

// Summarizer resolves a topic to a short text summary.
type Summarizer interface {
	Summary(ctx context.Context, topic string) (string, error)
	PageURL(topic string) string
}

// Opener opens a URL on the operator's desktop.
type Opener interface {
	Open(url string) error
}

// Mailer delivers one outbound message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Chatter forwards a prompt to the AI chat backend.
type Chatter interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Converser is the voice channel handlers use for multi-turn
// sub-dialogues: Say speaks (and logs) a prompt, Hear captures the
// next utterance.
type Converser interface {
	Say(text string)
	Hear(ctx context.Context) (string, error)
}

// Result is what one dispatch reports back for logging and speech.
type Result struct {
	Reply     string // spoken by the caller
	Label     string // command-type label for statistics
	Success   bool   // absence-of-failure, not user-perceived correctness
	Terminate bool   // the loop should exit after speaking Reply
}

const errorReply = "I encountered an error processing your request."

// Dispatcher executes classified commands against its collaborators.
// All fields except the collaborators a deployment disables are
// expected to be set; a nil collaborator surfaces as a failed dispatch,
// not a crash.
type Dispatcher struct {
	Summarizer Summarizer
	Opener     Opener
	Mailer     Mailer
	Chatter    Chatter

	// Contacts maps spoken contact names (lowercase, as transcribed)
	// to email addresses.
	Contacts map[string]string

	// MaxRetries bounds re-prompts per email dialogue state.
	// Zero means defaultMaxRetries.
	MaxRetries int

	// Now is the clock for the time intent. Nil means time.Now.
	Now func() time.Time
}

// Dispatch classifies command and runs the matching handler. Handler
// panics are converted to an apologetic failed Result at this
// boundary; the loop never dies to a broken handler.
func (d *Dispatcher) Dispatch(ctx context.Context, conv Converser, command string) (res Result) {
	class := Classify(command)

	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Reply:   errorReply,
				Label:   class.Label,
				Success: false,
			}
		}
	}()

	switch class.Kind {
	case KindTerminate:
		return Result{
			Reply:     "Goodbye! Have a great day!",
			Label:     class.Label,
			Success:   true,
			Terminate: true,
		}
	case KindLookup:
		return d.lookup(ctx, class, command)
	case KindOpenSite:
		return d.openSite(class)
	case KindTime:
		return d.tellTime(class)
	case KindEmail:
		return d.composeEmail(ctx, conv, class)
	default:
		return d.chat(ctx, class, command)
	}
}

func (d *Dispatcher) lookup(ctx context.Context, class Classification, command string) Result {
	topic := strings.TrimSpace(strings.ReplaceAll(command, "wikipedia", ""))

	summary, err := d.Summarizer.Summary(ctx, topic)
	switch {
	case errors.Is(err, wiki.ErrAmbiguous):
		return Result{
			Reply: fmt.Sprintf("There are multiple results for %s. Please be more specific.", topic),
			Label: class.Label,
		}
	case errors.Is(err, wiki.ErrNotFound):
		return Result{
			Reply: fmt.Sprintf("Sorry, I couldn't find any information about %s on Wikipedia.", topic),
			Label: class.Label,
		}
	case err != nil:
		return Result{
			Reply: "Sorry, I encountered an error while searching Wikipedia.",
			Label: class.Label,
		}
	}

	// Best effort; a failed browser launch doesn't spoil the answer.
	if d.Opener != nil {
		_ = d.Opener.Open(d.Summarizer.PageURL(topic))
	}

	return Result{
		Reply:   "According to Wikipedia: " + summary,
		Label:   class.Label,
		Success: true,
	}
}

func (d *Dispatcher) openSite(class Classification) Result {
	if err := d.Opener.Open(class.URL); err != nil {
		return Result{
			Reply: fmt.Sprintf("Sorry, I couldn't open %s.", class.Site),
			Label: class.Label,
		}
	}
	return Result{
		Reply:   "Opening " + class.Site,
		Label:   class.Label,
		Success: true,
	}
}

func (d *Dispatcher) tellTime(class Classification) Result {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return Result{
		Reply:   "The current time is " + now().Format("03:04 PM"),
		Label:   class.Label,
		Success: true,
	}
}

func (d *Dispatcher) chat(ctx context.Context, class Classification, command string) Result {
	reply, err := d.Chatter.Ask(ctx, command)
	if err != nil {
		return Result{
			Reply: "I'm having trouble connecting to the AI service right now.",
			Label: class.Label,
		}
	}
	return Result{
		Reply:   reply,
		Label:   class.Label,
		Success: true,
	}
}
