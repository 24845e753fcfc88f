package intent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"aura/internal/listen"
)

const defaultMaxRetries = 3

const (
	giveUpReply    = "I'm having trouble hearing you. Email cancelled."
	cancelledReply = "Email cancelled."
	unheardReply   = "Sorry, I couldn't hear your answer. Email cancelled."
)

// composeEmail runs the multi-turn dialogue: recipient, subject, body,
// then confirmation. Each step re-prompts on unintelligible input,
// bounded by MaxRetries; an unknown recipient never advances the
// dialogue.
func (d *Dispatcher) composeEmail(ctx context.Context, conv Converser, class Classification) Result {
	if d.Mailer == nil || len(d.Contacts) == 0 {
		return Result{Reply: "Email is not set up.", Label: class.Label}
	}

	names := make([]string, 0, len(d.Contacts))
	for name := range d.Contacts {
		names = append(names, name)
	}
	sort.Strings(names)

	conv.Say("Who would you like to email? Your contacts are: " + strings.Join(names, ", "))

	var recipient, address string
	ok := d.askUntil(ctx, conv, func(heard string) bool {
		addr, known := d.Contacts[heard]
		if !known {
			conv.Say(fmt.Sprintf("I don't have %s in contacts. Please try again.", heard))
			return false
		}
		recipient, address = heard, addr
		return true
	})
	if !ok {
		return Result{Reply: giveUpReply, Label: class.Label, Success: true}
	}
	conv.Say(fmt.Sprintf("Got it. Email for %s is %s.", recipient, address))

	conv.Say("What should the subject be?")
	var subject string
	if !d.askUntil(ctx, conv, func(heard string) bool { subject = heard; return true }) {
		return Result{Reply: giveUpReply, Label: class.Label, Success: true}
	}

	conv.Say("What would you like the email to say?")
	var body string
	if !d.askUntil(ctx, conv, func(heard string) bool { body = heard; return true }) {
		return Result{Reply: giveUpReply, Label: class.Label, Success: true}
	}

	conv.Say(fmt.Sprintf(
		"Ready to send to %s. Subject: %s. Message: %s. Say 'send' to confirm or 'cancel' to stop.",
		recipient, subject, body,
	))

	confirmation, err := conv.Hear(ctx)
	if err != nil {
		if errors.Is(err, listen.ErrNoSpeech) {
			return Result{Reply: unheardReply, Label: class.Label, Success: true}
		}
		return Result{Reply: errorReply, Label: class.Label}
	}
	if !strings.Contains(confirmation, "send") && !strings.Contains(confirmation, "yes") {
		return Result{Reply: cancelledReply, Label: class.Label, Success: true}
	}

	if err := d.Mailer.Send(ctx, address, subject, body); err != nil {
		return Result{Reply: "Sorry, I couldn't send the email.", Label: class.Label}
	}
	return Result{
		Reply:   fmt.Sprintf("Email sent successfully to %s!", recipient),
		Label:   class.Label,
		Success: true,
	}
}

// askUntil hears up to maxRetries answers, handing each to accept.
// It reports whether accept took one. Unintelligible input burns a
// retry and re-prompts; transcription failure or cancellation gives up
// immediately.
func (d *Dispatcher) askUntil(ctx context.Context, conv Converser, accept func(heard string) bool) bool {
	max := d.MaxRetries
	if max <= 0 {
		max = defaultMaxRetries
	}

	for attempt := 0; attempt < max; attempt++ {
		if ctx.Err() != nil {
			return false
		}

		heard, err := conv.Hear(ctx)
		if err != nil {
			if errors.Is(err, listen.ErrNoSpeech) {
				conv.Say("I didn't catch that. Please try again.")
				continue
			}
			return false
		}
		if accept(heard) {
			return true
		}
	}
	return false
}
