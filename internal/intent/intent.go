// Package intent maps transcribed commands to a fixed set of intents
// and executes the matching handler. Classification is ordered
// substring matching: the first rule whose trigger occurs anywhere in
// the command wins, so rule order is part of the contract.
package intent

import "strings"

// Kind is the classified purpose of an utterance.
type Kind int

const (
	KindTerminate Kind = iota
	KindLookup
	KindOpenSite
	KindTime
	KindEmail
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindTerminate:
		return "terminate"
	case KindLookup:
		return "lookup"
	case KindOpenSite:
		return "open-site"
	case KindTime:
		return "time"
	case KindEmail:
		return "email"
	case KindChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Classification is the outcome of matching one command.
type Classification struct {
	Kind  Kind
	Label string // command-type label recorded in statistics
	URL   string // fixed target for KindOpenSite
	Site  string // spoken site name for KindOpenSite
}

type rule struct {
	triggers []string
	class    Classification
}

// rules are evaluated top to bottom; several triggers can co-occur in
// one utterance ("what's the time in wikipedia"), and the earlier rule
// takes it.
var rules = []rule{
	{
		triggers: []string{"exit", "goodbye", "quit", "bye"},
		class:    Classification{Kind: KindTerminate, Label: "exit"},
	},
	{
		triggers: []string{"wikipedia"},
		class:    Classification{Kind: KindLookup, Label: "wikipedia"},
	},
	{
		triggers: []string{"open youtube"},
		class:    Classification{Kind: KindOpenSite, Label: "youtube", URL: "https://www.youtube.com", Site: "YouTube"},
	},
	{
		triggers: []string{"open google"},
		class:    Classification{Kind: KindOpenSite, Label: "google", URL: "https://www.google.com", Site: "Google"},
	},
	{
		triggers: []string{"time"},
		class:    Classification{Kind: KindTime, Label: "time"},
	},
	{
		triggers: []string{"email"},
		class:    Classification{Kind: KindEmail, Label: "email"},
	},
}

// chatFallback catches everything no rule claimed.
var chatFallback = Classification{Kind: KindChat, Label: "general"}

// Classify selects exactly one intent for a lowercase command string.
func Classify(command string) Classification {
	for _, r := range rules {
		for _, trig := range r.triggers {
			if strings.Contains(command, trig) {
				return r.class
			}
		}
	}
	return chatFallback
}
