package transcript

import "strings"

// Speaker tags who produced a transcript line. Classification is a pure
// function of the label; every label maps to exactly one tag.
type Speaker int

const (
	SpeakerAgent Speaker = iota // human agent, the default
	SpeakerBot
	SpeakerCustomer
)

// String returns a short display tag for the speaker category.
func (s Speaker) String() string {
	switch s {
	case SpeakerBot:
		return "BOT"
	case SpeakerCustomer:
		return "CUST"
	default:
		return "AGENT"
	}
}

// ClassifySpeaker maps a free-text speaker label to its category using
// case-insensitive substring matching. Unrecognized labels are agents.
func ClassifySpeaker(label string) Speaker {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "virtual agent") || strings.Contains(l, "bot"):
		return SpeakerBot
	case strings.Contains(l, "customer") || strings.Contains(l, "caller"):
		return SpeakerCustomer
	default:
		return SpeakerAgent
	}
}
