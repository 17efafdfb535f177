// Package thread composes the digest thread: a fixed sequence of blocks, each published as
// one reply to the previous post and kept within the Mastodon length cap.
package thread

// State is one block of the thread.
type State int

// States in publication order.
const (
	StateLeadReport State = iota
	StateContributors
	StateThemes
	StateImagesAcknowledgement
	StateDone
)

func (s State) String() string {
	switch s {
	case StateLeadReport:
		return "lead_report"
	case StateContributors:
		return "contributors"
	case StateThemes:
		return "themes"
	case StateImagesAcknowledgement:
		return "images_acknowledgement"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// next returns the following state; StateDone is terminal.
func (s State) next() State {
	if s >= StateDone {
		return StateDone
	}

	return s + 1
}
