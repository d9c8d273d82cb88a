// Package prompt schedules the periodic lead-capture prompt for a visitor
// session and streams it to the browser.
package prompt

// State is a scheduler state.
type State int

const (
	StateIdle State = iota
	StateWaitingFirstPrompt
	StatePromptVisible
	StateWaitingNextPrompt
	// StateSuppressed is terminal: the session has submitted a lead.
	StateSuppressed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingFirstPrompt:
		return "waiting_first_prompt"
	case StatePromptVisible:
		return "prompt_visible"
	case StateWaitingNextPrompt:
		return "waiting_next_prompt"
	case StateSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}
