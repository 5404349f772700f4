// Package timebox bounds the intake conversation: turn counting, the
// hard-question budget, the one-time fast-path offer, and forced
// progression after the hard stop. Limits always come from config; nothing
// here hardcodes a turn count into transition logic.
package timebox

import "time"

// Limits are the configured bounds for one session.
type Limits struct {
	DefaultTurns     int // soft threshold: offer the fast path
	HardCapTurns     int // hard stop
	HardQuestionsMax int // hard-question budget
}

// DefaultLimits mirrors the config defaults.
func DefaultLimits() Limits {
	return Limits{DefaultTurns: 10, HardCapTurns: 18, HardQuestionsMax: 4}
}

// State is the turn budget for one session.
type State struct {
	Turns           int       `json:"turns"`
	HardQuestions   int       `json:"hard_questions"`
	StartedAt       time.Time `json:"started_at"`
	LastTurnAt      time.Time `json:"last_turn_at"`
	FastPathOffered bool      `json:"fast_path_offered"`
	HardStopReached bool      `json:"hard_stop_reached"`
	// ExtensionTurns only counts turns taken after the hard stop was
	// already reached; capped at 2 before progression is forced.
	ExtensionTurns int `json:"extension_turns"`
}

// New initializes the timebox for a fresh session.
func New() *State {
	now := time.Now().UTC()
	return &State{StartedAt: now, LastTurnAt: now}
}

// RegisterTurn counts one conversation turn. Hard questions draw down their
// own budget. A turn arriving while the hard stop is already flagged counts
// as an extension turn; the turn that first crosses the cap does not.
func (s *State) RegisterTurn(isHardQuestion bool, limits Limits) {
	wasStopped := s.HardStopReached

	s.Turns++
	s.LastTurnAt = time.Now().UTC()
	if isHardQuestion {
		s.HardQuestions++
	}
	if s.Turns >= limits.HardCapTurns {
		s.HardStopReached = true
	}
	if wasStopped {
		s.ExtensionTurns++
	}
}

// ShouldOfferFastPath reports whether to offer skipping ahead: once only,
// when the soft turn threshold or the hard-question budget is hit.
func (s *State) ShouldOfferFastPath(limits Limits) bool {
	if s.FastPathOffered {
		return false
	}
	return s.Turns >= limits.DefaultTurns || s.HardQuestions >= limits.HardQuestionsMax
}

// MarkFastPathOffered records that the offer was made.
func (s *State) MarkFastPathOffered() {
	s.FastPathOffered = true
}

// ReachedHardStop reports whether the turn cap has been hit.
func (s *State) ReachedHardStop(limits Limits) bool {
	return s.Turns >= limits.HardCapTurns
}

// ShouldForceProceed reports whether the grace period after the hard stop is
// spent and the conversation must move to the checkpoint.
func (s *State) ShouldForceProceed() bool {
	return s.HardStopReached && s.ExtensionTurns >= 2
}

// Status labels for UI display.
const (
	StatusNormal           = "normal"
	StatusApproachingLimit = "approaching_limit"
	StatusAtLimit          = "at_limit"
	StatusExceeded         = "exceeded"
)

// Status summarizes the budget for display.
type Status struct {
	TurnsUsed              int    `json:"turns_used"`
	TurnsRemaining         int    `json:"turns_remaining"`
	HardQuestionsUsed      int    `json:"hard_questions_used"`
	HardQuestionsRemaining int    `json:"hard_questions_remaining"`
	Status                 string `json:"status"`
	FastPathOffered        bool   `json:"fast_path_offered"`
	HardStopReached        bool   `json:"hard_stop_reached"`
}

// GetStatus returns the human-readable budget summary.
func (s *State) GetStatus(limits Limits) Status {
	turnsRemaining := limits.HardCapTurns - s.Turns
	if turnsRemaining < 0 {
		turnsRemaining = 0
	}
	hqRemaining := limits.HardQuestionsMax - s.HardQuestions
	if hqRemaining < 0 {
		hqRemaining = 0
	}

	var status string
	switch {
	case s.Turns >= limits.HardCapTurns:
		status = StatusExceeded
	case s.Turns >= limits.DefaultTurns:
		status = StatusAtLimit
	case s.Turns >= limits.DefaultTurns-2:
		status = StatusApproachingLimit
	default:
		status = StatusNormal
	}

	return Status{
		TurnsUsed:              s.Turns,
		TurnsRemaining:         turnsRemaining,
		HardQuestionsUsed:      s.HardQuestions,
		HardQuestionsRemaining: hqRemaining,
		Status:                 status,
		FastPathOffered:        s.FastPathOffered,
		HardStopReached:        s.HardStopReached,
	}
}

// SessionDuration reports elapsed time since the session started.
func (s *State) SessionDuration() time.Duration {
	return time.Since(s.StartedAt)
}
