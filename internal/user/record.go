package user

import "time"

// MaxContextTurns caps how many conversation turns are kept per user.
const MaxContextTurns = 4

// Stats is the durable per-user counter record. The relationship level is
// deliberately not part of it: it is derived from MessageCount via Level.
type Stats struct {
	MessageCount int       `json:"message_count"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

// NewStats creates a record for a user seen for the first time at now.
func NewStats(now time.Time) *Stats {
	return &Stats{FirstSeen: now, LastSeen: now}
}

// Touch registers one processed message and reports the tier before and
// after the increment, so callers can detect a level-up transition.
func (s *Stats) Touch(now time.Time) (before, after LevelInfo) {
	before = Level(s.MessageCount)
	s.MessageCount++
	s.LastSeen = now
	return before, Level(s.MessageCount)
}

// Turn is one exchange of the conversation history.
type Turn struct {
	User string    `json:"user"`
	Bot  string    `json:"bot"`
	Time time.Time `json:"time"`
}

// AppendTurn appends t and evicts the oldest turns so that at most
// MaxContextTurns remain (FIFO).
func AppendTurn(turns []Turn, t Turn) []Turn {
	turns = append(turns, t)
	if len(turns) > MaxContextTurns {
		turns = turns[len(turns)-MaxContextTurns:]
	}
	return turns
}
