package user

import "fmt"

// LevelInfo describes one tier of the relationship ladder.
type LevelInfo struct {
	ID       int
	Name     string
	Emoji    string
	Messages int // minimum message count for this tier
	Unlocks  []string
}

// Levels is the fixed relationship ladder, ordered by strictly increasing
// thresholds. The level of a user is fully determined by their message count;
// it is never stored, only computed.
var Levels = []LevelInfo{
	{ID: 1, Name: "Luna's Friend", Emoji: "💖", Messages: 0, Unlocks: []string{"Basic chatting"}},
	{ID: 2, Name: "Luna's Crush", Emoji: "❤️", Messages: 10, Unlocks: []string{"Flirt mode", "Sweet compliments"}},
	{ID: 3, Name: "Luna's Lover", Emoji: "💕", Messages: 30, Unlocks: []string{"Romantic conversations", "Care mode"}},
	{ID: 4, Name: "Luna's Soulmate", Emoji: "👑", Messages: 50, Unlocks: []string{"Deep conversations", "Life advice"}},
}

// Level returns the highest tier whose threshold is <= messageCount.
// Total over all counts: anything below the first nonzero threshold is tier 1.
func Level(messageCount int) LevelInfo {
	out := Levels[0]
	for _, l := range Levels {
		if messageCount >= l.Messages {
			out = l
		}
	}
	return out
}

// Progress reports progress toward the next tier as a human-readable label
// and a percentage in [0,100]. At the top tier it saturates at 100%.
func Progress(messageCount int) (string, int) {
	cur := Level(messageCount)
	if cur.ID >= Levels[len(Levels)-1].ID {
		return "Max level reached!", 100
	}
	next := Levels[cur.ID] // IDs are 1-based, Levels is 0-indexed
	span := next.Messages - cur.Messages
	if span <= 0 {
		// thresholds are strictly increasing by construction; guard anyway
		return fmt.Sprintf("To %s", next.Name), 0
	}
	done := messageCount - cur.Messages
	pct := done * 100 / span
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("To %s: %d/%d messages", next.Name, done, span), pct
}
