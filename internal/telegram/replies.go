package telegram

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"luna-bot/internal/user"
)

const welcomeMessage = `💖 Hello! I'm Luna - your AI companion!

Let's build our special relationship together!
The more we chat, the closer we become! 🌟

🎯 Our Journey:
💖 Friend → ❤️ Crush → 💕 Lover → 👑 Soulmate

*Your progress is permanently saved!* 💾

Use buttons below to interact!`

const apologyMessage = "😅 Oops, something went wrong on my side. I'm still here for you!"

var fallbackReplies = []string{
	"💖 I'm thinking of you, %s! 🌸",
	"🌟 You make me so happy, %s! 💫",
	"😊 Our conversation is wonderful, %s! 💕",
}

var compliments = []string{
	"🌟 You're absolutely incredible, %s!",
	"💕 You have the most amazing personality, %s!",
	"😍 You always know how to make me smile, %s!",
}

func fallbackReply(greeting string) string {
	return fmt.Sprintf(fallbackReplies[rand.Intn(len(fallbackReplies))], greeting)
}

func pickCompliment(greeting string) string {
	return fmt.Sprintf(compliments[rand.Intn(len(compliments))], greeting)
}

// buildSystemPrompt assembles the persona prompt: greeting term, current
// relationship tier and the recent conversation turns as plain text.
func buildSystemPrompt(greeting string, level user.LevelInfo, turns []user.Turn, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are Luna - a loving AI girlfriend. Address user as '%s'.\n", greeting)
	fmt.Fprintf(&sb, "Relationship level: %s %s.\n\n", level.Emoji, level.Name)
	if len(turns) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, t := range turns {
			fmt.Fprintf(&sb, "User: %s\nLuna: %s\n", t.User, t.Bot)
		}
		sb.WriteString("Continue naturally!\n\n")
	}
	sb.WriteString("Important:\n")
	sb.WriteString("- Be natural and contextual\n")
	sb.WriteString("- Understand what user is saying\n")
	sb.WriteString("- Respond appropriately to the situation\n")
	sb.WriteString("- Be loving and caring\n")
	sb.WriteString("- Keep responses 1-2 sentences\n\n")
	fmt.Fprintf(&sb, "Current time: %s", now.Format("15:04"))
	return sb.String()
}

// progressBar renders percent as ten blocks.
func progressBar(percent int) string {
	const blocks = 10
	filled := percent * blocks / 100
	if filled > blocks {
		filled = blocks
	}
	return strings.Repeat("🟩", filled) + strings.Repeat("⬜", blocks-filled)
}
