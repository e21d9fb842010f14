package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"luna-bot/internal/dispatch"
	"luna-bot/internal/llm"
	"luna-bot/internal/state"
	"luna-bot/internal/user"
)

// Inline keyboard actions. Must stay in sync with user.MenuButtons.
const (
	actionHug        = "hug"
	actionKiss       = "kiss"
	actionCompliment = "compliment"
	actionShowStats  = "show_stats"
	actionShowLevel  = "show_level"
)

// handleEvent is the single per-event entry point invoked by the
// dispatcher. It runs on a shard worker, so no two events for the same
// conversation are ever processed concurrently.
func (b *Bot) handleEvent(ev dispatch.Event) {
	switch {
	case ev.Action != "":
		b.handleAction(ev)
	case strings.HasPrefix(ev.Text, "/"):
		b.handleCommand(ev)
	default:
		b.handleChat(ev)
	}
}

func (b *Bot) handleCommand(ev dispatch.Event) {
	fields := strings.Fields(ev.Text)
	if len(fields) == 0 {
		return
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "start":
		var stats user.Stats
		b.manager.Update(ev.ChatID, func(st *state.UserState) { stats = *st.Stats })
		level := user.Level(stats.MessageCount)
		text := welcomeMessage + fmt.Sprintf("\n\n📊 Your current progress: Level %d, %d messages", level.ID, stats.MessageCount)
		b.sendMessage(ev.ChatID, text)
		b.sendMenu(ev.ChatID)

	case "menu":
		b.sendMenu(ev.ChatID)

	case "save":
		if b.saver != nil {
			if err := b.saver.ForceSave(context.Background()); err != nil {
				log.Printf("manual save failed: %v", err)
			}
		}
		b.sendMessage(ev.ChatID, "💾 All data saved! 🔒")

	case "status":
		uptime := time.Since(b.startTime).Round(time.Second)
		text := fmt.Sprintf(`🤖 *Luna Bot Status*

🟢 *Online*: Stable & Persistent
⏰ *Uptime*: %s
👥 *Total Users*: %d
💬 *Total Messages*: %d
💾 *Storage*: %s

*Your progress is permanently saved!* 💖`,
			uptime, b.manager.TotalUsers(), b.manager.TotalMessages(), b.opts.StorageName)
		b.sendMessage(ev.ChatID, text)

	case "ping":
		b.sendMessage(ev.ChatID, "🏓 Pong! Bot is alive and data is persistent! 💾")

	case "myprogress":
		var stats user.Stats
		b.manager.Update(ev.ChatID, func(st *state.UserState) { stats = *st.Stats })
		level := user.Level(stats.MessageCount)
		progressText, _ := user.Progress(stats.MessageCount)
		text := fmt.Sprintf(`📊 *Your Permanent Progress*

💬 Messages: *%d*
🌟 Current Level: *%s* %s
🎯 Progress: %s
📅 First seen: %s

*This progress is saved forever!* 💾`,
			stats.MessageCount, level.Name, level.Emoji, progressText, stats.FirstSeen.Format("2006-01-02"))
		b.sendMessage(ev.ChatID, text)

	default:
		// unknown commands flow through the regular chat path
		b.handleChat(ev)
	}
}

func (b *Bot) handleAction(ev dispatch.Event) {
	var (
		greeting string
		stats    user.Stats
		unlocked []user.AchievementInfo
	)
	b.manager.Update(ev.ChatID, func(st *state.UserState) {
		greeting = user.Greeting(st.Gender)
		st.Achievements.UseButton(ev.Action)
		if ev.Action == actionHug {
			st.Achievements.Bump(user.ProgressHugs)
		}
		unlocked = st.Achievements.Evaluate(st.Stats)
		stats = *st.Stats
	})

	switch ev.Action {
	case actionHug:
		response := fmt.Sprintf("💖 Warm hugs for you, %s!", greeting)
		b.sendMessage(ev.ChatID, response)
		b.appendContext(ev.ChatID, "hug", response)

	case actionKiss:
		response := fmt.Sprintf("😘 Sending kisses your way, %s!", greeting)
		b.sendMessage(ev.ChatID, response)
		b.appendContext(ev.ChatID, "kiss", response)

	case actionCompliment:
		response := pickCompliment(greeting)
		b.sendMessage(ev.ChatID, response)
		b.appendContext(ev.ChatID, "compliment", response)

	case actionShowStats:
		level := user.Level(stats.MessageCount)
		text := fmt.Sprintf(`📊 *Your Stats* %s

💬 Messages: *%d*
🌟 Level: *%s*
💾 Storage: *Permanent*

Keep chatting! 💫`, level.Emoji, stats.MessageCount, level.Name)
		b.sendMessage(ev.ChatID, text)

	case actionShowLevel:
		level := user.Level(stats.MessageCount)
		progressText, percent := user.Progress(stats.MessageCount)
		text := fmt.Sprintf(`%s *Your Level: %s*

📊 Messages: %d
🎯 %s

%s %d%%

*Progress permanently saved!* 💾`,
			level.Emoji, level.Name, stats.MessageCount, progressText, progressBar(percent), percent)
		b.sendMessage(ev.ChatID, text)

	default:
		log.Printf("unknown action %q from chat %d", ev.Action, ev.ChatID)
	}

	b.notifyUnlocked(ev.ChatID, unlocked)
}

// handleChat is the main text path: count the message, detect a level-up,
// pick the greeting, ask the model and fall back to a canned line on any
// error, then record the exchange in the bounded conversation history.
func (b *Bot) handleChat(ev dispatch.Event) {
	if strings.TrimSpace(ev.Text) == "" {
		return
	}
	now := time.Now().UTC()

	var (
		before, after user.LevelInfo
		greeting      string
		turns         []user.Turn
		unlocked      []user.AchievementInfo
	)
	b.manager.Update(ev.ChatID, func(st *state.UserState) {
		before, after = st.Stats.Touch(now)
		if st.Gender == user.GenderUnknown {
			st.Gender = user.DetectGender(ev.Text, ev.Username)
		}
		greeting = user.Greeting(st.Gender)
		turns = append([]user.Turn(nil), st.Context...)
		st.Achievements.Bump(user.ProgressMessages)
		unlocked = st.Achievements.Evaluate(st.Stats)
	})
	b.manager.CountMessage()

	// Level-up notification always goes out before achievement
	// notifications triggered by the same event.
	if after.ID > before.ID {
		b.sendMessage(ev.ChatID, fmt.Sprintf(
			"🎉 *LEVEL UP!* You're now %s! %s\n\n*This achievement is permanently saved!* 💾",
			after.Name, after.Emoji))
	}
	b.notifyUnlocked(ev.ChatID, unlocked)

	reply := b.generateReply(ev.Text, greeting, after, turns, now)
	b.sendMessage(ev.ChatID, reply)
	b.appendContext(ev.ChatID, ev.Text, reply)
}

// generateReply calls the model under a hard timeout and substitutes a
// local canned reply on any failure. Users never see raw errors.
func (b *Bot) generateReply(text, greeting string, level user.LevelInfo, turns []user.Turn, now time.Time) string {
	if b.llmClient == nil {
		return fallbackReply(greeting)
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.LLMTimeout)
	defer cancel()

	msgs := []llm.Message{
		{Role: "system", Content: buildSystemPrompt(greeting, level, turns, now)},
		{Role: "user", Content: text},
	}
	resp, err := b.llmClient.Generate(ctx, msgs)
	if err != nil {
		log.Printf("llm generate failed: %v", err)
		return fallbackReply(greeting)
	}
	return resp.Content
}

func (b *Bot) appendContext(chatID int64, userText, botText string) {
	b.manager.Update(chatID, func(st *state.UserState) {
		st.Context = user.AppendTurn(st.Context, user.Turn{
			User: userText,
			Bot:  botText,
			Time: time.Now().UTC(),
		})
	})
}

// notifyUnlocked announces new achievements and triggers a synchronous
// flush: an unlock is a high-value event worth persisting immediately.
func (b *Bot) notifyUnlocked(chatID int64, unlocked []user.AchievementInfo) {
	if len(unlocked) == 0 {
		return
	}
	for _, a := range unlocked {
		b.sendMessage(chatID, fmt.Sprintf("🏆 *Achievement unlocked!* %s %s\n_%s_", a.Emoji, a.Name, a.Desc))
	}
	if b.saver != nil {
		if err := b.saver.ForceSave(context.Background()); err != nil {
			log.Printf("save after achievement unlock failed: %v", err)
		}
	}
}
