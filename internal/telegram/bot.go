package telegram

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"luna-bot/internal/dispatch"
	"luna-bot/internal/llm"
	"luna-bot/internal/state"
)

// Saver is the synchronous flush entry point (used by /save and on
// achievement unlocks).
type Saver interface {
	ForceSave(ctx context.Context) error
}

// Options groups the transport tunables.
type Options struct {
	LLMTimeout     time.Duration
	Workers        int
	QueueSize      int
	DedupCapacity  int
	MaxRestarts    int
	RestartBackoff time.Duration
	StorageName    string
}

// Bot wires the Telegram long-poll intake into the dispatch pipeline.
// The intake goroutine only enqueues; all handler work runs on the
// dispatcher's sharded workers, one conversation per shard.
type Bot struct {
	api        *tgbotapi.BotAPI
	s          sender
	llmClient  llm.Client
	manager    *state.Manager
	saver      Saver
	dispatcher *dispatch.Dispatcher
	opts       Options
	startTime  time.Time
}

func New(botToken string, llmClient llm.Client, manager *state.Manager, saver Saver, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		api:       api,
		s:         botAPISender{api: api},
		llmClient: llmClient,
		manager:   manager,
		saver:     saver,
		opts:      opts,
		startTime: time.Now(),
	}
	b.dispatcher = dispatch.New(
		opts.Workers, opts.QueueSize, opts.DedupCapacity,
		b.handleEvent,
		dispatch.WithApology(b.sendApology),
	)
	return b, nil
}

// Start runs the long-poll loop, restarting with a fixed backoff after a
// transport failure, up to MaxRestarts attempts. A clean context cancel
// stops the loop and drains the dispatcher.
func (b *Bot) Start(ctx context.Context) {
	defer b.dispatcher.Stop()

	for attempt := 0; attempt < b.opts.MaxRestarts; attempt++ {
		log.Printf("starting telegram polling (attempt %d)", attempt+1)
		err := b.poll(ctx)
		if err == nil {
			return
		}
		log.Printf("telegram polling failed: %v", err)
		log.Printf("restarting in %s", b.opts.RestartBackoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.opts.RestartBackoff):
		}
	}
	log.Printf("max restarts reached, giving up on telegram transport")
}

func (b *Bot) poll(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 90
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.enqueue(update)
		}
	}
}

// enqueue converts a raw update into a dispatch event. The update id is the
// platform's event id; duplicates of at-least-once delivery are dropped by
// the dispatcher's idempotency cache.
func (b *Bot) enqueue(update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		accepted := b.dispatcher.Enqueue(dispatch.Event{
			ChatID:   msg.Chat.ID,
			EventID:  update.UpdateID,
			Username: msg.From.FirstName,
			Text:     msg.Text,
		})
		if !accepted {
			log.Printf("dropped duplicate update %d for chat %d", update.UpdateID, msg.Chat.ID)
		}
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil {
			return
		}
		// ack the button press right away; processing happens on a worker
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("failed to answer callback: %v", err)
		}
		accepted := b.dispatcher.Enqueue(dispatch.Event{
			ChatID:   cb.Message.Chat.ID,
			EventID:  update.UpdateID,
			Username: cb.From.FirstName,
			Action:   cb.Data,
		})
		if !accepted {
			log.Printf("dropped duplicate callback %d for chat %d", update.UpdateID, cb.Message.Chat.ID)
		}
	}
}

func (b *Bot) sendApology(ev dispatch.Event) {
	b.sendMessage(ev.ChatID, apologyMessage)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

func (b *Bot) sendMenu(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💖 Hug", actionHug),
			tgbotapi.NewInlineKeyboardButtonData("😘 Kiss", actionKiss),
			tgbotapi.NewInlineKeyboardButtonData("🌟 Compliment", actionCompliment),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", actionShowStats),
			tgbotapi.NewInlineKeyboardButtonData("🎯 Level", actionShowLevel),
		),
	)
	msg := tgbotapi.NewMessage(chatID, "💕 Choose action:")
	msg.ReplyMarkup = kb
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send menu: %v", err)
	}
}
