package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/pricewatch/internal/repository"
	"gopkg.in/telebot.v4"
)

// Bot serves read-only price reports over Telegram.
type Bot struct {
	bot    API
	log    *slog.Logger
	reader repository.Reader
}

func NewBot(log *slog.Logger, token string, poller time.Duration, reader repository.Reader) (*Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	botInstance := &Bot{bot: bot, log: log, reader: reader}

	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates. It blocks until Stop is called.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/categories", b.categoriesHandler)
	b.bot.Handle("/report", b.reportHandler)
	b.bot.Handle("/top", b.topHandler)
}
