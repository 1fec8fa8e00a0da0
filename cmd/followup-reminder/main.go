package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/go-telegram/bot"
	"github.com/mkravets/followup-reminder/pkg/bot/handlers"
	"github.com/mkravets/followup-reminder/pkg/config"
	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/delivery"
	"github.com/mkravets/followup-reminder/pkg/digest"
	"github.com/mkravets/followup-reminder/pkg/logger"
	"github.com/mkravets/followup-reminder/pkg/prefs"
	"github.com/mkravets/followup-reminder/pkg/reminders"
	"github.com/mkravets/followup-reminder/pkg/trigger"
	"github.com/mkravets/followup-reminder/pkg/ui"
)

func main() {
	if err := config.LoadConfig("config.json"); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	if err := db.InitDB(config.AppConfig.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var tg *bot.Bot
	if token := config.AppConfig.Telegram.Token; token != "" {
		var err error
		tg, err = bot.New(token)
		if err != nil {
			logger.Error("failed to create telegram bot", "error", err)
			os.Exit(1)
		}
	}

	// Chat id and user id coincide for direct Telegram chats.
	recipient := func(userID int64) delivery.Recipient {
		return delivery.Recipient{UserID: userID, ChatID: userID}
	}

	cache := prefs.NewCache(prefs.DefaultCacheTTL, time.Now)
	engine := &trigger.Engine{Prefs: cache}

	pipeline := &reminders.Pipeline{
		Sender:    reminderSender(tg, cache),
		Prefs:     cache,
		Engine:    engine,
		Recipient: recipient,
	}

	scheduler := &digest.Scheduler{
		Senders:   digestSenders(tg),
		Recipient: recipient,
	}

	go reminders.StartReminderTicker(ctx, pipeline, time.Minute)
	go scheduler.StartDigestTicker(ctx, time.Hour)
	go db.StartPromptSweeper(ctx, db.PromptSweepInterval)

	logger.Info("Starting followup-reminder...")
	if tg != nil {
		tg.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.CallbackPrefix, bot.MatchTypePrefix,
			handlers.HandleReminderCallback(pipeline))
		tg.Start(ctx)
		return
	}
	<-ctx.Done()
}

func reminderSender(tg *bot.Bot, cache *prefs.Cache) delivery.Sender {
	if tg != nil {
		return &handlers.ReminderSender{Bot: tg, Prefs: cache}
	}
	return &delivery.InAppSender{}
}

// digestSenders maps the configured channel names onto senders. Unknown
// names are skipped; an empty config falls back to in-app only.
func digestSenders(tg *bot.Bot) []delivery.Sender {
	var senders []delivery.Sender
	for _, name := range config.AppConfig.Digest.Channels {
		switch name {
		case "inapp":
			senders = append(senders, &delivery.InAppSender{})
		case "telegram":
			if tg != nil {
				senders = append(senders, &delivery.TelegramSender{Bot: tg})
			}
		case "email":
			senders = append(senders, &delivery.EmailSender{
				Addr: os.Getenv("FOLLOWUP_SMTP_ADDR"),
				From: config.AppConfig.Digest.FromName,
			})
		default:
			logger.Error("unknown digest channel", "channel", name)
		}
	}
	if len(senders) == 0 {
		senders = append(senders, &delivery.InAppSender{})
	}
	return senders
}
