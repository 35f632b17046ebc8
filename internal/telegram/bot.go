package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/metrics"
	"github.com/kitbuilder587/textgen/internal/service"
)

type BotConfig struct {
	Token string
	Debug bool
}

// Sender - то, что хендлеру нужно от Telegram API
type Sender interface {
	Send(chatID int64, text string) error
	SendTyping(chatID int64)
}

type Bot struct {
	api       *tgbotapi.BotAPI
	sender    Sender
	generator service.TextGenerator
	logger    *zap.Logger
	metrics   *metrics.Metrics
	handler   *Handler
	wg        sync.WaitGroup
}

func New(cfg BotConfig, gen service.TextGenerator, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(nil, gen, logger, m)
	bot.api = api
	bot.sender = &apiSender{api: api}

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(sender Sender, gen service.TextGenerator, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	bot := &Bot{
		sender:    sender,
		generator: gen,
		logger:    logger,
		metrics:   m,
	}
	bot.handler = NewHandler(bot)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return nil
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()
	kind := "prompt"
	if update.Message != nil && update.Message.IsCommand() {
		kind = "command"
	}

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message != nil && update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			b.recordUpdate(kind, "panic", startTime)
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)
	b.recordUpdate(kind, "processed", startTime)
}

func (b *Bot) recordUpdate(kind, status string, start time.Time) {
	if b.metrics != nil {
		b.metrics.RecordTelegramUpdate(kind, status, time.Since(start))
	}
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.sender == nil {
		return nil
	}
	return b.sender.Send(chatID, text)
}

func (b *Bot) SendTyping(chatID int64) {
	if b.sender == nil {
		return
	}
	b.sender.SendTyping(chatID)
}

type apiSender struct {
	api *tgbotapi.BotAPI
}

func (s *apiSender) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := s.api.Send(msg)
	return err
}

func (s *apiSender) SendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	s.api.Send(action)
}
