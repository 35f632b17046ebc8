package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/domain"
)

const (
	msgUnknownCommand = "Неизвестная команда. Используйте /help для справки."
	msgEmptyPrompt    = "Пустой запрос. Напишите, что нужно сгенерировать."
	msgGatewayFailed  = "Не удалось сгенерировать текст. Попробуйте позже."
	msgInternal       = "Произошла ошибка. Попробуйте позже."
)

var msgPromptTooLong = fmt.Sprintf("Запрос слишком длинный. Максимум %d символов.", domain.MaxPromptLength)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}

	fields := []zap.Field{zap.Int64("chat_id", msg.Chat.ID)}
	if msg.From != nil {
		fields = append(fields, zap.Int64("user_id", msg.From.ID), zap.String("username", msg.From.UserName))
	}
	h.bot.logger.Info("received message", fields...)

	prompt, ok := ParsePrompt(msg.Text)
	if !ok {
		h.handleCommand(msg)
		return
	}

	h.handlePrompt(ctx, msg.Chat.ID, prompt)
}

func (h *Handler) handleCommand(msg *tgbotapi.Message) {
	switch commandName(msg.Text) {
	case "start":
		h.bot.Send(msg.Chat.ID, "Привет! Отправьте любой текст, и я сгенерирую ответ.\n\nИспользуйте /help для справки.")
	case "help":
		h.handleHelp(msg)
	default:
		h.bot.Send(msg.Chat.ID, msgUnknownCommand)
	}
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	helpText := fmt.Sprintf(`<b>Доступные команды:</b>

/start - Приветствие
/help - Показать эту справку
/ask текст - Сгенерировать ответ на текст

<b>Как использовать:</b>
Просто отправьте сообщение, оно целиком уйдет в модель как промпт.
Длина запроса: до %d символов.`, domain.MaxPromptLength)

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handlePrompt(ctx context.Context, chatID int64, prompt string) {
	h.bot.SendTyping(chatID)

	resp, err := h.bot.generator.Generate(ctx, &domain.GenerateRequest{Prompt: prompt})
	if err != nil {
		h.bot.logger.Warn("generation failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		h.bot.Send(chatID, mapErrorToMessage(err))
		return
	}

	for _, m := range FormatCompletion(resp, MaxMessageLength) {
		if err := h.bot.Send(chatID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func mapErrorToMessage(err error) string {
	var gwErr *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrPromptTooLong):
		return msgPromptTooLong
	case errors.Is(err, domain.ErrEmptyPrompt):
		return msgEmptyPrompt
	case errors.As(err, &gwErr):
		return msgGatewayFailed
	default:
		return msgInternal
	}
}
