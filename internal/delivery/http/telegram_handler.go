package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"marketpulse/internal/delivery/http/dto"
	"marketpulse/internal/domain"
)

// SecretTokenHeader carries the secret registered with setWebhook
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramHandler registers recipients from bot commands
type TelegramHandler struct {
	recipients domain.RecipientRepository
	channel    domain.NotificationChannel
	secret     string
	log        zerolog.Logger
}

// NewTelegramHandler creates a new telegram handler. channel may be nil.
func NewTelegramHandler(recipients domain.RecipientRepository, channel domain.NotificationChannel, secret string, log zerolog.Logger) *TelegramHandler {
	return &TelegramHandler{
		recipients: recipients,
		channel:    channel,
		secret:     secret,
		log:        log,
	}
}

// Webhook handles a Bot API update. Processing errors still answer 200
// so Telegram does not redeliver the update.
// POST /api/telegram/webhook
func (h *TelegramHandler) Webhook(c echo.Context) error {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(c.Request().Header.Get(SecretTokenHeader)), []byte(h.secret)) != 1 {
		return c.NoContent(http.StatusForbidden)
	}

	var update dto.TelegramUpdate
	if err := c.Bind(&update); err != nil {
		h.log.Warn().Err(err).Msg("unreadable telegram update")
		return c.NoContent(http.StatusOK)
	}

	if update.Message == nil {
		return c.NoContent(http.StatusOK)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	fields := strings.Fields(update.Message.Text)
	if len(fields) == 0 || fields[0] != "/start" {
		return c.NoContent(http.StatusOK)
	}

	if len(fields) < 2 {
		h.log.Warn().Str("chat_id", chatID).Msg("/start without user id")
		h.reply(ctx, chatID, "Vui lòng mở liên kết đăng ký từ ứng dụng để kết nối Telegram.")
		return c.NoContent(http.StatusOK)
	}

	userID, err := uuid.Parse(fields[1])
	if err != nil {
		h.log.Warn().Str("chat_id", chatID).Str("user_id", fields[1]).Msg("/start with invalid user id")
		return c.NoContent(http.StatusOK)
	}

	if err := h.recipients.LinkChat(ctx, userID, chatID); err != nil {
		if errors.Is(err, domain.ErrRecipientNotFound) {
			h.log.Warn().Str("user_id", userID.String()).Str("chat_id", chatID).Msg("user not found for telegram chat")
		} else {
			h.log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to link telegram chat")
		}
		return c.NoContent(http.StatusOK)
	}

	h.log.Info().Str("user_id", userID.String()).Str("chat_id", chatID).Msg("linked telegram chat")
	h.reply(ctx, chatID, "✅ Đã kết nối! Bạn sẽ nhận bản tin thị trường hằng ngày tại đây.")

	return c.NoContent(http.StatusOK)
}

func (h *TelegramHandler) reply(ctx context.Context, chatID, text string) {
	if h.channel == nil {
		return
	}
	if err := h.channel.Send(ctx, chatID, text, true); err != nil {
		h.log.Warn().Err(err).Str("chat_id", chatID).Msg("failed to send telegram reply")
	}
}
