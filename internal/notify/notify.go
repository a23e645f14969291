// Package notify delivers outbound messages to users, throttled to stay
// under the Telegram broadcast limit of roughly 30 messages per second.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages through the Bot API behind a token bucket.
type Telegram struct {
	api     sender
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewTelegram(api sender, logger zerolog.Logger) *Telegram {
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// Send delivers one HTML-formatted message, blocking on the rate limiter
// until a slot is free or the context is cancelled.
func (t *Telegram) Send(ctx context.Context, userID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := t.api.Send(msg); err != nil {
		t.logger.Error().Err(err).Int64("user_id", userID).Msg("send failed")
		return fmt.Errorf("send message to %d: %w", userID, err)
	}
	return nil
}
