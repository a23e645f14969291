package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestSendFormatsMessage(t *testing.T) {
	api := &fakeSender{}
	tg := NewTelegram(api, zerolog.Nop())

	err := tg.Send(context.Background(), 7, "<b>Two Sum</b>")
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), msg.ChatID)
	assert.Equal(t, "<b>Two Sum</b>", msg.Text)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
}

func TestSendWrapsAPIError(t *testing.T) {
	apiErr := errors.New("blocked by user")
	tg := NewTelegram(&fakeSender{err: apiErr}, zerolog.Nop())

	err := tg.Send(context.Background(), 7, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "7")
}

func TestSendHonorsCancelledContext(t *testing.T) {
	api := &fakeSender{}
	tg := NewTelegram(api, zerolog.Nop())

	// Drain the burst so the limiter has to wait, then cancel.
	for i := 0; i < 30; i++ {
		require.NoError(t, tg.Send(context.Background(), 7, "warmup"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tg.Send(ctx, 7, "late")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, api.sent, 30)
}
