package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	sendErr error
	updates chan tgbotapi.Update
	stopped bool
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	if mc, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, mc)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func textUpdate(chatType string, chatID, fromID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: fromID, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType},
		Date:      int(time.Unix(1700000000, 0).Unix()),
		Text:      text,
	}}
}

func TestConvert(t *testing.T) {
	tg := New(DefaultConfig(), nil)

	msg, ok := tg.convert(textUpdate("private", 42, 42, "/help"))
	require.True(t, ok)
	assert.False(t, msg.IsGroup)
	assert.Equal(t, "42", msg.From)
	assert.Equal(t, "7", msg.ID)
	assert.Equal(t, channels.UserTarget("42"), msg.ReplyTarget())

	msg, ok = tg.convert(textUpdate("supergroup", -100123, 42, "/help 2"))
	require.True(t, ok)
	assert.True(t, msg.IsGroup)
	assert.Equal(t, channels.GroupTarget("-100123"), msg.ReplyTarget())

	_, ok = tg.convert(tgbotapi.Update{})
	assert.False(t, ok)

	bot := textUpdate("private", 1, 1, "hi")
	bot.Message.From.IsBot = true
	_, ok = tg.convert(bot)
	assert.False(t, ok)

	tg = New(Config{RespondToDMs: true}, nil)
	_, ok = tg.convert(textUpdate("group", -5, 42, "/help"))
	assert.False(t, ok)
}

func TestPollAndDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	bot := newFakeBot()
	tg := New(DefaultConfig(), nil)
	tg.bot = bot

	require.NoError(t, tg.Connect(context.Background()))
	assert.True(t, tg.IsConnected())

	bot.updates <- tgbotapi.Update{}
	bot.updates <- textUpdate("group", -9, 3, "/help")

	select {
	case msg := <-tg.Receive():
		assert.Equal(t, "/help", msg.Content)
		assert.Equal(t, "-9", msg.ChatID)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	require.NoError(t, tg.Disconnect())
	require.NoError(t, tg.Disconnect())
	assert.True(t, bot.stopped)
	assert.False(t, tg.Health().LastMessageAt.IsZero())

	_, open := <-tg.Receive()
	assert.False(t, open)
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	bot := newFakeBot()
	tg := New(DefaultConfig(), nil)
	tg.bot = bot

	err := tg.Send(ctx, channels.UserTarget("42"), &channels.OutgoingMessage{Content: "x"})
	assert.ErrorIs(t, err, channels.ErrChannelDisconnected)

	tg.connected.Store(true)
	require.NoError(t, tg.Send(ctx, channels.GroupTarget("-100"), &channels.OutgoingMessage{Content: "hello", ReplyTo: "7"}))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(-100), bot.sent[0].ChatID)
	assert.Equal(t, "hello", bot.sent[0].Text)
	assert.Equal(t, 7, bot.sent[0].ReplyToMessageID)

	assert.Error(t, tg.Send(ctx, channels.UserTarget("not-a-number"), &channels.OutgoingMessage{Content: "x"}))

	err = tg.Send(ctx, channels.Target{Type: "thread", ID: "1"}, &channels.OutgoingMessage{Content: "x"})
	assert.ErrorIs(t, err, channels.ErrUnsupportedTarget)

	bot.sendErr = errors.New("forbidden")
	require.Error(t, tg.Send(ctx, channels.UserTarget("1"), &channels.OutgoingMessage{Content: "x"}))
	assert.Equal(t, 1, tg.Health().ErrorCount)
}

func TestConnect_RequiresToken(t *testing.T) {
	assert.Error(t, New(Config{}, nil).Connect(context.Background()))
}
