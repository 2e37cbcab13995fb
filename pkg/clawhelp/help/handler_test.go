package help

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/render"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

type sentText struct {
	platform string
	to       channels.Target
	text     string
}

// fakeSender records every SendText call. The first failFirst calls fail.
type fakeSender struct {
	mu        sync.Mutex
	calls     []sentText
	failFirst int
}

func (f *fakeSender) SendText(_ context.Context, platform string, to channels.Target, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sentText{platform: platform, to: to, text: text})
	if len(f.calls) <= f.failFirst {
		return errors.New("adapter unavailable")
	}
	return nil
}

func (f *fakeSender) last(t *testing.T) sentText {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls, "nothing was sent")
	return f.calls[len(f.calls)-1]
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store offline")
}

func (failingStore) Save(context.Context, string, []byte) error { return errors.New("store offline") }

func noop(context.Context, *command.Event) error { return nil }

type fixture struct {
	registry *command.Registry
	store    *settings.MemoryStore
	sender   *fakeSender
	handler  *Handler
}

func newFixture(t *testing.T, specs ...command.Spec) *fixture {
	t.Helper()
	f := &fixture{
		registry: command.NewRegistry(nil),
		store:    settings.NewMemoryStore(),
		sender:   &fakeSender{},
	}
	for _, s := range specs {
		if s.Handler == nil {
			s.Handler = noop
		}
		_, err := f.registry.Register(s)
		require.NoError(t, err)
	}
	f.handler = NewHandler(Deps{Registry: f.registry, Store: f.store, Sender: f.sender})
	return f
}

func (f *fixture) setSettings(t *testing.T, cfg settings.ModuleSettings) {
	t.Helper()
	require.NoError(t, settings.SaveModule(context.Background(), f.store, cfg))
}

func userEvent(args ...string) *command.Event {
	return &command.Event{Platform: "console", DetailType: command.DetailPrivate, UserID: "u1", Name: "help", Args: args}
}

func fiveCommands() []command.Spec {
	return []command.Spec{
		{Name: "a", Help: "first"},
		{Name: "b", Help: "second"},
		{Name: "c", Help: "third"},
		{Name: "d", Help: "fourth"},
		{Name: "e", Help: "fifth"},
	}
}

func TestHandle_EndToEndGroupedList(t *testing.T) {
	f := newFixture(t,
		command.Spec{Name: "ping", Help: "pong test"},
		command.Spec{Name: "stats", Help: "show stats", Group: "admin"},
	)

	require.NoError(t, f.handler.Handle(context.Background(), userEvent()))

	got := f.sender.last(t)
	assert.Equal(t, "console", got.platform)
	assert.Equal(t, channels.UserTarget("u1"), got.to)

	general := strings.Index(got.text, "[General Commands]")
	admin := strings.Index(got.text, "[admin Commands]")
	require.GreaterOrEqual(t, general, 0)
	require.Greater(t, admin, general)
	assert.Contains(t, got.text[general:admin], "/ping - pong test")
	assert.Contains(t, got.text[admin:], "/stats - show stats")
	assert.True(t, strings.HasSuffix(got.text, "2 commands available"))
}

func TestHandle_IndexLookup(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"6", "Error: number out of range, enter a number between 1 and 5"},
		{"0", "Error: number out of range, enter a number between 1 and 5"},
		{"-1", "Error: number out of range, enter a number between 1 and 5"},
		{"abc", "Error: please enter a valid number"},
		{"1.5", "Error: please enter a valid number"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			f := newFixture(t, fiveCommands()...)
			require.NoError(t, f.handler.Handle(context.Background(), userEvent(tt.arg)))
			assert.Equal(t, tt.want, f.sender.last(t).text)
		})
	}
}

func TestHandle_IndexSelectsDisplayedCommand(t *testing.T) {
	f := newFixture(t,
		command.Spec{Name: "stats", Help: "show stats", Group: "admin"},
		command.Spec{Name: "ping", Help: "pong test", Aliases: []string{"p"}, Usage: "/ping [host]"},
	)
	ctx := context.Background()

	require.NoError(t, f.handler.Handle(ctx, userEvent()))
	assert.Contains(t, f.sender.last(t).text, "1. /ping - pong test")

	require.NoError(t, f.handler.Handle(ctx, userEvent("1")))
	detail := f.sender.last(t).text
	assert.True(t, strings.HasPrefix(detail, "Command: /ping"))
	assert.Contains(t, detail, "Aliases: /p")
	assert.Contains(t, detail, "Usage: /ping [host]")

	require.NoError(t, f.handler.Handle(ctx, userEvent("2")))
	assert.True(t, strings.HasPrefix(f.sender.last(t).text, "Command: /stats"))
}

func TestHandle_NoCommands(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.handler.Handle(context.Background(), userEvent("1")))
	assert.Equal(t, render.English.ErrNoCommands, f.sender.last(t).text)

	require.NoError(t, f.handler.Handle(context.Background(), userEvent()))
	assert.True(t, strings.HasSuffix(f.sender.last(t).text, "0 commands available"))
}

func TestHandle_HiddenFiltering(t *testing.T) {
	f := newFixture(t,
		command.Spec{Name: "ping", Help: "pong test"},
		command.Spec{Name: "debug", Help: "internal", Hidden: true, Aliases: []string{"dbg"}},
	)
	ctx := context.Background()

	require.NoError(t, f.handler.Handle(ctx, userEvent()))
	out := f.sender.last(t).text
	assert.NotContains(t, out, "/debug")
	assert.NotContains(t, out, render.English.HiddenBanner)
	assert.True(t, strings.HasSuffix(out, "1 commands available"))

	cfg := settings.DefaultModuleSettings()
	cfg.ShowHiddenCommands = true
	f.setSettings(t, cfg)

	require.NoError(t, f.handler.Handle(ctx, userEvent()))
	out = f.sender.last(t).text
	assert.Contains(t, out, "/debug - internal")
	assert.NotContains(t, out, "/dbg -", "aliases are not listed as commands")
	assert.Contains(t, out, render.English.HiddenBanner)
	assert.True(t, strings.HasSuffix(out, "2 commands available"))
}

func TestHandle_SettingsDriveRendering(t *testing.T) {
	f := newFixture(t,
		command.Spec{Name: "ping", Help: "pong test"},
		command.Spec{Name: "stats", Help: "show stats", Group: "admin", Permission: true},
	)
	ctx := context.Background()
	f.setSettings(t, settings.ModuleSettings{
		GroupCommands: false,
		Style:         settings.StyleDetailed,
		Locale:        "en",
		ErrorPolicy:   settings.PolicyLog,
	})
	require.NoError(t, settings.SetCommandPrefix(ctx, f.store, "!"))

	require.NoError(t, f.handler.Handle(ctx, userEvent()))
	out := f.sender.last(t).text
	assert.Contains(t, out, "[All Commands]")
	assert.Contains(t, out, "2. !stats\n")
	assert.Contains(t, out, render.English.PermissionNote)
	assert.Contains(t, out, "Use '!help <number>'")
}

func TestHandle_ChineseLocale(t *testing.T) {
	f := newFixture(t, command.Spec{Name: "ping", Help: "测试"})
	cfg := settings.DefaultModuleSettings()
	cfg.Locale = "zh-CN"
	f.setSettings(t, cfg)

	require.NoError(t, f.handler.Handle(context.Background(), userEvent("9")))
	assert.Equal(t, "错误: 序号超出范围，请输入 1-1 之间的序号", f.sender.last(t).text)
}

func TestHandle_InitializesSettings(t *testing.T) {
	f := newFixture(t, command.Spec{Name: "ping"})
	ctx := context.Background()

	_, ok, err := f.store.Load(ctx, settings.ModuleKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, f.handler.Handle(ctx, userEvent()))

	_, ok, err = f.store.Load(ctx, settings.ModuleKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandle_GroupTarget(t *testing.T) {
	f := newFixture(t, command.Spec{Name: "ping"})
	evt := &command.Event{Platform: "discord", DetailType: command.DetailGroup, GroupID: "g42", UserID: "u1"}

	require.NoError(t, f.handler.Handle(context.Background(), evt))
	got := f.sender.last(t)
	assert.Equal(t, "discord", got.platform)
	assert.Equal(t, channels.GroupTarget("g42"), got.to)
}

func TestHandle_SendFailureNotifiesUser(t *testing.T) {
	f := newFixture(t, command.Spec{Name: "ping"})
	f.sender.failFirst = 1

	err := f.handler.Handle(context.Background(), userEvent())
	require.Error(t, err)

	require.Len(t, f.sender.calls, 2)
	assert.Equal(t, render.English.ErrFailure, f.sender.calls[1].text)
	assert.Equal(t, channels.UserTarget("u1"), f.sender.calls[1].to)
}

func TestHandle_SendFailureLogOnly(t *testing.T) {
	f := newFixture(t, command.Spec{Name: "ping"})
	cfg := settings.DefaultModuleSettings()
	cfg.ErrorPolicy = settings.PolicyLog
	f.setSettings(t, cfg)
	f.sender.failFirst = 1

	require.Error(t, f.handler.Handle(context.Background(), userEvent()))
	assert.Len(t, f.sender.calls, 1, "log policy must not send a failure notice")
}

func TestHandle_StoreFailure(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(Deps{Registry: command.NewRegistry(nil), Store: failingStore{}, Sender: sender})

	err := h.Handle(context.Background(), userEvent())
	require.Error(t, err)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, render.English.ErrFailure, sender.calls[0].text)
}

func TestHandle_UnresolvedTargetSendsNothing(t *testing.T) {
	f := newFixture(t, command.Spec{Name: "ping"})

	err := f.handler.Handle(context.Background(), &command.Event{Platform: "console", DetailType: command.DetailGroup})
	require.Error(t, err)
	assert.Empty(t, f.sender.calls)
}

func TestTarget(t *testing.T) {
	_, err := Target(nil)
	assert.Error(t, err)

	to, err := Target(&command.Event{UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, channels.UserTarget("u"), to)

	_, err = Target(&command.Event{})
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyLog, ParsePolicy("LOG"))
	assert.Equal(t, PolicyNotify, ParsePolicy("notify"))
	assert.Equal(t, PolicyNotify, ParsePolicy(""))
	assert.Equal(t, "log", PolicyLog.String())
}
