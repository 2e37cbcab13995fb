package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *Event) error { return nil }

func mustRegister(t *testing.T, r *Registry, spec Spec) *Handle {
	t.Helper()
	if spec.Handler == nil {
		spec.Handler = noop
	}
	h, err := r.Register(spec)
	require.NoError(t, err)
	return h
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	mustRegister(t, r, Spec{Name: "ping", Aliases: []string{"p", "pong"}, Help: "pong test"})

	rec, ok := r.Command("ping")
	require.True(t, ok)
	assert.Equal(t, "ping", rec.Name)
	assert.Equal(t, "ping", rec.MainName)
	assert.Equal(t, "pong test", rec.Help)

	viaAlias, ok := r.Command("p")
	require.True(t, ok)
	assert.Equal(t, "ping", viaAlias.MainName)

	_, ok = r.Command("missing")
	assert.False(t, ok)
}

func TestRegistry_CommandsKeepRegistrationOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	mustRegister(t, r, Spec{Name: "b", Aliases: []string{"bb"}})
	mustRegister(t, r, Spec{Name: "a"})

	assert.Equal(t, []string{"b", "bb", "a"}, r.Commands())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_VisibleCommandsSkipHidden(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	mustRegister(t, r, Spec{Name: "shown"})
	mustRegister(t, r, Spec{Name: "secret", Aliases: []string{"s"}, Hidden: true})

	assert.Equal(t, []string{"shown"}, r.VisibleCommands())
	assert.Equal(t, []string{"shown", "secret", "s"}, r.Commands())
}

func TestRegistry_Duplicates(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	mustRegister(t, r, Spec{Name: "ping", Aliases: []string{"p"}})

	tests := []struct {
		name string
		spec Spec
	}{
		{"same name", Spec{Name: "ping", Handler: noop}},
		{"name taken by alias", Spec{Name: "p", Handler: noop}},
		{"alias taken by name", Spec{Name: "other", Aliases: []string{"ping"}, Handler: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(tt.spec)
			assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
		})
	}
}

func TestRegistry_InvalidSpec(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)

	_, err := r.Register(Spec{Name: "  ", Handler: noop})
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = r.Register(Spec{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestRegistry_AliasesSnapshot(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	mustRegister(t, r, Spec{Name: "help", Aliases: []string{"h", "help", "帮助"}})

	aliases := r.Aliases()
	assert.Equal(t, AliasMap{"h": "help", "帮助": "help"}, aliases)

	aliases["x"] = "help"
	_, ok := r.Aliases()["x"]
	assert.False(t, ok, "snapshot must not leak into the registry")
}

func TestRegistry_Unregister(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	h := mustRegister(t, r, Spec{Name: "ping", Aliases: []string{"p"}})
	mustRegister(t, r, Spec{Name: "stats"})

	assert.True(t, r.Unregister(h))
	assert.False(t, r.Unregister(h), "second unregister is a no-op")
	assert.False(t, r.Unregister(nil))

	_, ok := r.Command("p")
	assert.False(t, ok)
	assert.Equal(t, []string{"stats"}, r.Commands())
	assert.Empty(t, r.Aliases())

	// The name can be reused, and a stale handle must not remove the new entry.
	mustRegister(t, r, Spec{Name: "ping"})
	assert.False(t, r.Unregister(h))
	_, ok = r.Command("ping")
	assert.True(t, ok)
}

func TestRegistry_Handler(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	called := false
	mustRegister(t, r, Spec{Name: "ping", Aliases: []string{"p"}, Handler: func(context.Context, *Event) error {
		called = true
		return nil
	}})

	fn, ok := r.Handler("p")
	require.True(t, ok)
	require.NoError(t, fn(context.Background(), &Event{}))
	assert.True(t, called)
}

func TestRecord_GroupKey(t *testing.T) {
	assert.Equal(t, DefaultGroup, Record{}.GroupKey())
	assert.Equal(t, "admin", Record{Group: "admin"}.GroupKey())
}
