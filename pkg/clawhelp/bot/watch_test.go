package bot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/settings"
)

const (
	catalogV1 = "commands:\n  - name: ping\n    reply: pong\n"
	catalogV2 = "commands:\n  - name: hello\n    reply: hi\n  - name: bye\n    reply: later\n"
)

func TestCatalogWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogV1), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	app, err := NewApp(settings.NewMemoryStore(), cat, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, app.CatalogCommands())

	w, err := NewCatalogWatcher(path, app.ReloadCatalog, nil)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	<-w.Ready()

	require.NoError(t, os.WriteFile(path, []byte("commands: [not: valid"), 0o600))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"ping"}, app.CatalogCommands(), "broken file keeps previous commands")

	require.NoError(t, os.WriteFile(path, []byte(catalogV2), 0o600))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"hello", "bye"}, app.CatalogCommands())
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := app.Registry.Handler("ping")
	assert.False(t, ok, "commands from the old catalog are unregistered")
	_, ok = app.Registry.Handler("help")
	assert.True(t, ok, "built-in commands survive a reload")

	cancel()
	require.NoError(t, <-done)
}

func TestNewCatalogWatcher_RequiresPath(t *testing.T) {
	_, err := NewCatalogWatcher("", func(*Catalog) error { return nil }, nil)
	assert.Error(t, err)
}
