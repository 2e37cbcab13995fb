package help

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/render"
)

// CommandName is the name the help command is registered under.
const CommandName = "help"

// Aliases are the alternative names of the help command.
var Aliases = []string{"h", "帮助"}

// Registrar registers and removes commands.
type Registrar interface {
	Register(spec command.Spec) (*command.Handle, error)
	Unregister(h *command.Handle) bool
}

// Module registers the help command on load and removes it on unload.
type Module struct {
	handler   *Handler
	registrar Registrar
	logger    *slog.Logger

	mu     sync.Mutex
	handle *command.Handle
}

// NewModule creates the module. Nothing is registered until Load.
func NewModule(handler *Handler, registrar Registrar, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{
		handler:   handler,
		registrar: registrar,
		logger:    logger.With("component", "help_module"),
	}
}

// Load registers the help command. Loading twice is an error.
func (m *Module) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		return fmt.Errorf("help module already loaded")
	}

	h, err := m.registrar.Register(command.Spec{
		Name:    CommandName,
		Aliases: Aliases,
		Help:    render.English.HelpDescription,
		Usage:   render.English.HelpUsage,
		Handler: m.handler.Handle,
	})
	if err != nil {
		return fmt.Errorf("register help command: %w", err)
	}
	m.handle = h
	m.logger.Info("help module loaded", "handle", h.ID(), "aliases", Aliases)
	return nil
}

// Unload removes the command registered by Load. It is a no-op when the
// module is not loaded.
func (m *Module) Unload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return nil
	}
	if !m.registrar.Unregister(m.handle) {
		m.logger.Warn("help command was already removed", "handle", m.handle.ID())
	}
	m.handle = nil
	m.logger.Info("help module unloaded")
	return nil
}

// Loaded reports whether the help command is currently registered.
func (m *Module) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil
}
