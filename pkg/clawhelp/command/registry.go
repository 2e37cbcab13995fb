// Package command – registry.go implements the command registry: it keeps
// command records, their aliases and handlers, and answers the lookups the
// help module and the dispatcher need.
package command

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one registration so it can be removed later.
type Handle struct {
	id   uuid.UUID
	name string
}

// ID returns the registration identifier.
func (h *Handle) ID() string { return h.id.String() }

// Name returns the canonical name registered under this handle.
func (h *Handle) Name() string { return h.name }

type entry struct {
	handle  *Handle
	record  Record
	aliases []string
	handler HandlerFunc
}

// Registry is the central command table. Keys are command names and aliases;
// both resolve to the same entry.
type Registry struct {
	// entries indexed by canonical name.
	entries map[string]*entry

	// aliases maps alias -> canonical name.
	aliases map[string]string

	// order keeps every key (names and aliases) in registration order.
	order []string

	logger *slog.Logger
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*entry),
		aliases: make(map[string]string),
		logger:  logger.With("component", "command_registry"),
	}
}

// Register adds a command and its aliases. Names are case-sensitive.
func (r *Registry) Register(spec Spec) (*Handle, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" || spec.Handler == nil {
		return nil, fmt.Errorf("%w: name and handler are required", ErrInvalidSpec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.takenLocked(name) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicate, name)
	}

	aliases := make([]string, 0, len(spec.Aliases))
	seen := map[string]bool{name: true}
	for _, a := range spec.Aliases {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		if r.takenLocked(a) {
			return nil, fmt.Errorf("%w: alias %q", ErrDuplicate, a)
		}
		seen[a] = true
		aliases = append(aliases, a)
	}

	h := &Handle{id: uuid.New(), name: name}
	r.entries[name] = &entry{
		handle: h,
		record: Record{
			Name:       name,
			MainName:   name,
			Help:       spec.Help,
			Usage:      spec.Usage,
			Group:      spec.Group,
			Hidden:     spec.Hidden,
			Permission: spec.Permission,
		},
		aliases: aliases,
		handler: spec.Handler,
	}
	r.order = append(r.order, name)
	for _, a := range aliases {
		r.aliases[a] = name
		r.order = append(r.order, a)
	}

	r.logger.Debug("command registered",
		"name", name,
		"aliases", aliases,
		"handle", h.ID(),
	)
	return h, nil
}

// Unregister removes the command registered under h, along with its aliases.
// Returns false if the handle is unknown or was already removed.
func (r *Registry) Unregister(h *Handle) bool {
	if h == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h.name]
	if !ok || e.handle != h {
		return false
	}

	delete(r.entries, h.name)
	removed := map[string]bool{h.name: true}
	for _, a := range e.aliases {
		delete(r.aliases, a)
		removed[a] = true
	}

	kept := r.order[:0]
	for _, key := range r.order {
		if !removed[key] {
			kept = append(kept, key)
		}
	}
	r.order = kept

	r.logger.Debug("command unregistered", "name", h.name, "handle", h.ID())
	return true
}

// Commands returns every registered key, names and aliases, in registration order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// VisibleCommands returns the keys of commands that are not hidden.
func (r *Registry) VisibleCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		if e := r.lookupLocked(key); e != nil && !e.record.Hidden {
			out = append(out, key)
		}
	}
	return out
}

// Command resolves a name or alias to its record.
func (r *Registry) Command(name string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.lookupLocked(name)
	if e == nil {
		return Record{}, false
	}
	return e.record, true
}

// Handler resolves a name or alias to its handler.
func (r *Registry) Handler(name string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.lookupLocked(name)
	if e == nil {
		return nil, false
	}
	return e.handler, true
}

// Aliases returns a snapshot of the alias table.
func (r *Registry) Aliases() AliasMap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(AliasMap, len(r.aliases))
	for a, main := range r.aliases {
		out[a] = main
	}
	return out
}

// Len returns the number of canonical commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) lookupLocked(key string) *entry {
	if e, ok := r.entries[key]; ok {
		return e
	}
	if main, ok := r.aliases[key]; ok {
		return r.entries[main]
	}
	return nil
}

func (r *Registry) takenLocked(key string) bool {
	_, isName := r.entries[key]
	_, isAlias := r.aliases[key]
	return isName || isAlias
}
