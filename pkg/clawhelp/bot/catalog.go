package bot

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/help"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// ArgsPlaceholder in a reply is replaced by the invocation arguments.
const ArgsPlaceholder = "{args}"

// CatalogEntry is one canned-reply command.
type CatalogEntry struct {
	Name       string   `yaml:"name"`
	Aliases    []string `yaml:"aliases"`
	Help       string   `yaml:"help"`
	Usage      string   `yaml:"usage"`
	Group      string   `yaml:"group"`
	Hidden     bool     `yaml:"hidden"`
	Permission bool     `yaml:"permission"`
	Reply      string   `yaml:"reply"`
}

// Catalog is a set of canned-reply commands loaded from YAML.
type Catalog struct {
	Commands []CatalogEntry `yaml:"commands"`
}

// Registrar registers commands.
type Registrar interface {
	Register(spec command.Spec) (*command.Handle, error)
}

// DefaultCatalog returns the bundled catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path loads the bundled catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	var result *multierror.Error
	seen := make(map[string]bool)
	for i, e := range c.Commands {
		switch {
		case strings.TrimSpace(e.Name) == "":
			result = multierror.Append(result, fmt.Errorf("entry %d: name is required", i+1))
		case seen[e.Name]:
			result = multierror.Append(result, fmt.Errorf("entry %d: duplicate command %q", i+1, e.Name))
		case e.Reply == "":
			result = multierror.Append(result, fmt.Errorf("entry %d (%s): reply is required", i+1, e.Name))
		}
		seen[e.Name] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Register registers every entry as a command replying through sender.
// Entries that clash with existing commands are skipped and reported.
func (c *Catalog) Register(reg Registrar, sender channels.TextSender, logger *slog.Logger) ([]*command.Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	var (
		handles []*command.Handle
		result  *multierror.Error
	)
	for _, e := range c.Commands {
		h, err := reg.Register(command.Spec{
			Name:       e.Name,
			Aliases:    e.Aliases,
			Help:       e.Help,
			Usage:      e.Usage,
			Group:      e.Group,
			Hidden:     e.Hidden,
			Permission: e.Permission,
			Handler:    replyHandler(e.Reply, sender),
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("register %q: %w", e.Name, err))
			continue
		}
		handles = append(handles, h)
	}
	logger.Info("catalog registered", "commands", len(handles))
	return handles, result.ErrorOrNil()
}

func replyHandler(reply string, sender channels.TextSender) command.HandlerFunc {
	return func(ctx context.Context, evt *command.Event) error {
		to, err := help.Target(evt)
		if err != nil {
			return err
		}
		text := strings.ReplaceAll(reply, ArgsPlaceholder, strings.Join(evt.Args, " "))
		return sender.SendText(ctx, evt.Platform, to, text)
	}
}
