// Package render formats command records into the plain-text help views sent
// back to chat: the command list (flat or grouped) and the single-command
// detail view.
//
// The engine is a pure function of its inputs. It never reads the registry or
// the settings store and it never fails; callers resolve records and decide
// which view to produce.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
)

// Style selects how list entries are rendered.
type Style string

// Supported styles.
const (
	StyleSimple   Style = "simple"
	StyleDetailed Style = "detailed"
)

// ParseStyle maps a settings value to a Style, defaulting to StyleSimple.
func ParseStyle(s string) Style {
	if Style(strings.ToLower(strings.TrimSpace(s))) == StyleDetailed {
		return StyleDetailed
	}
	return StyleSimple
}

// Options controls a single rendering.
type Options struct {
	GroupCommands    bool
	Style            Style
	ShowHiddenBanner bool
	Prefix           string
}

// Group is a run of records sharing a group key, in first-seen order.
type Group struct {
	Key     string
	Records []command.Record
}

// Engine renders help views using a message catalog.
type Engine struct {
	cat *Catalog
}

// New creates an engine. A nil catalog selects English.
func New(cat *Catalog) *Engine {
	if cat == nil {
		cat = English
	}
	return &Engine{cat: cat}
}

// Catalog returns the catalog in use.
func (e *Engine) Catalog() *Catalog { return e.cat }

// GroupRecords partitions records by group key. Groups keep the order in which
// their first record appears; records keep input order inside a group.
func GroupRecords(records []command.Record) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, rec := range records {
		key := rec.GroupKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups
}

// displayGroups returns the groups in render order: the default group first,
// the others in first-seen order.
func displayGroups(records []command.Record) []Group {
	groups := GroupRecords(records)
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		if g.Key == command.DefaultGroup {
			out = append(out, g)
		}
	}
	for _, g := range groups {
		if g.Key != command.DefaultGroup {
			out = append(out, g)
		}
	}
	return out
}

// Order returns records in the order List numbers them. Index lookups must
// use this order so that the number a user sees selects the same command.
func Order(records []command.Record, grouped bool) []command.Record {
	if !grouped {
		return append([]command.Record(nil), records...)
	}
	out := make([]command.Record, 0, len(records))
	for _, g := range displayGroups(records) {
		out = append(out, g.Records...)
	}
	return out
}

// List renders the command list view.
func (e *Engine) List(records []command.Record, aliases command.AliasMap, opts Options) string {
	c := e.cat
	lines := []string{
		c.Title,
		c.Separator,
	}
	if opts.ShowHiddenBanner {
		lines = append(lines, c.HiddenBanner)
	}
	lines = append(lines, fmt.Sprintf(c.UsageHint, opts.Prefix), "")

	n := 0
	writeEntries := func(recs []command.Record) {
		for _, rec := range recs {
			n++
			lines = append(lines, e.entry(n, rec, aliases, opts)...)
		}
		lines = append(lines, "")
	}

	if opts.GroupCommands {
		for _, g := range displayGroups(records) {
			if g.Key == command.DefaultGroup {
				lines = append(lines, c.GeneralHeading)
			} else {
				lines = append(lines, fmt.Sprintf(c.GroupHeading, e.groupLabel(g.Key)))
			}
			writeEntries(g.Records)
		}
	} else {
		lines = append(lines, c.AllHeading)
		writeEntries(records)
	}

	lines = append(lines, c.Separator, fmt.Sprintf(c.Footer, len(records)))
	return strings.Join(lines, "\n")
}

func (e *Engine) groupLabel(key string) string {
	if strings.TrimSpace(key) == "" {
		return e.cat.OtherGroup
	}
	return key
}

func (e *Engine) entry(n int, rec command.Record, aliases command.AliasMap, opts Options) []string {
	c := e.cat
	head := fmt.Sprintf("%d. %s%s", n, opts.Prefix, rec.Name)
	if opts.Style != StyleDetailed {
		return []string{head + " - " + e.description(rec)}
	}

	const indent = "   "
	out := []string{
		head,
		indent + fmt.Sprintf(c.DescriptionLine, e.description(rec)),
	}
	if names := ResolveAliases(rec, aliases); len(names) > 0 {
		out = append(out, indent+fmt.Sprintf(c.AliasesLine, e.prefixed(names, opts.Prefix)))
	}
	if rec.Usage != "" {
		out = append(out, indent+fmt.Sprintf(c.UsageLine, SubstitutePrefix(rec.Usage, opts.Prefix)))
	}
	if rec.Permission {
		out = append(out, indent+c.PermissionNote)
	}
	if rec.Hidden {
		out = append(out, indent+c.HiddenNote)
	}
	return out
}

// Detail renders the single-command detail view.
func (e *Engine) Detail(rec command.Record, aliases command.AliasMap, opts Options) string {
	c := e.cat
	lines := []string{
		fmt.Sprintf(c.DetailTitle, opts.Prefix, rec.Name),
		c.Separator,
		fmt.Sprintf(c.DescriptionLine, e.description(rec)),
	}
	if names := ResolveAliases(rec, aliases); len(names) > 0 {
		lines = append(lines, fmt.Sprintf(c.AliasesLine, e.prefixed(names, opts.Prefix)))
	}
	if rec.Usage != "" {
		lines = append(lines, fmt.Sprintf(c.UsageLine, SubstitutePrefix(rec.Usage, opts.Prefix)))
	}
	if rec.Permission {
		lines = append(lines, c.PermissionNote)
	}
	if rec.Hidden {
		lines = append(lines, c.HiddenNote)
	}
	if rec.Group != "" {
		lines = append(lines, fmt.Sprintf(c.GroupLine, rec.Group))
	}
	lines = append(lines, c.Separator)
	return strings.Join(lines, "\n")
}

func (e *Engine) description(rec command.Record) string {
	if rec.Help == "" {
		return e.cat.NoDescription
	}
	return rec.Help
}

func (e *Engine) prefixed(names []string, prefix string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return strings.Join(out, e.cat.ListSeparator)
}

// ResolveAliases returns every alias mapping to the record's main name,
// excluding the main name itself, sorted for stable output.
func ResolveAliases(rec command.Record, aliases command.AliasMap) []string {
	main := rec.MainName
	if main == "" {
		main = rec.Name
	}
	var out []string
	for alias, target := range aliases {
		if target == main && alias != main {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// SubstitutePrefix replaces every "/" in usage with prefix. Slashes that are
// not command separators (paths, "a/b" choices) are rewritten as well.
// TODO: move usage strings to a dedicated placeholder token such as "{prefix}".
func SubstitutePrefix(usage, prefix string) string {
	return strings.ReplaceAll(usage, "/", prefix)
}
