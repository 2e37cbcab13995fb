package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/channels"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/command"
	"github.com/jholhewres/clawhelp/pkg/clawhelp/help"
)

// SystemProbe reports facts about the machine the bot runs on.
type SystemProbe interface {
	Host() (*host.InfoStat, error)
	Memory() (*mem.VirtualMemoryStat, error)
	Load() (*load.AvgStat, error)
}

type gopsutilProbe struct{}

func (gopsutilProbe) Host() (*host.InfoStat, error)           { return host.Info() }
func (gopsutilProbe) Memory() (*mem.VirtualMemoryStat, error) { return mem.VirtualMemory() }
func (gopsutilProbe) Load() (*load.AvgStat, error)            { return load.Avg() }

// HostProbe reads the local machine.
func HostProbe() SystemProbe { return gopsutilProbe{} }

// StatusReport is the input of the status reply.
type StatusReport struct {
	Started  time.Time
	Commands int
	Health   map[string]channels.HealthStatus
}

// StatusText formats report plus whatever probe can tell. Probe failures
// drop the affected lines.
func StatusText(probe SystemProbe, report StatusReport, now time.Time) string {
	var b strings.Builder
	b.WriteString("Bot status\n")
	fmt.Fprintf(&b, "Uptime: %s\n", formatUptime(uint64(now.Sub(report.Started).Seconds())))
	fmt.Fprintf(&b, "Commands: %d\n", report.Commands)

	if len(report.Health) > 0 {
		names := make([]string, 0, len(report.Health))
		for name := range report.Health {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("Channels:\n")
		for _, name := range names {
			h := report.Health[name]
			state := "down"
			if h.Connected {
				state = "up"
			}
			fmt.Fprintf(&b, "  %s: %s", name, state)
			if h.ErrorCount > 0 {
				fmt.Fprintf(&b, " (%d errors)", h.ErrorCount)
			}
			b.WriteString("\n")
		}
	}

	if probe == nil {
		return strings.TrimRight(b.String(), "\n")
	}
	if h, err := probe.Host(); err == nil {
		fmt.Fprintf(&b, "Host: %s (%s %s)\n", h.Hostname, h.Platform, h.PlatformVersion)
		fmt.Fprintf(&b, "Host uptime: %s\n", formatUptime(h.Uptime))
	}
	if v, err := probe.Memory(); err == nil {
		fmt.Fprintf(&b, "Memory: %.1f%% of %.1f GB\n", v.UsedPercent, float64(v.Total)/1024/1024/1024)
	}
	if l, err := probe.Load(); err == nil {
		fmt.Fprintf(&b, "Load: %.2f %.2f %.2f\n", l.Load1, l.Load5, l.Load15)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatUptime(seconds uint64) string {
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// statusSpec is the built-in "status" admin command.
func (a *App) statusSpec(probe SystemProbe) command.Spec {
	return command.Spec{
		Name:    "status",
		Aliases: []string{"sys"},
		Help:    "show bot and host status",
		Usage:   "/status",
		Group:   "admin",
		Handler: func(ctx context.Context, evt *command.Event) error {
			to, err := help.Target(evt)
			if err != nil {
				return err
			}
			text := StatusText(probe, StatusReport{
				Started:  a.started,
				Commands: a.Registry.Len(),
				Health:   a.Channels.HealthAll(),
			}, time.Now())
			return a.Channels.SendText(ctx, evt.Platform, to, text)
		},
	}
}
