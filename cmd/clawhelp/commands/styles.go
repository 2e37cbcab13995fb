package commands

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#00D4FF")
	colorMuted   = lipgloss.Color("#6B7280")
	colorError   = lipgloss.Color("#EF4444")

	bannerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	bannerHintStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	disabledStyle = lipgloss.NewStyle().
			Foreground(colorError)
)

// chatBanner is printed when `clawhelp chat` starts.
func chatBanner(name, prefix string) string {
	return "\n  " + bannerTitleStyle.Render(name) + " " +
		bannerHintStyle.Render("type "+prefix+"help to list commands, Ctrl+D to exit.") + "\n"
}
