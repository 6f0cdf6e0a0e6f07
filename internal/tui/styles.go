package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the lipgloss styles for the watch view.
type Theme struct {
	Header      lipgloss.Style
	Footer      lipgloss.Style
	Badge       lipgloss.Style
	ListItem    lipgloss.Style
	Selected    lipgloss.Style
	Unread      lipgloss.Style
	Archived    lipgloss.Style
	OwnSender   lipgloss.Style
	OtherSender lipgloss.Style
	System      lipgloss.Style
	Timestamp   lipgloss.Style
	Compose     lipgloss.Style
	Error       lipgloss.Style
	Border      lipgloss.Style
}

func themeByName(name string) Theme {
	accent := lipgloss.Color("12")
	muted := lipgloss.Color("8")
	warn := lipgloss.Color("11")
	errColor := lipgloss.Color("9")

	switch name {
	case "light":
		accent = lipgloss.Color("4")
		muted = lipgloss.Color("7")
	case "dark":
		accent = lipgloss.Color("14")
	}

	return Theme{
		Header:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		Footer:      lipgloss.NewStyle().Foreground(muted),
		Badge:       lipgloss.NewStyle().Bold(true).Foreground(warn),
		ListItem:    lipgloss.NewStyle(),
		Selected:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Unread:      lipgloss.NewStyle().Bold(true),
		Archived:    lipgloss.NewStyle().Faint(true),
		OwnSender:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		OtherSender: lipgloss.NewStyle().Bold(true),
		System:      lipgloss.NewStyle().Italic(true).Foreground(muted),
		Timestamp:   lipgloss.NewStyle().Foreground(muted),
		Compose:     lipgloss.NewStyle().Foreground(accent),
		Error:       lipgloss.NewStyle().Foreground(errColor),
		Border:      lipgloss.NewStyle().Foreground(muted),
	}
}
