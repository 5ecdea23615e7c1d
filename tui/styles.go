package tui

import "github.com/charmbracelet/lipgloss"

// 终端调色板：ANSI 0-15，跟随终端主题
var (
	colorBorder = lipgloss.ANSIColor(8)  // dark gray
	colorText   = lipgloss.ANSIColor(7)  // light gray
	colorDim    = lipgloss.ANSIColor(8)  // dark gray
	colorAlert  = lipgloss.ANSIColor(9)  // bright red
	colorTitle  = lipgloss.ANSIColor(15) // white
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2).
			Width(66)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorTitle).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	technicalStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	playlistItemStyle = lipgloss.NewStyle().
				Foreground(colorText)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorAlert)
)
