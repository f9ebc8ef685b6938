package ui

import "github.com/charmbracelet/lipgloss"

// Ledger palette: muted paper tones with a green accent for answers.
var (
	inkColor     = lipgloss.Color("#e6e1cf")
	faintColor   = lipgloss.Color("#8a8f98")
	paperColor   = lipgloss.Color("#f2ead3")
	rupeeColor   = lipgloss.Color("#e8b86d")
	answerColor  = lipgloss.Color("#8ccf7e")
	questionTint = lipgloss.Color("#e49b6b")
	accentColor  = lipgloss.Color("#b99ee6")
	frameColor   = lipgloss.Color("#3b4048")
	focusColor   = lipgloss.Color("#e8d27d")
	alertColor   = lipgloss.Color("#e57474")
)

var (
	bodyText = lipgloss.NewStyle().Foreground(inkColor)

	frame = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Padding(0, 1)

	inputFrame = frame.BorderForeground(focusColor)

	youLabel    = lipgloss.NewStyle().Foreground(questionTint).Bold(true).MarginTop(1)
	lumenLabel  = lipgloss.NewStyle().Foreground(answerColor).Bold(true).MarginTop(1)
	alertText   = lipgloss.NewStyle().Foreground(alertColor).Bold(true)
	hintText    = lipgloss.NewStyle().Foreground(faintColor).Italic(true)
	titleBar    = lipgloss.NewStyle().Foreground(accentColor).Bold(true).PaddingLeft(1)
	promptGlyph = lipgloss.NewStyle().Foreground(rupeeColor)
	dividerLine = lipgloss.NewStyle().Foreground(frameColor)
)
