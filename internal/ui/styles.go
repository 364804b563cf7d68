package ui

import "github.com/charmbracelet/lipgloss"

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

// Render helpers so the rest of the program can emit styled text without
// holding lipgloss styles of its own.

func Banner(text string) string    { return bannerStyle.Render(text) }
func Prompt(text string) string    { return promptStyle.Render(text) }
func Assistant(text string) string { return assistantStyle.Render(text) }
func Notice(text string) string    { return noticeStyle.Render(text) }
func Success(text string) string   { return successStyle.Render(text) }
func Error(text string) string     { return errorStyle.Render(text) }
func Dim(text string) string       { return dimStyle.Render(text) }
